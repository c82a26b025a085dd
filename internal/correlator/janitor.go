package correlator

import (
	"context"
	"time"

	"github.com/vk/walletbridge/internal/ctxlog"
)

// RunJanitor sweeps Completed handles older than ttl every interval until ctx
// is cancelled. A non-positive interval or ttl disables it.
func (s *Store) RunJanitor(ctx context.Context, interval, ttl time.Duration) {
	logger := ctxlog.FromContext(ctx)
	if interval <= 0 || ttl <= 0 {
		logger.Debug("Correlator janitor disabled.")
		return
	}

	logger.Debug("Correlator janitor started.", "interval", interval, "ttl", ttl)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Correlator janitor stopped.")
			return
		case <-ticker.C:
			s.Sweep(ctx, ttl)
		}
	}
}
