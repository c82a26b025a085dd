package testutil

import (
	"context"
	"log/slog"
	"testing"

	"github.com/vk/walletbridge/internal/correlator"
	"github.com/vk/walletbridge/internal/events"
	"github.com/vk/walletbridge/internal/host"
	"github.com/vk/walletbridge/internal/wallet"
	"github.com/vk/walletbridge/internal/wallet/simulator"
)

// NewHost builds a host context around a fresh correlator and a recorder.
// A nil sdk means a zero-latency simulator. The correlator is closed when
// the test ends.
func NewHost(t *testing.T, sdk wallet.SDK, settings host.Settings) (*host.Context, *EventRecorder) {
	t.Helper()
	if sdk == nil {
		sdk = simulator.New(simulator.Options{})
	}

	store := correlator.New()
	rec := &EventRecorder{}
	hc := &host.Context{
		Logger:     slog.New(slog.DiscardHandler),
		Correlator: store,
		Events:     events.NewDispatcher(store, rec),
		Wallet:     sdk,
		Settings:   settings,
	}
	t.Cleanup(func() { store.Close(context.Background()) })
	return hc, rec
}
