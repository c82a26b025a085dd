package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/vk/walletbridge/internal/ctxlog"
	"github.com/vk/walletbridge/internal/transport/socketio"
	"golang.org/x/sync/errgroup"
)

// Run serves the bridge until ctx is cancelled or a server fails. Tracked
// interactions survive Run returning; Close releases them. Ready is closed
// by the first Run that manages to listen.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	ln, err := net.Listen("tcp", a.config.Transport.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.config.Transport.Address, err)
	}

	transport := socketio.New(ctx, a.registry, a.config.Transport.Path)
	a.dispatcher.SetEmitter(transport)
	defer a.dispatcher.SetEmitter(nil)

	mux := http.NewServeMux()
	mux.Handle(transport.Path(), transport.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	a.mu.Lock()
	a.httpServer = srv
	a.addr = ln.Addr().String()
	a.mu.Unlock()
	a.readyOnce.Do(func() { close(a.ready) })

	health := a.startHealthCheckServer(ctx)

	g, gctx := errgroup.WithContext(ctx)

	if ttl := a.config.Correlator.CompletedTTL; ttl > 0 {
		g.Go(func() error {
			a.correlator.RunJanitor(gctx, a.config.Correlator.SweepInterval, ttl)
			return nil
		})
	}

	g.Go(func() error {
		a.logger.Info("🚀 Bridge listening", "address", a.Addr(), "path", transport.Path())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("bridge server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		transport.Close()
		return errors.Join(
			shutdownServer(ctx, "bridge", srv),
			shutdownServer(ctx, "healthcheck", health),
		)
	})

	err = g.Wait()
	a.logger.Debug("App.Run method finished.")
	return err
}

// Ready is closed once Run is listening.
func (a *App) Ready() <-chan struct{} {
	return a.ready
}

// Addr is the bound bridge address, empty before Run listens.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}
