package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vk/walletbridge/internal/ctxlog"
)

type healthStatus struct {
	Status       string `json:"status"`
	Interactions int    `json:"interactions"`
	Modules      int    `json:"modules"`
}

// healthHandler reports liveness and the number of tracked interactions.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(a.ctx)
	logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(healthStatus{
		Status:       "ok",
		Interactions: a.correlator.Len(),
		Modules:      len(a.registry.Descriptors()),
	})
}

// startHealthCheckServer initializes and runs the health check HTTP server.
// It returns nil when the server is disabled.
func (a *App) startHealthCheckServer(ctx context.Context) *http.Server {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Configuring health check server.")
	if a.config.Healthcheck.Port <= 0 {
		logger.Warn("Health check server not started: disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)

	addr := fmt.Sprintf(":%d", a.config.Healthcheck.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		// ListenAndServe returns ErrServerClosed on graceful shutdown.
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
	return srv
}

func shutdownServer(ctx context.Context, name string, srv *http.Server) error {
	logger := ctxlog.FromContext(ctx)
	if srv == nil {
		logger.Debug("Server was not running.", "server", name)
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	logger.Info("Shutting down server...", "server", name)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "server", name, "error", err)
		return err
	}
	logger.Debug("Server shut down gracefully.", "server", name)
	return nil
}
