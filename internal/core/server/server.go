// Package server wires middleware and routes and runs the HTTP listener.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/config"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/health"
	middleware "github.com/mohammed-shakir/mgnrega-tracker/internal/core/middleware"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/router"
)

type Deps struct {
	API   *router.Handlers
	Ready map[string]health.Pinger
	// Metrics is served at /metrics on the main listener when non-nil.
	Metrics http.Handler
}

// NewHandler builds the root handler: probes and metrics outside the rate limit,
// the JSON API under /api.
func NewHandler(cfg config.Config, logger *slog.Logger, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.FrontendURL))

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(d.Ready, 3*time.Second))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Get("/health", health.Liveness())
		d.API.Mount(r)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"message":"Route not found"}`))
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, d Deps) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(cfg, logger, d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// covers a full retry sequence against upstream
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		budget := cfg.ShutdownBudget()
		logger.Info("http shutdown", "budget", budget)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), budget)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown incomplete", "err", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
