// Package metrics owns the process-wide Prometheus registry: runtime collectors, build
// identity and the deployment shape of the tracker (which store, upstream and audit
// backends are wired).
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type BuildInfo struct {
	Version   string
	Revision  string
	BuildDate string
}

type Config struct {
	Enabled bool
	Addr    string
	Path    string
	Service string
	Build   BuildInfo
}

type Provider struct {
	reg     *prometheus.Registry
	backend *prometheus.GaugeVec
}

func Init(cfg Config) *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if cfg.Service == "" {
		cfg.Service = "mgnrega-tracker"
	}
	v := cfg.Build
	if v.Version == "" {
		v.Version = "dev"
	}
	build := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tracker_build_info",
		Help: "Build identity of the running binary (always 1).",
	}, []string{"service", "version", "revision", "build_date", "go_version"})
	build.WithLabelValues(cfg.Service, v.Version, v.Revision, v.BuildDate, runtime.Version()).Set(1)

	backend := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tracker_backend_info",
		Help: "Backend selected for each pluggable role (1 for the active one).",
	}, []string{"role", "driver"})
	reg.MustRegister(build, backend)

	return &Provider{reg: reg, backend: backend}
}

// SetBackend records the driver chosen for role, e.g. ("store", "mongo").
func (p *Provider) SetBackend(role, driver string) {
	p.backend.WithLabelValues(role, driver).Set(1)
}

func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{Registry: p.reg})
}

func (p *Provider) Registerer() prometheus.Registerer { return p.reg }

func (p *Provider) Gatherer() prometheus.Gatherer { return p.reg }

// Serve exposes the registry on its own listener until ctx is cancelled.
func (p *Provider) Serve(ctx context.Context, cfg Config, l *slog.Logger) {
	if cfg.Path == "" {
		cfg.Path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, p.Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		l.Info("metrics listening", "addr", cfg.Addr, "path", cfg.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("metrics server exited", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			l.Warn("metrics shutdown", "err", err)
		}
	}()
}
