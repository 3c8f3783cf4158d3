package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/config"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/health"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/observability"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/router"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/server"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/logger"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/metrics"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	storeFlag := flag.String("store", "", "store backend (memory|mongo|redis); overrides STORE_DRIVER")
	flag.Parse()

	// .env.local wins over .env; real environment wins over both
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	cfg := config.FromEnv()
	if *storeFlag != "" {
		cfg.StoreDriver = *storeFlag
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   cfg.Service,
		Component: "tracker",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	if err := cfg.Validate(); err != nil {
		appLog.Error("invalid configuration", "err", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsHandler, reg := metricsSetup(ctx, cfg, appLog)

	appLog.Info("starting tracker",
		"addr", cfg.Addr,
		"version", Version,
		"store", cfg.StoreDriver,
		"upstream", cfg.Upstream.Driver,
		"audit", cfg.Audit.Driver,
		"districts", cfg.Geo.Source,
		"refresh", cfg.Refresh.Driver)

	bootCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	app, err := wire(bootCtx, ctx, cfg, appLog, reg)
	cancel()
	if err != nil {
		appLog.Error("startup failed", "err", err)
		return 1
	}
	defer app.close(appLog)

	deps := server.Deps{
		API:     router.New(app.perf, app.loc, cfg.CurrentPeriod, appLog),
		Ready:   map[string]health.Pinger{"store": app.store, "districts": app.loc},
		Metrics: metricsHandler,
	}
	if err := server.Run(ctx, cfg, appLog, deps); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

// metricsSetup registers collectors when enabled. With METRICS_ADDR empty the handler is
// returned for the main listener; otherwise metrics get their own listener.
func metricsSetup(ctx context.Context, cfg config.Config, l *slog.Logger) (http.Handler, prometheus.Registerer) {
	if !cfg.MetricsEnabled {
		observability.Init(nil, false)
		return nil, nil
	}
	mcfg := metrics.Config{
		Enabled: true,
		Addr:    cfg.MetricsAddr,
		Path:    cfg.MetricsPath,
		Service: cfg.Service,
		Build: metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	}
	p := metrics.Init(mcfg)
	observability.Init(p.Registerer(), true)
	p.SetBackend("store", cfg.StoreDriver)
	p.SetBackend("upstream", cfg.Upstream.Driver)
	for _, d := range cfg.AuditDrivers() {
		p.SetBackend("audit", d)
	}
	p.SetBackend("districts", cfg.Geo.Source)
	p.SetBackend("refresh", cfg.Refresh.Driver)
	if cfg.MetricsAddr == "" {
		l.Info("metrics served on main listener", "path", "/metrics")
		return p.Handler(), p.Registerer()
	}
	p.Serve(ctx, mcfg, l)
	return nil, p.Registerer()
}
