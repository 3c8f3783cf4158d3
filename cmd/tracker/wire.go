package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/audit"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/cache/redisstore"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/config"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/httpclient"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/fetcher"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/locations"
	h3mapper "github.com/mohammed-shakir/mgnrega-tracker/internal/mapper/h3"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/mongostore"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/performance"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/refresh"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/store"
	_ "github.com/mohammed-shakir/mgnrega-tracker/internal/store/memory"
	_ "github.com/mohammed-shakir/mgnrega-tracker/internal/store/mongodb"
	_ "github.com/mohammed-shakir/mgnrega-tracker/internal/store/rediskv"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/upstream"
)

type app struct {
	mongo   *mongostore.Client
	redis   *redisstore.Client
	store   store.Store
	loc     *locations.Service
	perf    *performance.Service
	closers []func() error
}

func (a *app) close(l *slog.Logger) {
	// reverse order: sinks flush before their clients go away
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			l.Warn("shutdown", "err", err)
		}
	}
}

// wire builds every component. ctx bounds startup I/O only; runCtx lives as long as
// the process and drives background consumers.
func wire(ctx, runCtx context.Context, cfg config.Config, l *slog.Logger, reg prometheus.Registerer) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		a.close(l)
		return nil, err
	}

	if cfg.StoreDriver == "mongo" || cfg.AuditUses("mongo") || cfg.Geo.Source == "mongo" {
		c, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return fail(err)
		}
		a.mongo = c
		a.closers = append(a.closers, func() error {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return c.Close(cctx)
		})
	}
	if cfg.StoreDriver == "redis" {
		c, err := redisstore.New(ctx, cfg.RedisAddr)
		if err != nil {
			return fail(fmt.Errorf("redis client: %w", err))
		}
		a.redis = c
		a.closers = append(a.closers, c.Close)
	}

	src := locations.Static
	if cfg.Geo.Source == "mongo" {
		ms := locations.NewMongoSource(a.mongo)
		if err := ms.EnsureIndexes(ctx); err != nil {
			return fail(err)
		}
		src = ms
	}
	loc, err := locations.New(ctx, src, h3mapper.New(), locations.Config{
		MaxRadiusKm:     cfg.Geo.MaxRadiusKm,
		H3Res:           cfg.Geo.H3Res,
		SearchCacheSize: cfg.SearchCacheSize,
		SearchCacheTTL:  cfg.SearchCacheTTL,
	}, l.With("component", "locations"))
	if err != nil {
		return fail(err)
	}
	a.loc = loc

	prov, err := newProvider(cfg, loc)
	if err != nil {
		return fail(err)
	}
	sink, err := newSink(ctx, cfg, a, l)
	if err != nil {
		return fail(err)
	}

	st, err := store.Open(ctx, cfg.StoreDriver, store.Deps{Mongo: a.mongo, Redis: a.redis})
	if err != nil {
		return fail(err)
	}
	a.store = st
	a.closers = append(a.closers, func() error { return st.Close(context.Background()) })

	fx := fetcher.New(prov, sink, fetcher.Config{
		MaxRetries: cfg.Upstream.RetryAttempts,
		Timeout:    cfg.Upstream.Timeout,
		Backoff:    cfg.Upstream.RetryBackoff,
	}, l.With("component", "fetcher"))

	a.perf = performance.New(st, fx, performance.Config{
		CacheDuration: cfg.CacheDuration,
		StaleMaxAge:   cfg.StaleMaxAge,
		Coalesce:      cfg.CoalesceFetches,
		StoreTimeout:  cfg.StoreOpTimeout,
	}, l.With("component", "performance"))

	if cfg.Refresh.Driver == "kafka" {
		brokers := cfg.KafkaBrokers()
		if len(brokers) == 0 {
			return fail(errors.New("KAFKA_BROKERS is empty"))
		}
		rr := refresh.New(refresh.Config{
			Brokers:       brokers,
			Topic:         cfg.Refresh.Topic,
			GroupID:       cfg.Refresh.GroupID,
			InitialOldest: cfg.Refresh.InitialOldest,
		}, a.perf, refresh.Options{Logger: l.With("component", "refresh"), Register: reg})
		if err := rr.Start(runCtx); err != nil {
			return fail(err)
		}
		// stops before the store closes
		a.closers = append(a.closers, rr.Close)
	}
	return a, nil
}

func newProvider(cfg config.Config, loc *locations.Service) (upstream.Provider, error) {
	var p upstream.Provider
	switch cfg.Upstream.Driver {
	case "http":
		h, err := upstream.NewHTTP(httpclient.NewOutbound(cfg.Upstream.Timeout),
			cfg.Upstream.BaseURL, cfg.Upstream.ResourceID, cfg.Upstream.APIKey, loc.Lookup)
		if err != nil {
			return nil, err
		}
		p = h
	default:
		p = upstream.NewMock(loc.Lookup)
	}
	if cfg.Upstream.BreakerEnabled {
		p = upstream.WithBreaker(p, upstream.DefaultBreakerConfig(p.Name()))
	}
	return p, nil
}

// newSink builds one sink per AUDIT_DRIVER entry; several entries fan out through audit.Multi.
func newSink(ctx context.Context, cfg config.Config, a *app, l *slog.Logger) (audit.Sink, error) {
	var sinks []audit.Sink
	for _, d := range cfg.AuditDrivers() {
		s, err := newSingleSink(ctx, d, cfg, a, l)
		if err != nil {
			return nil, fmt.Errorf("audit %s: %w", d, err)
		}
		sinks = append(sinks, s)
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return audit.Multi(sinks...), nil
}

func newSingleSink(ctx context.Context, driver string, cfg config.Config, a *app, l *slog.Logger) (audit.Sink, error) {
	switch driver {
	case "none":
		return audit.Discard, nil
	case "mongo":
		ms := audit.NewMongoSink(a.mongo.Collection(mongostore.APILogCollection))
		if err := ms.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		as := audit.NewAsync("mongo", ms, cfg.Audit.QueueSize, l)
		a.closers = append(a.closers, func() error { as.Close(); return nil })
		return as, nil
	case "kafka":
		brokers := cfg.KafkaBrokers()
		if len(brokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is empty")
		}
		ks, err := audit.NewKafkaSink(brokers, cfg.Audit.Topic, cfg.Audit.QueueSize, l)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, ks.Close)
		return ks, nil
	default:
		return audit.NewLogSink(l.With("component", "audit")), nil
	}
}
