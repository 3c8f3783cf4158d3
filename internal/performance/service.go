// Package performance serves district performance records from the store, refreshing
// from upstream when the stored copy is older than the cache window and falling back
// to the stored copy when upstream fails.
package performance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/observability"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/logger"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/store"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/upstream"
)

// Fetcher is satisfied by *fetcher.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, key model.PerformanceKey) (upstream.Payload, error)
}

type Config struct {
	CacheDuration time.Duration
	// StaleMaxAge bounds how old a fallback record may be; 0 serves any age.
	StaleMaxAge time.Duration
	// Coalesce shares one upstream fetch between concurrent misses of a key.
	Coalesce bool
	// StoreTimeout bounds each store call; 0 disables.
	StoreTimeout time.Duration
}

type Service struct {
	store store.Store
	fetch Fetcher
	cfg   Config
	l     *slog.Logger
	now   func() time.Time

	group singleflight.Group
}

func New(st store.Store, f Fetcher, cfg Config, l *slog.Logger) *Service {
	if cfg.CacheDuration <= 0 {
		cfg.CacheDuration = 24 * time.Hour
	}
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	return &Service{store: st, fetch: f, cfg: cfg, l: l, now: time.Now}
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

// Get returns the record for key: the stored copy when fresh, otherwise a new upstream
// fetch, otherwise the stored copy marked stale. It fails with *model.DataUnavailableError
// only when none of those exist.
func (s *Service) Get(ctx context.Context, key model.PerformanceKey) (model.PerformanceRecord, error) {
	if err := key.Validate(); err != nil {
		return model.PerformanceRecord{}, err
	}
	ctx = logger.WithDistrict(logger.WithComponent(ctx, "performance"), key.DistrictCode)

	sctx, cancel := s.storeCtx(ctx)
	rec, ok, err := s.store.FindFresh(sctx, key, s.cfg.CacheDuration)
	cancel()
	if err != nil {
		// a broken store read is treated as a miss; upstream may still answer
		s.l.WarnContext(ctx, "fresh lookup failed", "key", key.String(), "err", err)
	}
	if ok {
		observability.IncLookup("hit")
		s.l.DebugContext(logger.WithCacheStatus(ctx, "hit"), "serving cached record", "key", key.String())
		rec.IsCached = true
		return rec, nil
	}

	rec, ferr := s.refresh(ctx, key)
	if ferr == nil {
		observability.IncLookup("miss")
		s.l.DebugContext(logger.WithCacheStatus(ctx, "miss"), "served upstream record", "key", key.String())
		return rec, nil
	}
	return s.fallback(ctx, key, ferr)
}

func (s *Service) refresh(ctx context.Context, key model.PerformanceKey) (model.PerformanceRecord, error) {
	if !s.cfg.Coalesce {
		return s.fetchAndStore(ctx, key)
	}
	// the shared call outlives any single waiter; each waiter still honours its own ctx
	ch := s.group.DoChan(key.String(), func() (any, error) {
		return s.fetchAndStore(context.WithoutCancel(ctx), key)
	})
	select {
	case <-ctx.Done():
		return model.PerformanceRecord{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return model.PerformanceRecord{}, res.Err
		}
		return res.Val.(model.PerformanceRecord), nil
	}
}

func (s *Service) fetchAndStore(ctx context.Context, key model.PerformanceKey) (model.PerformanceRecord, error) {
	p, err := s.fetch.Fetch(ctx, key)
	if err != nil {
		return model.PerformanceRecord{}, err
	}
	rec := p.Record
	rec.StateCode, rec.DistrictCode = key.StateCode, key.DistrictCode
	rec.FiscalYear, rec.Month = key.FiscalYear, key.Month

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	stored, err := s.store.Upsert(sctx, rec)
	if err != nil {
		// the caller still gets the fetched data; the next request refetches
		s.l.ErrorContext(ctx, "persisting fetched record failed", "key", key.String(), "err", err)
		stored = rec.Normalize()
		stored.LastUpdated = s.now().UTC()
	}
	stored.IsCached = false
	stored.Stale = false
	return stored, nil
}

func (s *Service) fallback(ctx context.Context, key model.PerformanceKey, cause error) (model.PerformanceRecord, error) {
	sctx, cancel := s.storeCtx(context.WithoutCancel(ctx))
	rec, ok, err := s.store.Find(sctx, key)
	cancel()
	if err != nil {
		cause = errors.Join(cause, err)
	}
	if ok && s.withinStaleCeiling(rec) {
		observability.IncLookup("stale")
		s.l.WarnContext(logger.WithCacheStatus(ctx, "stale"), "upstream unavailable; serving stale record",
			"key", key.String(), "last_updated", rec.LastUpdated, "err", cause)
		rec.IsCached = true
		rec.Stale = true
		return rec, nil
	}
	observability.IncLookup("unavailable")
	s.l.ErrorContext(ctx, "no data available", "key", key.String(), "err", cause)
	return model.PerformanceRecord{}, &model.DataUnavailableError{Key: key, Cause: cause}
}

// Refresh fetches key from upstream and stores it regardless of the stored copy's age.
// Unlike Get it never falls back to stored data.
func (s *Service) Refresh(ctx context.Context, key model.PerformanceKey) (model.PerformanceRecord, error) {
	if err := key.Validate(); err != nil {
		return model.PerformanceRecord{}, err
	}
	ctx = logger.WithDistrict(logger.WithComponent(ctx, "performance"), key.DistrictCode)
	rec, err := s.refresh(ctx, key)
	if err != nil {
		observability.IncLookup("refresh_failed")
		return model.PerformanceRecord{}, err
	}
	observability.IncLookup("refreshed")
	s.l.InfoContext(ctx, "record refreshed", "key", key.String())
	return rec, nil
}

func (s *Service) withinStaleCeiling(rec model.PerformanceRecord) bool {
	if s.cfg.StaleMaxAge <= 0 {
		return true
	}
	return rec.IsFresh(s.now(), s.cfg.StaleMaxAge)
}

// History is a read-through query; it never triggers a fetch.
func (s *Service) History(ctx context.Context, stateCode, districtCode string, limit int) ([]model.PerformanceRecord, error) {
	if stateCode == "" || districtCode == "" {
		return nil, &model.ValidationError{Field: "districtCode", Message: "stateCode and districtCode are required"}
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.store.History(sctx, stateCode, districtCode, limit)
}

// Compare is a read-through query; it never triggers a fetch.
func (s *Service) Compare(ctx context.Context, stateCode, fiscalYear, month string) ([]model.PerformanceRecord, error) {
	month = model.CanonicalMonth(month)
	if stateCode == "" || fiscalYear == "" || month == "" {
		return nil, &model.ValidationError{Field: "period", Message: "stateCode, financialYear and month are required"}
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.store.Compare(sctx, stateCode, fiscalYear, month)
}

func (s *Service) Ping(ctx context.Context) error {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.store.Ping(sctx)
}
