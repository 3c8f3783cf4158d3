// Package memory is the in-process store backend, used by default and in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/store"
)

func init() {
	store.Register("memory", func(_ context.Context, d store.Deps) (store.Store, error) {
		return New(d.Options), nil
	})
}

type Store struct {
	mu   sync.RWMutex
	recs map[model.PerformanceKey]model.PerformanceRecord
	now  func() time.Time
}

func New(opts store.Options) *Store {
	return &Store{
		recs: make(map[model.PerformanceKey]model.PerformanceRecord),
		now:  opts.Clock(),
	}
}

func (s *Store) Find(_ context.Context, key model.PerformanceKey) (model.PerformanceRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recs[key]
	return r, ok, nil
}

func (s *Store) FindFresh(ctx context.Context, key model.PerformanceKey, maxAge time.Duration) (model.PerformanceRecord, bool, error) {
	r, ok, err := s.Find(ctx, key)
	if err != nil || !ok || !r.IsFresh(s.now(), maxAge) {
		return model.PerformanceRecord{}, false, err
	}
	return r, true, nil
}

func (s *Store) Upsert(_ context.Context, rec model.PerformanceRecord) (model.PerformanceRecord, error) {
	rec, err := store.Prepare(rec, s.now())
	if err != nil {
		return model.PerformanceRecord{}, err
	}
	s.mu.Lock()
	s.recs[rec.Key()] = rec
	s.mu.Unlock()
	return rec, nil
}

func (s *Store) History(_ context.Context, stateCode, districtCode string, limit int) ([]model.PerformanceRecord, error) {
	s.mu.RLock()
	out := make([]model.PerformanceRecord, 0)
	for k, r := range s.recs {
		if k.StateCode == stateCode && k.DistrictCode == districtCode {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()
	model.SortHistory(out)
	return store.Limit(out, limit), nil
}

func (s *Store) Compare(_ context.Context, stateCode, fiscalYear, month string) ([]model.PerformanceRecord, error) {
	s.mu.RLock()
	out := make([]model.PerformanceRecord, 0)
	for k, r := range s.recs {
		if k.StateCode == stateCode && k.FiscalYear == fiscalYear && k.Month == month {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()
	model.SortByDistrictName(out)
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close(context.Context) error { return nil }
