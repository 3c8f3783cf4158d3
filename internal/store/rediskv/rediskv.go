// Package rediskv stores performance records in Redis as JSON, with set indexes for
// district history and period comparison.
package rediskv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/cache/keys"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/cache/redisstore"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/store"
)

func init() {
	store.Register("redis", func(_ context.Context, d store.Deps) (store.Store, error) {
		if d.Redis == nil {
			return nil, errors.New("redis client is required")
		}
		return New(d.Redis, d.Options), nil
	})
}

// stored form; MonthIndex is not part of the public JSON
type doc struct {
	model.PerformanceRecord
	MonthIndex int `json:"monthIndex"`
}

type Store struct {
	cli *redisstore.Client
	now func() time.Time
}

func New(cli *redisstore.Client, opts store.Options) *Store {
	return &Store{cli: cli, now: opts.Clock()}
}

func recordKey(k model.PerformanceKey) string {
	return keys.Record(k.StateCode, k.DistrictCode, k.FiscalYear, k.Month)
}

func decode(raw []byte) (model.PerformanceRecord, error) {
	var d doc
	if err := json.Unmarshal(raw, &d); err != nil {
		return model.PerformanceRecord{}, fmt.Errorf("decode performance record: %w", err)
	}
	r := d.PerformanceRecord
	r.MonthIndex = d.MonthIndex
	return r, nil
}

func (s *Store) Find(ctx context.Context, key model.PerformanceKey) (model.PerformanceRecord, bool, error) {
	raw, ok, err := s.cli.Get(ctx, recordKey(key))
	if err != nil || !ok {
		return model.PerformanceRecord{}, false, err
	}
	r, err := decode(raw)
	if err != nil {
		return model.PerformanceRecord{}, false, err
	}
	return r, true, nil
}

func (s *Store) FindFresh(ctx context.Context, key model.PerformanceKey, maxAge time.Duration) (model.PerformanceRecord, bool, error) {
	r, ok, err := s.Find(ctx, key)
	if err != nil || !ok || !r.IsFresh(s.now(), maxAge) {
		return model.PerformanceRecord{}, false, err
	}
	return r, true, nil
}

func (s *Store) Upsert(ctx context.Context, rec model.PerformanceRecord) (model.PerformanceRecord, error) {
	rec, err := store.Prepare(rec, s.now())
	if err != nil {
		return model.PerformanceRecord{}, err
	}
	b, err := json.Marshal(doc{PerformanceRecord: rec, MonthIndex: rec.MonthIndex})
	if err != nil {
		return model.PerformanceRecord{}, fmt.Errorf("encode performance record: %w", err)
	}
	err = s.cli.PutIndexed(ctx, recordKey(rec.Key()), b,
		keys.DistrictIndex(rec.StateCode, rec.DistrictCode),
		keys.PeriodIndex(rec.StateCode, rec.FiscalYear, rec.Month),
	)
	if err != nil {
		return model.PerformanceRecord{}, err
	}
	return rec, nil
}

func (s *Store) loadIndex(ctx context.Context, idx string) ([]model.PerformanceRecord, error) {
	members, err := s.cli.SMembers(ctx, idx)
	if err != nil {
		return nil, err
	}
	raw, err := s.cli.MGet(ctx, members)
	if err != nil {
		return nil, err
	}
	out := make([]model.PerformanceRecord, 0, len(raw))
	for _, m := range members {
		b, ok := raw[m]
		if !ok {
			continue
		}
		r, err := decode(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) History(ctx context.Context, stateCode, districtCode string, limit int) ([]model.PerformanceRecord, error) {
	out, err := s.loadIndex(ctx, keys.DistrictIndex(stateCode, districtCode))
	if err != nil {
		return nil, err
	}
	model.SortHistory(out)
	return store.Limit(out, limit), nil
}

func (s *Store) Compare(ctx context.Context, stateCode, fiscalYear, month string) ([]model.PerformanceRecord, error) {
	out, err := s.loadIndex(ctx, keys.PeriodIndex(stateCode, fiscalYear, month))
	if err != nil {
		return nil, err
	}
	model.SortByDistrictName(out)
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.cli.Ping(ctx) }

// Close is a no-op; the shared client is closed by its owner.
func (s *Store) Close(context.Context) error { return nil }
