package store

import (
	"context"
	"time"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/observability"
)

type instrumented struct {
	backend string
	next    Store
}

// Instrument records store_operation_duration_seconds for every call on s.
func Instrument(backend string, s Store) Store {
	return &instrumented{backend: backend, next: s}
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	observability.ObserveStoreOp(i.backend, op, err, time.Since(start).Seconds())
}

func (i *instrumented) Find(ctx context.Context, key model.PerformanceKey) (model.PerformanceRecord, bool, error) {
	start := time.Now()
	r, ok, err := i.next.Find(ctx, key)
	i.observe("find", start, err)
	return r, ok, err
}

func (i *instrumented) FindFresh(ctx context.Context, key model.PerformanceKey, maxAge time.Duration) (model.PerformanceRecord, bool, error) {
	start := time.Now()
	r, ok, err := i.next.FindFresh(ctx, key, maxAge)
	i.observe("find_fresh", start, err)
	return r, ok, err
}

func (i *instrumented) Upsert(ctx context.Context, rec model.PerformanceRecord) (model.PerformanceRecord, error) {
	start := time.Now()
	r, err := i.next.Upsert(ctx, rec)
	i.observe("upsert", start, err)
	return r, err
}

func (i *instrumented) History(ctx context.Context, stateCode, districtCode string, limit int) ([]model.PerformanceRecord, error) {
	start := time.Now()
	r, err := i.next.History(ctx, stateCode, districtCode, limit)
	i.observe("history", start, err)
	return r, err
}

func (i *instrumented) Compare(ctx context.Context, stateCode, fiscalYear, month string) ([]model.PerformanceRecord, error) {
	start := time.Now()
	r, err := i.next.Compare(ctx, stateCode, fiscalYear, month)
	i.observe("compare", start, err)
	return r, err
}

func (i *instrumented) Ping(ctx context.Context) error {
	start := time.Now()
	err := i.next.Ping(ctx)
	i.observe("ping", start, err)
	return err
}

func (i *instrumented) Close(ctx context.Context) error { return i.next.Close(ctx) }
