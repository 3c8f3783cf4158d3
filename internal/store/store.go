// Package store persists performance records keyed by (state, district, fiscal year, month).
package store

import (
	"context"
	"time"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
)

// Store is implemented once per backing store. Upsert replaces the whole record for its
// key; concurrent upserts to one key are last-write-wins.
type Store interface {
	// Find returns the record for key regardless of age.
	Find(ctx context.Context, key model.PerformanceKey) (model.PerformanceRecord, bool, error)
	// FindFresh returns the record only if now-lastUpdated <= maxAge.
	FindFresh(ctx context.Context, key model.PerformanceKey, maxAge time.Duration) (model.PerformanceRecord, bool, error)
	// Upsert stamps lastUpdated=now and isCached=true and returns what was stored.
	Upsert(ctx context.Context, rec model.PerformanceRecord) (model.PerformanceRecord, error)
	// History returns up to limit records for a district, newest fiscal period first.
	// limit <= 0 returns every record.
	History(ctx context.Context, stateCode, districtCode string, limit int) ([]model.PerformanceRecord, error)
	// Compare returns every district of a state for one period, by district name.
	Compare(ctx context.Context, stateCode, fiscalYear, month string) ([]model.PerformanceRecord, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type Options struct {
	Now func() time.Time
}

func (o Options) Clock() func() time.Time {
	if o.Now != nil {
		return o.Now
	}
	return time.Now
}

// Prepare validates rec and applies the stamps every backend writes on upsert.
func Prepare(rec model.PerformanceRecord, now time.Time) (model.PerformanceRecord, error) {
	if err := rec.Key().Validate(); err != nil {
		return model.PerformanceRecord{}, err
	}
	rec = rec.Normalize()
	rec.LastUpdated = now.UTC()
	rec.IsCached = true
	rec.Stale = false
	return rec, nil
}

func Limit[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
