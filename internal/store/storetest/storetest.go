// Package storetest is the behaviour suite every store backend must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/store"
)

// Clock is a settable time source shared between a test and the store under test.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{t: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Factory returns an empty store whose clock is clock.Now.
type Factory func(t *testing.T, clock *Clock) store.Store

var epoch = time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)

func Record(district, name, fy, month string) model.PerformanceRecord {
	return model.PerformanceRecord{
		StateCode:       "MH",
		StateName:       "Maharashtra",
		DistrictCode:    district,
		DistrictName:    name,
		FiscalYear:      fy,
		Month:           month,
		TotalJobCards:   60000,
		BudgetAllocated: 200000000,
		BudgetUtilized:  150000000,
		DataSource:      "test",
	}
}

func Run(t *testing.T, newStore Factory) {
	t.Run("FindMissing", func(t *testing.T) { findMissing(t, newStore) })
	t.Run("UpsertStamps", func(t *testing.T) { upsertStamps(t, newStore) })
	t.Run("FreshnessBoundary", func(t *testing.T) { freshnessBoundary(t, newStore) })
	t.Run("UpsertIdempotent", func(t *testing.T) { upsertIdempotent(t, newStore) })
	t.Run("LastWriteWins", func(t *testing.T) { lastWriteWins(t, newStore) })
	t.Run("HistoryFiscalOrder", func(t *testing.T) { historyOrder(t, newStore) })
	t.Run("CompareByName", func(t *testing.T) { compareByName(t, newStore) })
	t.Run("RejectsIncompleteKey", func(t *testing.T) { rejectsIncompleteKey(t, newStore) })
	t.Run("Ping", func(t *testing.T) {
		if err := newStore(t, NewClock(epoch)).Ping(context.Background()); err != nil {
			t.Fatalf("Ping: %v", err)
		}
	})
}

func mustUpsert(t *testing.T, s store.Store, r model.PerformanceRecord) model.PerformanceRecord {
	t.Helper()
	out, err := s.Upsert(context.Background(), r)
	if err != nil {
		t.Fatalf("Upsert %s: %v", r.Key(), err)
	}
	return out
}

func findMissing(t *testing.T, newStore Factory) {
	s := newStore(t, NewClock(epoch))
	k := Record("MH05", "Pune", "2024-25", "October").Key()
	if _, ok, err := s.Find(context.Background(), k); err != nil || ok {
		t.Fatalf("Find on empty store ok=%t err=%v", ok, err)
	}
	if _, ok, err := s.FindFresh(context.Background(), k, time.Hour); err != nil || ok {
		t.Fatalf("FindFresh on empty store ok=%t err=%v", ok, err)
	}
}

func upsertStamps(t *testing.T, newStore Factory) {
	clock := NewClock(epoch)
	s := newStore(t, clock)
	in := Record("MH05", "Pune", "2024-25", "October")
	in.LastUpdated = epoch.Add(-100 * time.Hour)
	in.Stale = true

	out := mustUpsert(t, s, in)
	if !out.IsCached || !out.LastUpdated.Equal(epoch) || out.Stale {
		t.Fatalf("upsert result %+v", out)
	}
	if out.UtilizationPercentage != 75 {
		t.Fatalf("utilization=%d want 75", out.UtilizationPercentage)
	}

	got, ok, err := s.Find(context.Background(), in.Key())
	if err != nil || !ok {
		t.Fatalf("Find ok=%t err=%v", ok, err)
	}
	if !got.IsCached || !got.LastUpdated.Equal(epoch) || got.Stale {
		t.Fatalf("stored %+v", got)
	}
	if got.DistrictName != "Pune" || got.TotalJobCards != 60000 || got.BudgetUtilized != 150000000 {
		t.Fatalf("fields not round-tripped: %+v", got)
	}
}

func freshnessBoundary(t *testing.T, newStore Factory) {
	clock := NewClock(epoch)
	s := newStore(t, clock)
	r := Record("MH05", "Pune", "2024-25", "October")
	mustUpsert(t, s, r)
	window := 24 * time.Hour
	ctx := context.Background()

	clock.Set(epoch.Add(window - time.Second))
	if _, ok, err := s.FindFresh(ctx, r.Key(), window); err != nil || !ok {
		t.Fatalf("just inside window: ok=%t err=%v", ok, err)
	}
	clock.Set(epoch.Add(window))
	if _, ok, err := s.FindFresh(ctx, r.Key(), window); err != nil || !ok {
		t.Fatalf("exactly at window must be fresh: ok=%t err=%v", ok, err)
	}
	clock.Set(epoch.Add(window + time.Second))
	if _, ok, err := s.FindFresh(ctx, r.Key(), window); err != nil || ok {
		t.Fatalf("just outside window: ok=%t err=%v", ok, err)
	}
	if _, ok, err := s.Find(ctx, r.Key()); err != nil || !ok {
		t.Fatalf("Find must ignore age: ok=%t err=%v", ok, err)
	}
}

func upsertIdempotent(t *testing.T, newStore Factory) {
	s := newStore(t, NewClock(epoch))
	r := Record("MH05", "Pune", "2024-25", "October")
	mustUpsert(t, s, r)
	mustUpsert(t, s, r)

	h, err := s.History(context.Background(), "MH", "MH05", 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(h) != 1 {
		t.Fatalf("records for key=%d want 1", len(h))
	}
	c, err := s.Compare(context.Background(), "MH", "2024-25", "October")
	if err != nil || len(c) != 1 {
		t.Fatalf("compare len=%d err=%v", len(c), err)
	}
}

func lastWriteWins(t *testing.T, newStore Factory) {
	clock := NewClock(epoch)
	s := newStore(t, clock)
	r := Record("MH05", "Pune", "2024-25", "October")
	mustUpsert(t, s, r)

	clock.Advance(time.Minute)
	r.TotalJobCards = 1
	r.WorkCompleted = 9
	mustUpsert(t, s, r)

	got, _, err := s.Find(context.Background(), r.Key())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.TotalJobCards != 1 || got.WorkCompleted != 9 || !got.LastUpdated.Equal(epoch.Add(time.Minute)) {
		t.Fatalf("second write not visible: %+v", got)
	}
}

func historyOrder(t *testing.T, newStore Factory) {
	s := newStore(t, NewClock(epoch))
	for _, p := range [][2]string{
		{"2024-25", "January"}, {"2023-24", "March"}, {"2024-25", "October"},
		{"2024-25", "April"}, {"2024-25", "March"}, {"2023-24", "April"},
	} {
		mustUpsert(t, s, Record("MH05", "Pune", p[0], p[1]))
	}
	// other districts must not leak in
	mustUpsert(t, s, Record("MH06", "Nashik", "2024-25", "February"))

	all, err := s.History(context.Background(), "MH", "MH05", 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	want := []string{"2024-25/March", "2024-25/January", "2024-25/October", "2024-25/April", "2023-24/March", "2023-24/April"}
	if len(all) != len(want) {
		t.Fatalf("history len=%d want %d", len(all), len(want))
	}
	for i, w := range want {
		if got := all[i].FiscalYear + "/" + all[i].Month; got != w {
			t.Fatalf("pos %d = %s want %s", i, got, w)
		}
	}

	top, err := s.History(context.Background(), "MH", "MH05", 2)
	if err != nil || len(top) != 2 || top[0].Month != "March" || top[1].Month != "January" {
		t.Fatalf("limited history=%v err=%v", top, err)
	}
	none, err := s.History(context.Background(), "MH", "MH99", 12)
	if err != nil || len(none) != 0 {
		t.Fatalf("unknown district history=%v err=%v", none, err)
	}
}

func compareByName(t *testing.T, newStore Factory) {
	s := newStore(t, NewClock(epoch))
	mustUpsert(t, s, Record("MH05", "Pune", "2024-25", "October"))
	mustUpsert(t, s, Record("MH01", "Mumbai", "2024-25", "October"))
	mustUpsert(t, s, Record("MH06", "Nashik", "2024-25", "October"))
	mustUpsert(t, s, Record("MH06", "Nashik", "2024-25", "November"))

	got, err := s.Compare(context.Background(), "MH", "2024-25", "October")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	want := []string{"Mumbai", "Nashik", "Pune"}
	if len(got) != len(want) {
		t.Fatalf("compare len=%d want 3: %+v", len(got), got)
	}
	for i, w := range want {
		if got[i].DistrictName != w {
			t.Fatalf("pos %d = %s want %s", i, got[i].DistrictName, w)
		}
	}
}

func rejectsIncompleteKey(t *testing.T, newStore Factory) {
	s := newStore(t, NewClock(epoch))
	r := Record("MH05", "Pune", "2024-25", "")
	if _, err := s.Upsert(context.Background(), r); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}
