package rediskv

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/cache/keys"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/cache/redisstore"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/store"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/store/storetest"
)

func newClient(t *testing.T) (*redisstore.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	cli, err := redisstore.New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("redisstore.New: %v", err)
	}
	t.Cleanup(func() { _ = cli.Close() })
	return cli, mr
}

func TestRedisStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T, clock *storetest.Clock) store.Store {
		cli, _ := newClient(t)
		return New(cli, store.Options{Now: clock.Now})
	})
}

func TestRedisStore_MonthIndexSurvivesRoundTrip(t *testing.T) {
	cli, mr := newClient(t)
	s := New(cli, store.Options{})
	ctx := context.Background()

	r := storetest.Record("MH05", "Pune", "2024-25", "January")
	if _, err := s.Upsert(ctx, r); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, ok, err := s.Find(ctx, r.Key())
	if err != nil || !ok {
		t.Fatalf("Find ok=%t err=%v", ok, err)
	}
	if got.MonthIndex != 10 {
		t.Fatalf("monthIndex=%d want 10", got.MonthIndex)
	}
	if !mr.Exists(keys.Record("MH", "MH05", "2024-25", "January")) {
		t.Fatalf("record key missing; keys=%v", mr.Keys())
	}
}

func TestRedisStore_DanglingIndexMemberIsSkipped(t *testing.T) {
	cli, mr := newClient(t)
	s := New(cli, store.Options{})
	ctx := context.Background()

	r := storetest.Record("MH05", "Pune", "2024-25", "October")
	if _, err := s.Upsert(ctx, r); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, err := mr.SAdd(keys.DistrictIndex("MH", "MH05"), "perf:rec:gone"); err != nil {
		t.Fatalf("SAdd: %v", err)
	}
	h, err := s.History(ctx, "MH", "MH05", 0)
	if err != nil || len(h) != 1 {
		t.Fatalf("history len=%d err=%v", len(h), err)
	}
}

func TestRegistry_RequiresClient(t *testing.T) {
	if _, err := store.Open(context.Background(), "redis", store.Deps{}); err == nil {
		t.Fatal("expected error without redis client")
	}
}
