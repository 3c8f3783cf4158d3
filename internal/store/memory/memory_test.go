package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/store"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(_ *testing.T, clock *storetest.Clock) store.Store {
		return New(store.Options{Now: clock.Now})
	})
}

func TestMemoryStore_ConcurrentUpsertsSingleRecord(t *testing.T) {
	s := New(store.Options{})
	r := storetest.Record("MH05", "Pune", "2024-25", "October")

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rr := r
			rr.TotalJobCards = int64(i)
			if _, err := s.Upsert(context.Background(), rr); err != nil {
				t.Errorf("Upsert: %v", err)
			}
		}()
	}
	wg.Wait()

	h, err := s.History(context.Background(), "MH", "MH05", 0)
	if err != nil || len(h) != 1 {
		t.Fatalf("history len=%d err=%v", len(h), err)
	}
}

func TestRegistry_OpensMemoryBackend(t *testing.T) {
	s, err := store.Open(context.Background(), "memory", store.Deps{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if _, err := store.Open(context.Background(), "sqlite", store.Deps{}); err == nil {
		t.Fatal("expected error for unregistered backend")
	}
}
