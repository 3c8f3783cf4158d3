package mongodb

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/mongostore"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/store"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/store/storetest"
)

func connect(t *testing.T) *mongostore.Client {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db := fmt.Sprintf("mgnrega_store_%d", time.Now().UnixNano())
	c, err := mongostore.Connect(ctx, uri, db)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = c.Database().Drop(ctx)
		_ = c.Close(ctx)
	})
	return c
}

func TestMongoStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T, clock *storetest.Clock) store.Store {
		c := connect(t)
		s := New(c, store.Options{Now: clock.Now})
		if err := s.EnsureIndexes(context.Background()); err != nil {
			t.Fatalf("EnsureIndexes: %v", err)
		}
		return s
	})
}

func TestRegistry_RequiresClient(t *testing.T) {
	if _, err := store.Open(context.Background(), "mongo", store.Deps{}); err == nil {
		t.Fatal("expected error without mongo client")
	}
}
