package redisstore

import (
	"context"
	"sort"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

// creates new client connected to miniredis for testing
func newMini(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	rc, err := New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestPutIndexed_WritesValueAndIndexes(t *testing.T) {
	rc, mr := newMini(t)
	ctx := context.Background()

	if err := rc.PutIndexed(ctx, "k1", []byte("v1"), "idx:a", "idx:b"); err != nil {
		t.Fatalf("PutIndexed: %v", err)
	}
	if err := rc.PutIndexed(ctx, "k2", []byte("v2"), "idx:a"); err != nil {
		t.Fatalf("PutIndexed: %v", err)
	}
	// overwrite must not duplicate index membership
	if err := rc.PutIndexed(ctx, "k1", []byte("v1b"), "idx:a"); err != nil {
		t.Fatalf("PutIndexed: %v", err)
	}

	got, ok, err := rc.Get(ctx, "k1")
	if err != nil || !ok || string(got) != "v1b" {
		t.Fatalf("Get k1 = %q ok=%t err=%v", got, ok, err)
	}
	if ttl := mr.TTL("k1"); ttl != 0 {
		t.Fatalf("records must not expire, ttl=%v", ttl)
	}

	members, err := rc.SMembers(ctx, "idx:a")
	if err != nil {
		t.Fatalf("SMembers: %v", err)
	}
	sort.Strings(members)
	if len(members) != 2 || members[0] != "k1" || members[1] != "k2" {
		t.Fatalf("idx:a=%v", members)
	}
}

func TestGet_MissingIsNotAnError(t *testing.T) {
	rc, _ := newMini(t)
	_, ok, err := rc.Get(context.Background(), "nope")
	if err != nil || ok {
		t.Fatalf("ok=%t err=%v", ok, err)
	}
}

func TestMGet_FiltersMissing(t *testing.T) {
	rc, _ := newMini(t)
	ctx := context.Background()
	_ = rc.PutIndexed(ctx, "k1", []byte("v1"))
	_ = rc.PutIndexed(ctx, "k2", []byte("v2"))

	got, err := rc.MGet(ctx, []string{"k1", "k2", "missing"})
	if err != nil {
		t.Fatalf("MGet: %v", err)
	}
	if len(got) != 2 || string(got["k1"]) != "v1" || string(got["k2"]) != "v2" {
		t.Fatalf("unexpected values: %+v", got)
	}
	if empty, err := rc.MGet(ctx, nil); err != nil || len(empty) != 0 {
		t.Fatalf("empty MGet = %v, %v", empty, err)
	}
}

func TestNew_RequiresAddrAndReachableServer(t *testing.T) {
	if _, err := New(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty addr")
	}
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := New(ctx, addr, WithDialTimeout(100*time.Millisecond)); err == nil {
		t.Fatal("expected ping failure against closed server")
	}
}
