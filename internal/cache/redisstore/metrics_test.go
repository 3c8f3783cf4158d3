package redisstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/observability"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/metrics"
)

func Test_RedisMetrics_RecordsClientOps(t *testing.T) {
	mr, _ := miniredis.Run()
	defer mr.Close()

	p := metrics.Init(metrics.Config{})
	observability.Init(p.Registerer(), true)

	ctx := context.Background()
	c, err := New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("new redis: %v", err)
	}
	defer func() {
		if cerr := c.Close(); cerr != nil {
			t.Fatalf("close redis client: %v", cerr)
		}
	}()

	_ = c.PutIndexed(ctx, "k:hit", []byte("v"), "idx")
	_, _ = c.MGet(ctx, []string{"k:hit", "k:miss"})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	body := rr.Body.String()

	for _, want := range []string{
		`store_operation_duration_seconds_count{backend="redis_client",op="mget",result="ok"}`,
		`store_operation_duration_seconds_count{backend="redis_client",op="put_indexed",result="ok"}`,
		`store_operation_duration_seconds_count{backend="redis_client",op="ping",result="ok"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %s\n%s", want, body)
		}
	}
}
