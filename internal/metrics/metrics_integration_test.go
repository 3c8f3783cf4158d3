package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/observability"
)

func assertHasMetricLine(t *testing.T, body, metric string, wantLabels ...string) {
	t.Helper()
	for ln := range strings.SplitSeq(body, "\n") {
		if !strings.HasPrefix(ln, metric+"{") {
			continue
		}
		ok := true
		for _, s := range wantLabels {
			if !strings.Contains(ln, s) {
				ok = false
				break
			}
		}
		if ok && (len(ln) > 0 && ln[len(ln)-1] >= '0' && ln[len(ln)-1] <= '9') {
			return
		}
	}
	t.Fatalf("expected a %s line with labels %v; got:\n%s", metric, wantLabels, body)
}

func Test_AppMetrics_CustomRegistry_Smoke(t *testing.T) {
	p := Init(Config{Build: BuildInfo{Version: "test"}})
	observability.Init(p.Registerer(), true)

	observability.IncLookup("hit")
	observability.IncLookup("stale")
	observability.ObserveUpstreamAttempt("mock", "ok", 0.002)
	observability.ObserveStoreOp("redis", "find", errors.New("boom"), 0.001)
	observability.IncAudit("kafka", "dropped")
	observability.SetBreakerState("upstream", 2)
	observability.IncDetection("out_of_range")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	body := rr.Body.String()

	assertHasMetricLine(t, body, "performance_lookups_total", `outcome="stale"`)
	assertHasMetricLine(t, body, "upstream_attempts_total", `provider="mock"`, `outcome="ok"`)
	assertHasMetricLine(t, body, "store_operation_duration_seconds_count", `backend="redis"`, `result="error"`)
	assertHasMetricLine(t, body, "audit_records_total", `sink="kafka"`, `result="dropped"`)
	assertHasMetricLine(t, body, "circuit_breaker_state", `name="upstream"`)
	assertHasMetricLine(t, body, "geo_detections_total", `result="out_of_range"`)
	assertHasMetricLine(t, body, "tracker_build_info", `version="test"`)
}
