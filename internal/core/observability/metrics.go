// Package observability holds the service's Prometheus collectors and small recording helpers.
package observability

import (
	"errors"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu      sync.RWMutex
	enabled bool

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_attempts_total",
			Help: "Upstream fetch attempts by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	upstreamLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"provider"},
	)

	performanceLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "performance_lookups_total",
			Help: "District performance lookups by outcome (hit, miss, stale, unavailable).",
		},
		[]string{"outcome"},
	)

	storeOpSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Latency of performance store operations.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"backend", "op", "result"},
	)

	auditRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_records_total",
			Help: "Upstream call audit records by sink and result (ok, error, dropped).",
		},
		[]string{"sink", "result"},
	)

	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		},
		[]string{"name"},
	)

	geoDetectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geo_detections_total",
			Help: "Nearest-district detections by result (found, out_of_range, invalid).",
		},
		[]string{"result"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDurationSeconds,
		upstreamAttemptsTotal,
		upstreamLatencySeconds,
		performanceLookupsTotal,
		storeOpSeconds,
		auditRecordsTotal,
		breakerState,
		geoDetectionsTotal,
	}
}

// Init registers every collector with reg. With on=false recording becomes a no-op.
// Calling Init again with the same registry is safe.
func Init(reg prometheus.Registerer, on bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = on
	if !on || reg == nil {
		return
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

func on() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	if !on() {
		return
	}
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

// ObserveUpstreamAttempt records one attempt; outcome is "ok", "error" or "timeout".
func ObserveUpstreamAttempt(provider, outcome string, durationSeconds float64) {
	if !on() {
		return
	}
	upstreamAttemptsTotal.WithLabelValues(provider, outcome).Inc()
	upstreamLatencySeconds.WithLabelValues(provider).Observe(durationSeconds)
}

func IncLookup(outcome string) {
	if !on() {
		return
	}
	performanceLookupsTotal.WithLabelValues(outcome).Inc()
}

func ObserveStoreOp(backend, op string, err error, durationSeconds float64) {
	if !on() {
		return
	}
	storeOpSeconds.WithLabelValues(backend, op, result(err)).Observe(durationSeconds)
}

func IncAudit(sink, res string) {
	if !on() {
		return
	}
	auditRecordsTotal.WithLabelValues(sink, res).Inc()
}

func SetBreakerState(name string, state int) {
	if !on() {
		return
	}
	breakerState.WithLabelValues(name).Set(float64(state))
}

func IncDetection(res string) {
	if !on() {
		return
	}
	geoDetectionsTotal.WithLabelValues(res).Inc()
}
