package fetcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/audit"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/upstream"
)

type scripted struct {
	mu    sync.Mutex
	errs  []error // one per call; nil means success; past the end succeeds
	calls int
	block bool
}

func (s *scripted) Name() string { return "scripted" }

func (s *scripted) Request(k model.PerformanceKey) upstream.Request {
	return upstream.Request{Key: k, Endpoint: "test://perf/" + k.String(), Method: http.MethodGet}
}

func (s *scripted) Fetch(ctx context.Context, req upstream.Request) (upstream.Payload, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return upstream.Payload{}, ctx.Err()
	}
	if i < len(s.errs) && s.errs[i] != nil {
		return upstream.Payload{}, s.errs[i]
	}
	return upstream.Payload{StatusCode: 200, Record: model.PerformanceRecord{DistrictCode: req.Key.DistrictCode}}, nil
}

type recorder struct {
	mu   sync.Mutex
	recs []model.ApiCallRecord
	err  error
}

func (r *recorder) Record(_ context.Context, rec model.ApiCallRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	return r.err
}

func testKey(t *testing.T) model.PerformanceKey {
	t.Helper()
	k, err := model.NewPerformanceKey("MH", "MH05", "2024-25", "October")
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func newTestFetcher(p upstream.Provider, sink audit.Sink, cfg Config) (*Fetcher, *[]time.Duration) {
	f := New(p, sink, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	var waits []time.Duration
	f.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return f, &waits
}

func TestFetch_FailTwiceThenSucceed_ThreeAuditRecords(t *testing.T) {
	p := &scripted{errs: []error{errors.New("reset"), &upstream.StatusError{StatusCode: 502}}}
	rec := &recorder{}
	f, waits := newTestFetcher(p, rec, Config{MaxRetries: 3, Timeout: time.Second, Backoff: 2 * time.Second})

	got, err := f.Fetch(context.Background(), testKey(t))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.Record.DistrictCode != "MH05" {
		t.Fatalf("payload=%+v", got)
	}
	if len(rec.recs) != 3 {
		t.Fatalf("audit records=%d want 3", len(rec.recs))
	}
	wantOK := []bool{false, false, true}
	wantStatus := []int{0, 502, 200}
	for i, r := range rec.recs {
		if r.Success != wantOK[i] || r.StatusCode != wantStatus[i] || r.Attempt != i+1 {
			t.Fatalf("record %d = %+v", i, r)
		}
		if !r.Success && r.Error == "" {
			t.Fatalf("record %d: failure without error message", i)
		}
		if r.Endpoint == "" || r.Method != http.MethodGet {
			t.Fatalf("record %d missing endpoint/method: %+v", i, r)
		}
	}
	// constant, not exponential
	if len(*waits) != 2 || (*waits)[0] != 2*time.Second || (*waits)[1] != 2*time.Second {
		t.Fatalf("waits=%v want [2s 2s]", *waits)
	}
}

func TestFetch_ExhaustedRetries_ReturnsUpstreamError(t *testing.T) {
	fail := &upstream.StatusError{StatusCode: 503}
	p := &scripted{errs: []error{fail, fail, fail, fail, fail}}
	rec := &recorder{}
	f, _ := newTestFetcher(p, rec, Config{MaxRetries: 3, Backoff: time.Millisecond})

	_, err := f.Fetch(context.Background(), testKey(t))
	var ue *model.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("want *UpstreamError, got %T %v", err, err)
	}
	if ue.Attempts != 4 || ue.StatusCode != 503 || p.calls != 4 {
		t.Fatalf("attempts=%d status=%d calls=%d", ue.Attempts, ue.StatusCode, p.calls)
	}
	if !errors.Is(err, model.ErrUpstream) {
		t.Fatal("error should match ErrUpstream")
	}
	if len(rec.recs) != 4 {
		t.Fatalf("audit records=%d want 4", len(rec.recs))
	}
}

func TestFetch_ZeroRetriesMeansSingleAttempt(t *testing.T) {
	p := &scripted{errs: []error{errors.New("x")}}
	f, waits := newTestFetcher(p, nil, Config{MaxRetries: 0})
	if _, err := f.Fetch(context.Background(), testKey(t)); err == nil {
		t.Fatal("expected error")
	}
	if p.calls != 1 || len(*waits) != 0 {
		t.Fatalf("calls=%d waits=%v", p.calls, *waits)
	}
}

func TestFetch_AuditErrorsAreSwallowed(t *testing.T) {
	p := &scripted{}
	rec := &recorder{err: errors.New("audit down")}
	f, _ := newTestFetcher(p, rec, Config{MaxRetries: 3})
	if _, err := f.Fetch(context.Background(), testKey(t)); err != nil {
		t.Fatalf("audit failure leaked into fetch: %v", err)
	}
	if len(rec.recs) != 1 {
		t.Fatalf("records=%d", len(rec.recs))
	}
}

func TestFetch_PerAttemptTimeout(t *testing.T) {
	p := &scripted{block: true}
	rec := &recorder{}
	f, _ := newTestFetcher(p, rec, Config{MaxRetries: 1, Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := f.Fetch(context.Background(), testKey(t))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
	if p.calls != 2 {
		t.Fatalf("calls=%d want 2 (timeout applies per attempt)", p.calls)
	}
	if el := time.Since(start); el > time.Second {
		t.Fatalf("took %v", el)
	}
	for _, r := range rec.recs {
		if r.StatusCode != 0 || r.Success {
			t.Fatalf("timed-out attempt recorded as %+v", r)
		}
	}
}

func TestFetch_CancelledDuringBackoffStopsRetrying(t *testing.T) {
	p := &scripted{errs: []error{errors.New("a"), errors.New("b"), errors.New("c")}}
	f := New(p, nil, Config{MaxRetries: 5, Backoff: time.Hour}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := f.Fetch(ctx, testKey(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	var ue *model.UpstreamError
	if !errors.As(err, &ue) || ue.Attempts != 1 {
		t.Fatalf("want 1 attempt before cancellation, got %+v", ue)
	}
}
