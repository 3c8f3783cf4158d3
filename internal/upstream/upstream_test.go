package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
)

func key(t *testing.T, district string) model.PerformanceKey {
	t.Helper()
	k, err := model.NewPerformanceKey("MH", district, "2024-25", "October")
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	return k
}

func lookup(code string) (model.DistrictLocation, bool) {
	if code == "MH05" {
		return model.DistrictLocation{DistrictCode: "MH05", DistrictName: "Pune", StateName: "Maharashtra"}, true
	}
	return model.DistrictLocation{}, false
}

func TestMock_DeterministicAndConsistent(t *testing.T) {
	m := NewMock(lookup)
	k := key(t, "MH05")

	a, err := m.Fetch(context.Background(), m.Request(k))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	b, _ := m.Fetch(context.Background(), m.Request(k))
	if a.Record.TotalJobCards != b.Record.TotalJobCards || a.Record.BudgetAllocated != b.Record.BudgetAllocated {
		t.Fatal("same key must produce the same figures")
	}

	r := a.Record
	if r.DistrictName != "Pune" || r.StateName != "Maharashtra" {
		t.Fatalf("names not resolved: %+v", r)
	}
	if r.TotalJobCards < 60000 || r.TotalJobCards >= 70000 {
		t.Fatalf("totalJobCards=%d out of expected band for district 5", r.TotalJobCards)
	}
	if r.UtilizationPercentage < 59 || r.UtilizationPercentage > 90 {
		t.Fatalf("utilization=%d want 60..89", r.UtilizationPercentage)
	}
	if r.WagesPaid+r.MaterialCost != r.BudgetUtilized {
		t.Fatalf("wages+material=%v want %v", r.WagesPaid+r.MaterialCost, r.BudgetUtilized)
	}
	if r.PersonDaysGenerated != r.EmploymentProvided*r.AverageDaysPerHousehold {
		t.Fatal("person-days must be employment x average days")
	}
	if r.MonthIndex != 7 {
		t.Fatalf("record not normalized: monthIndex=%d", r.MonthIndex)
	}

	other, _ := m.Fetch(context.Background(), m.Request(key(t, "MH06")))
	if other.Record.DistrictName != "Unknown District" {
		t.Fatalf("unknown district name=%q", other.Record.DistrictName)
	}
}

func TestMock_HonoursCancelledContext(t *testing.T) {
	m := NewMock(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Fetch(ctx, m.Request(key(t, "MH01"))); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestDistrictNumber(t *testing.T) {
	cases := map[string]int{"MH07": 7, "MH36": 36, "XX": 1, "": 1, "MH00": 1}
	for in, want := range cases {
		if got := districtNumber(in); got != want {
			t.Fatalf("districtNumber(%q)=%d want %d", in, got, want)
		}
	}
}

func TestHTTP_FetchParsesStringNumbersAndFilters(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		if r.URL.Path != "/resource/abc" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"records":[{
			"state_name":"MAHARASHTRA","district_name":"",
			"Total_No_of_JobCards_issued":"61,200","Total_No_of_Active_Job_Cards":30000,
			"Approved_Labour_Budget":"200000000","Total_Exp":"150000000",
			"Wages":"105000000","Material_and_skilled_Wages":"NA"}]}`))
	}))
	defer srv.Close()

	h, err := NewHTTP(srv.Client(), srv.URL+"/", "abc", "secret", lookup)
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	req := h.Request(key(t, "MH05"))
	if strings.Contains(req.Endpoint, "secret") {
		t.Fatalf("endpoint leaks api key: %s", req.Endpoint)
	}

	p, err := h.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	for _, want := range []string{"api-key=secret", "format=json", "filters%5Bdistrict_code%5D=MH05", "filters%5Bfin_year%5D=2024-25"} {
		if !strings.Contains(gotQuery, want) {
			t.Fatalf("query %q missing %q", gotQuery, want)
		}
	}
	r := p.Record
	if r.TotalJobCards != 61200 || r.ActiveJobCards != 30000 {
		t.Fatalf("counts=%d/%d", r.TotalJobCards, r.ActiveJobCards)
	}
	if r.UtilizationPercentage != 75 {
		t.Fatalf("utilization=%d want 75", r.UtilizationPercentage)
	}
	if r.StateName != "MAHARASHTRA" || r.DistrictName != "Pune" {
		t.Fatalf("names=%q/%q", r.StateName, r.DistrictName)
	}
	if r.MaterialCost != 0 {
		t.Fatalf("NA should decode as 0, got %v", r.MaterialCost)
	}
}

func TestHTTP_NonSuccessIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	h, err := NewHTTP(srv.Client(), srv.URL, "abc", "", nil)
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	_, err = h.Fetch(context.Background(), h.Request(key(t, "MH01")))
	if got := StatusCode(err); got != http.StatusTooManyRequests {
		t.Fatalf("status=%d want 429 (err=%v)", got, err)
	}
}

func TestHTTP_EmptyRecordsIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"records":[]}`))
	}))
	defer srv.Close()

	h, _ := NewHTTP(srv.Client(), srv.URL, "abc", "", nil)
	_, err := h.Fetch(context.Background(), h.Request(key(t, "MH01")))
	if StatusCode(err) != http.StatusNotFound {
		t.Fatalf("want 404 status error, got %v", err)
	}
}

func TestNewHTTP_RejectsRelativeURL(t *testing.T) {
	if _, err := NewHTTP(nil, "/relative", "abc", "", nil); err == nil {
		t.Fatal("expected error")
	}
}

type failing struct{ calls atomic.Int32 }

func (f *failing) Name() string { return "failing" }
func (f *failing) Request(k model.PerformanceKey) Request {
	return Request{Key: k, Endpoint: "test://", Method: http.MethodGet}
}
func (f *failing) Fetch(context.Context, Request) (Payload, error) {
	f.calls.Add(1)
	return Payload{}, errors.New("down")
}

func TestWithBreaker_OpensAfterThreshold(t *testing.T) {
	inner := &failing{}
	cfg := DefaultBreakerConfig("test")
	cfg.FailureThreshold = 2
	p := WithBreaker(inner, cfg)

	req := p.Request(key(t, "MH01"))
	for range 2 {
		if _, err := p.Fetch(context.Background(), req); err == nil {
			t.Fatal("expected failure")
		}
	}
	_, err := p.Fetch(context.Background(), req)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("want ErrOpenState, got %v", err)
	}
	if n := inner.calls.Load(); n != 2 {
		t.Fatalf("inner calls=%d want 2 (open circuit must not call through)", n)
	}
	if p.Name() != "failing" {
		t.Fatalf("name=%q", p.Name())
	}
}
