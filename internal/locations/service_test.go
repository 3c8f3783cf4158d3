package locations

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/geo"
	h3mapper "github.com/mohammed-shakir/mgnrega-tracker/internal/mapper/h3"
)

func newService(t *testing.T, src Source, radius float64) *Service {
	t.Helper()
	s, err := New(context.Background(), src, h3mapper.New(), Config{MaxRadiusKm: radius, H3Res: 5}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// mutableSource lets a test swap the district list between reloads.
type mutableSource struct {
	mu   sync.Mutex
	locs []model.DistrictLocation
}

func (m *mutableSource) Load(context.Context) ([]model.DistrictLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.DistrictLocation(nil), m.locs...), nil
}

func (m *mutableSource) set(locs []model.DistrictLocation) {
	m.mu.Lock()
	m.locs = locs
	m.mu.Unlock()
}

func TestStates(t *testing.T) {
	s := newService(t, Static, 100)
	st := s.States()
	if len(st) != 1 || st[0].Code != "MH" || st[0].Name != "Maharashtra" {
		t.Fatalf("states=%v", st)
	}
}

func TestDistrictsByState_SortedByName(t *testing.T) {
	s := newService(t, Static, 100)
	got, err := s.DistrictsByState("mh")
	if err != nil {
		t.Fatalf("DistrictsByState: %v", err)
	}
	if len(got) != 36 {
		t.Fatalf("districts=%d want 36", len(got))
	}
	if got[0].DistrictName != "Ahmednagar" || got[len(got)-1].DistrictName != "Yavatmal" {
		t.Fatalf("order first=%s last=%s", got[0].DistrictName, got[len(got)-1].DistrictName)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].DistrictName > got[i].DistrictName {
			t.Fatalf("not sorted at %d: %s > %s", i, got[i-1].DistrictName, got[i].DistrictName)
		}
	}
	if got[0].Cell == "" {
		t.Fatal("districts should carry an h3 cell")
	}

	if _, err := s.DistrictsByState("KA"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("unknown state want ErrNotFound, got %v", err)
	}
}

func TestDistrict(t *testing.T) {
	s := newService(t, Static, 100)
	d, err := s.District("mh05")
	if err != nil || d.DistrictName != "Pune" {
		t.Fatalf("District=%+v err=%v", d, err)
	}
	if _, err := s.District("MH99"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if l, ok := s.Lookup("MH01"); !ok || l.DistrictName != "Mumbai" {
		t.Fatalf("Lookup=%+v ok=%t", l, ok)
	}
}

func TestSearch(t *testing.T) {
	s := newService(t, Static, 100)

	tests := []struct {
		q    string
		want int
		err  error
	}{
		{q: "mumbai", want: 2},
		{q: "PUNE", want: 1},
		{q: "maha", want: 36},
		{q: "zz", want: 0},
		{q: "a", err: model.ErrValidation},
		{q: "  p ", err: model.ErrValidation},
		{q: "", err: model.ErrValidation},
	}
	for _, tc := range tests {
		got, err := s.Search(tc.q)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("Search(%q) err=%v want %v", tc.q, err, tc.err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Search(%q): %v", tc.q, err)
		}
		if len(got) != tc.want {
			t.Fatalf("Search(%q) len=%d want %d", tc.q, len(got), tc.want)
		}
	}

	got, _ := s.Search("mumbai")
	if got[0].DistrictName != "Mumbai" || got[1].DistrictName != "Mumbai Suburban" {
		t.Fatalf("search order %v", got)
	}
}

func TestSearch_MemoClearedOnReload(t *testing.T) {
	src := &mutableSource{locs: geo.Districts()}
	s := newService(t, src, 100)

	if got, _ := s.Search("pune"); len(got) != 1 {
		t.Fatalf("first search len=%d", len(got))
	}
	// results handed out must not alias the memo
	got, _ := s.Search("pune")
	got[0].DistrictName = "mutated"
	if again, _ := s.Search("pune"); again[0].DistrictName != "Pune" {
		t.Fatalf("memo aliased caller slice: %v", again)
	}

	var without []model.DistrictLocation
	for _, l := range geo.Districts() {
		if l.DistrictCode != "MH05" {
			without = append(without, l)
		}
	}
	src.set(without)
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got, _ := s.Search("pune"); len(got) != 0 {
		t.Fatalf("stale memo after reload: %v", got)
	}
}

func TestInactiveDistrictsHidden(t *testing.T) {
	locs := geo.Districts()
	locs[0].IsActive = false // Mumbai
	s := newService(t, &mutableSource{locs: locs}, 100)

	if _, err := s.District("MH01"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("inactive district visible: %v", err)
	}
	nd, found, err := s.Detect(context.Background(), 19.0760, 72.8777)
	if err != nil || !found {
		t.Fatalf("Detect found=%t err=%v", found, err)
	}
	if nd.DistrictCode == "MH01" {
		t.Fatal("inactive district detected")
	}
}

func TestDetect(t *testing.T) {
	ctx := context.Background()

	s := newService(t, Static, 100)
	nd, found, err := s.Detect(ctx, 19.0760, 72.8777)
	if err != nil || !found {
		t.Fatalf("Detect Mumbai found=%t err=%v", found, err)
	}
	if nd.DistrictCode != "MH01" || nd.DistanceKm != 0 || nd.Cell == "" {
		t.Fatalf("Detect Mumbai=%+v", nd)
	}

	// roughly 150 km west of Mumbai, over the sea
	if _, found, err := s.Detect(ctx, 19.0, 71.45); err != nil || found {
		t.Fatalf("100 km radius found=%t err=%v", found, err)
	}
	wide := newService(t, Static, 200)
	nd, found, err = wide.Detect(ctx, 19.0, 71.45)
	if err != nil || !found {
		t.Fatalf("200 km radius found=%t err=%v", found, err)
	}
	if nd.DistrictCode != "MH01" || math.Abs(nd.DistanceKm-150.3) > 0.5 {
		t.Fatalf("200 km radius=%+v", nd)
	}

	for _, c := range [][2]float64{{91, 0}, {0, -181}, {math.NaN(), 0}} {
		if _, _, err := s.Detect(ctx, c[0], c[1]); !errors.Is(err, model.ErrValidation) {
			t.Fatalf("Detect(%v) want ErrValidation, got %v", c, err)
		}
	}
}

func TestDetect_TieKeepsSourceOrder(t *testing.T) {
	locs := []model.DistrictLocation{
		{StateCode: "XX", StateName: "Test", DistrictCode: "XX02", DistrictName: "Second", Latitude: 10, Longitude: 10, IsActive: true},
		{StateCode: "XX", StateName: "Test", DistrictCode: "XX01", DistrictName: "First", Latitude: 10, Longitude: 10, IsActive: true},
	}
	s := newService(t, &mutableSource{locs: locs}, 100)
	nd, found, err := s.Detect(context.Background(), 10.1, 10.1)
	if err != nil || !found || nd.DistrictCode != "XX02" {
		t.Fatalf("tie winner=%+v found=%t err=%v", nd, found, err)
	}
}

func TestNew_SourceError(t *testing.T) {
	boom := SourceFunc(func(context.Context) ([]model.DistrictLocation, error) {
		return nil, errors.New("db down")
	})
	if _, err := New(context.Background(), boom, nil, Config{}, nil); err == nil {
		t.Fatal("expected load error")
	}
}

func TestPing_FailsWithoutActiveDistricts(t *testing.T) {
	src := &mutableSource{}
	src.set(geo.Districts())
	s := newService(t, src, 100)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping with 36 districts: %v", err)
	}

	inactive := geo.Districts()
	for i := range inactive {
		inactive[i].IsActive = false
	}
	src.set(inactive)
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("Ping should fail once no district is active")
	}
}
