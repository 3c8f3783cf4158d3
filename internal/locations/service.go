// Package locations answers district listing, search and nearest-district detection
// over the district master.
package locations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/observability"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/geo"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/mapper"
)

// MinQueryLen is the shortest accepted search query, in characters.
const MinQueryLen = 2

type Config struct {
	MaxRadiusKm float64
	// H3Res is the resolution of the cell attached to districts and detections.
	H3Res           int
	SearchCacheSize int
	SearchCacheTTL  time.Duration
}

type snapshot struct {
	all    []model.DistrictLocation // active districts, source order, with cells
	byCode map[string]model.DistrictLocation
	states []model.State
	index  *geo.Index
}

type Service struct {
	src  Source
	mapr mapper.Interface
	cfg  Config
	l    *slog.Logger

	mu   sync.RWMutex
	snap *snapshot

	memo *expirable.LRU[string, []model.DistrictLocation]
}

// New loads the district master from src. mapr may be nil to skip cell annotation.
func New(ctx context.Context, src Source, mapr mapper.Interface, cfg Config, l *slog.Logger) (*Service, error) {
	if cfg.MaxRadiusKm <= 0 {
		cfg.MaxRadiusKm = 100
	}
	if cfg.SearchCacheSize <= 0 {
		cfg.SearchCacheSize = 256
	}
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		src:  src,
		mapr: mapr,
		cfg:  cfg,
		l:    l,
		memo: expirable.NewLRU[string, []model.DistrictLocation](cfg.SearchCacheSize, nil, cfg.SearchCacheTTL),
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the district snapshot and clears the search memo.
func (s *Service) Reload(ctx context.Context) error {
	locs, err := s.src.Load(ctx)
	if err != nil {
		return fmt.Errorf("load districts: %w", err)
	}
	active := make([]model.DistrictLocation, 0, len(locs))
	for _, l := range locs {
		if l.IsActive && geo.ValidateCoordinates(l.Latitude, l.Longitude) == nil {
			active = append(active, l)
		}
	}
	if s.mapr != nil {
		if active, err = s.mapr.Annotate(active, s.cfg.H3Res); err != nil {
			return fmt.Errorf("annotate districts: %w", err)
		}
	}

	snap := &snapshot{
		all:    active,
		byCode: make(map[string]model.DistrictLocation, len(active)),
		index:  geo.NewIndex(active),
	}
	seen := map[string]bool{}
	for _, l := range active {
		snap.byCode[l.DistrictCode] = l
		if !seen[l.StateCode] {
			seen[l.StateCode] = true
			snap.states = append(snap.states, model.State{Code: l.StateCode, Name: l.StateName})
		}
	}
	slices.SortFunc(snap.states, func(a, b model.State) int { return strings.Compare(a.Name, b.Name) })

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	s.memo.Purge()
	s.l.InfoContext(ctx, "district master loaded", "districts", snap.index.Len(), "states", len(snap.states))
	return nil
}

func (s *Service) current() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

var errNoDistricts = errors.New("district master is empty")

// Ping reports the service not ready while the loaded snapshot holds no active districts.
func (s *Service) Ping(context.Context) error {
	if s.current().index.Len() == 0 {
		return errNoDistricts
	}
	return nil
}

func (s *Service) States() []model.State {
	return slices.Clone(s.current().states)
}

// DistrictsByState returns the active districts of stateCode sorted by name.
func (s *Service) DistrictsByState(stateCode string) ([]model.DistrictLocation, error) {
	stateCode = strings.ToUpper(strings.TrimSpace(stateCode))
	out := make([]model.DistrictLocation, 0)
	for _, l := range s.current().all {
		if l.StateCode == stateCode {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return nil, model.NotFound("state %q", stateCode)
	}
	sortByName(out)
	return out, nil
}

func (s *Service) District(districtCode string) (model.DistrictLocation, error) {
	code := strings.ToUpper(strings.TrimSpace(districtCode))
	l, ok := s.current().byCode[code]
	if !ok {
		return model.DistrictLocation{}, model.NotFound("district %q", districtCode)
	}
	return l, nil
}

// Lookup adapts the service to upstream.DistrictLookup.
func (s *Service) Lookup(districtCode string) (model.DistrictLocation, bool) {
	l, err := s.District(districtCode)
	return l, err == nil
}

// Search matches q case-insensitively against district and state names.
func (s *Service) Search(q string) ([]model.DistrictLocation, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < MinQueryLen {
		return nil, &model.ValidationError{
			Field:   "q",
			Message: fmt.Sprintf("Search query must be at least %d characters", MinQueryLen),
		}
	}
	needle := strings.ToLower(q)
	if hit, ok := s.memo.Get(needle); ok {
		return slices.Clone(hit), nil
	}
	out := make([]model.DistrictLocation, 0)
	for _, l := range s.current().all {
		if strings.Contains(strings.ToLower(l.DistrictName), needle) ||
			strings.Contains(strings.ToLower(l.StateName), needle) {
			out = append(out, l)
		}
	}
	sortByName(out)
	s.memo.Add(needle, out)
	return slices.Clone(out), nil
}

// Detect returns the nearest active district within the configured radius. found is
// false when nothing is in range.
func (s *Service) Detect(ctx context.Context, lat, lon float64) (nd model.NearestDistrict, found bool, err error) {
	if err := geo.ValidateCoordinates(lat, lon); err != nil {
		observability.IncDetection("invalid")
		return model.NearestDistrict{}, false, err
	}
	nd, found = s.current().index.FindNearest(lat, lon, s.cfg.MaxRadiusKm)
	if !found {
		observability.IncDetection("out_of_range")
		s.l.DebugContext(ctx, "no district within range", "lat", lat, "lon", lon, "radius_km", s.cfg.MaxRadiusKm)
		return model.NearestDistrict{}, false, nil
	}
	if s.mapr != nil {
		// report the caller's cell rather than the centroid's
		if cell, cerr := s.mapr.CellFor(lat, lon, s.cfg.H3Res); cerr == nil {
			nd.Cell = cell
		} else {
			s.l.WarnContext(ctx, "h3 cell for detection failed", "err", cerr)
		}
	}
	observability.IncDetection("found")
	return nd, true, nil
}

func sortByName(locs []model.DistrictLocation) {
	slices.SortStableFunc(locs, func(a, b model.DistrictLocation) int {
		if c := strings.Compare(a.DistrictName, b.DistrictName); c != 0 {
			return c
		}
		return strings.Compare(a.DistrictCode, b.DistrictCode)
	})
}
