// Package router holds the HTTP handlers for the performance and location APIs.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
)

const defaultHistoryLimit = 12

type PerformanceService interface {
	Get(ctx context.Context, key model.PerformanceKey) (model.PerformanceRecord, error)
	History(ctx context.Context, stateCode, districtCode string, limit int) ([]model.PerformanceRecord, error)
	Compare(ctx context.Context, stateCode, fiscalYear, month string) ([]model.PerformanceRecord, error)
}

type LocationService interface {
	States() []model.State
	DistrictsByState(stateCode string) ([]model.DistrictLocation, error)
	District(districtCode string) (model.DistrictLocation, error)
	Search(q string) ([]model.DistrictLocation, error)
	Detect(ctx context.Context, lat, lon float64) (model.NearestDistrict, bool, error)
}

// PeriodFunc supplies the default (fiscal year, month) for requests that omit them.
type PeriodFunc func(now time.Time) (fiscalYear, month string)

type Handlers struct {
	perf     PerformanceService
	loc      LocationService
	period   PeriodFunc
	l        *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

func New(perf PerformanceService, loc LocationService, period PeriodFunc, l *slog.Logger) *Handlers {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		perf:     perf,
		loc:      loc,
		period:   period,
		l:        l,
		validate: newValidator(),
		now:      time.Now,
	}
}

// Mount registers the API routes on r, which is expected to be mounted at /api.
func (h *Handlers) Mount(r chi.Router) {
	r.Route("/performance", func(r chi.Router) {
		r.Get("/compare/{stateCode}", h.compare)
		r.Get("/{stateCode}/{districtCode}", h.current)
		r.Get("/{stateCode}/{districtCode}/history", h.history)
	})
	r.Route("/location", func(r chi.Router) {
		r.Get("/states", h.states)
		r.Get("/districts/{stateCode}", h.districts)
		r.Get("/district/{districtCode}", h.district)
		r.Post("/detect", h.detect)
		r.Get("/search", h.search)
	})
}

func pathCode(r *http.Request, name string) string {
	return strings.ToUpper(strings.TrimSpace(chi.URLParam(r, name)))
}

// periodFrom reads financialYear (alias fiscalYear) and month, defaulting either one.
func (h *Handlers) periodFrom(r *http.Request) (fiscalYear, month string, err error) {
	q := r.URL.Query()
	fiscalYear = strings.TrimSpace(q.Get("financialYear"))
	if fiscalYear == "" {
		fiscalYear = strings.TrimSpace(q.Get("fiscalYear"))
	}
	month = strings.TrimSpace(q.Get("month"))

	defFY, defMonth := h.period(h.now())
	if fiscalYear == "" {
		fiscalYear = defFY
	}
	if month == "" {
		month = defMonth
	}
	if err := h.validate.Struct(periodRequest{FiscalYear: fiscalYear, Month: month}); err != nil {
		return "", "", validationError(err)
	}
	return fiscalYear, model.CanonicalMonth(month), nil
}

func (h *Handlers) current(w http.ResponseWriter, r *http.Request) {
	const what = "Error fetching performance data"
	fy, month, err := h.periodFrom(r)
	if err != nil {
		fail(w, r, h.l, what, err)
		return
	}
	key, err := model.NewPerformanceKey(pathCode(r, "stateCode"), pathCode(r, "districtCode"), fy, month)
	if err != nil {
		fail(w, r, h.l, what, err)
		return
	}
	rec, err := h.perf.Get(r.Context(), key)
	if err != nil {
		fail(w, r, h.l, what, err)
		return
	}
	if rec.Stale {
		w.Header().Set("X-Data-Stale", "true")
	}
	ok(w, rec)
}

func (h *Handlers) history(w http.ResponseWriter, r *http.Request) {
	const what = "Error fetching historical data"
	req := historyRequest{Limit: defaultHistoryLimit}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			fail(w, r, h.l, what, &model.ValidationError{Field: "limit", Message: "limit must be an integer"})
			return
		}
		req.Limit = n
	}
	if err := h.validate.Struct(req); err != nil {
		fail(w, r, h.l, what, validationError(err))
		return
	}
	recs, err := h.perf.History(r.Context(), pathCode(r, "stateCode"), pathCode(r, "districtCode"), req.Limit)
	if err != nil {
		fail(w, r, h.l, what, err)
		return
	}
	ok(w, recs)
}

func (h *Handlers) compare(w http.ResponseWriter, r *http.Request) {
	const what = "Error fetching comparative data"
	fy, month, err := h.periodFrom(r)
	if err != nil {
		fail(w, r, h.l, what, err)
		return
	}
	recs, err := h.perf.Compare(r.Context(), pathCode(r, "stateCode"), fy, month)
	if err != nil {
		fail(w, r, h.l, what, err)
		return
	}
	ok(w, recs)
}

func (h *Handlers) states(w http.ResponseWriter, _ *http.Request) {
	ok(w, h.loc.States())
}

func (h *Handlers) districts(w http.ResponseWriter, r *http.Request) {
	ds, err := h.loc.DistrictsByState(pathCode(r, "stateCode"))
	if err != nil {
		fail(w, r, h.l, "Error fetching districts", err)
		return
	}
	ok(w, ds)
}

func (h *Handlers) district(w http.ResponseWriter, r *http.Request) {
	d, err := h.loc.District(pathCode(r, "districtCode"))
	if err != nil {
		fail(w, r, h.l, "Error fetching district", err)
		return
	}
	ok(w, d)
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	const what = "Error searching districts"
	req := searchRequest{Q: strings.TrimSpace(r.URL.Query().Get("q"))}
	if err := h.validate.Struct(req); err != nil {
		fail(w, r, h.l, what, validationError(err))
		return
	}
	ds, err := h.loc.Search(req.Q)
	if err != nil {
		fail(w, r, h.l, what, err)
		return
	}
	ok(w, ds)
}

func (h *Handlers) detect(w http.ResponseWriter, r *http.Request) {
	const what = "Error detecting location"
	var req detectRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	if err := dec.Decode(&req); err != nil && err != io.EOF {
		verr := &model.ValidationError{Field: "body", Message: "request body must be JSON with latitude and longitude"}
		if errors.Is(err, errBlankCoordinate) {
			verr = &model.ValidationError{Field: "latitude", Message: "Latitude and longitude are required"}
		}
		fail(w, r, h.l, what, verr)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		fail(w, r, h.l, what, validationError(err))
		return
	}

	nd, found, err := h.loc.Detect(r.Context(), float64(*req.Latitude), float64(*req.Longitude))
	if err != nil {
		fail(w, r, h.l, what, err)
		return
	}
	if !found {
		no := false
		writeJSON(w, http.StatusOK, envelope{Success: true, Detected: &no, Message: "No district found within range"})
		return
	}
	yes := true
	writeJSON(w, http.StatusOK, envelope{Success: true, Detected: &yes, Data: nd})
}
