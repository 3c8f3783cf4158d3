package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
)

// HTTP calls a data.gov.in style resource endpoint:
// GET {base}/resource/{id}?api-key=..&format=json&filters[field]=value
type HTTP struct {
	client     *http.Client
	base       *url.URL
	resourceID string
	apiKey     string
	lookup     DistrictLookup
	now        func() time.Time
}

func NewHTTP(client *http.Client, baseURL, resourceID, apiKey string, lookup DistrictLookup) (*HTTP, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse upstream base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream base url %q must be absolute", baseURL)
	}
	if resourceID == "" {
		return nil, errors.New("upstream resource id is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{
		client:     client,
		base:       u,
		resourceID: resourceID,
		apiKey:     apiKey,
		lookup:     lookup,
		now:        time.Now,
	}, nil
}

func (h *HTTP) Name() string { return "data.gov.in" }

// Request carries the endpoint without the api key so it can be audited.
func (h *HTTP) Request(key model.PerformanceKey) Request {
	u := *h.base
	u.Path = u.Path + "/resource/" + url.PathEscape(h.resourceID)
	return Request{Key: key, Endpoint: u.String(), Method: http.MethodGet}
}

func (h *HTTP) Fetch(ctx context.Context, req Request) (Payload, error) {
	u, err := url.Parse(req.Endpoint)
	if err != nil {
		return Payload{}, fmt.Errorf("parse endpoint: %w", err)
	}
	q := url.Values{}
	if h.apiKey != "" {
		q.Set("api-key", h.apiKey)
	}
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("filters[state_code]", req.Key.StateCode)
	q.Set("filters[district_code]", req.Key.DistrictCode)
	q.Set("filters[fin_year]", req.Key.FiscalYear)
	q.Set("filters[month]", req.Key.Month)
	u.RawQuery = q.Encode()

	hreq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), nil)
	if err != nil {
		return Payload{}, fmt.Errorf("build request: %w", err)
	}
	hreq.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(hreq)
	if err != nil {
		return Payload{}, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return Payload{}, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var body resourceResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&body); err != nil {
		return Payload{}, fmt.Errorf("decode response: %w", err)
	}
	if len(body.Records) == 0 {
		return Payload{}, &StatusError{StatusCode: http.StatusNotFound, Body: "no records for " + req.Key.String()}
	}

	rec := body.Records[0].toRecord(req.Key, h.now())
	if h.lookup != nil {
		if d, ok := h.lookup(req.Key.DistrictCode); ok {
			if rec.DistrictName == "" {
				rec.DistrictName = d.DistrictName
			}
			if rec.StateName == "" {
				rec.StateName = d.StateName
			}
		}
	}
	return Payload{StatusCode: resp.StatusCode, Record: rec.Normalize()}, nil
}

type resourceResponse struct {
	Records []resourceRecord `json:"records"`
}

type resourceRecord struct {
	StateName          string  `json:"state_name"`
	DistrictName       string  `json:"district_name"`
	TotalJobCards      flexNum `json:"Total_No_of_JobCards_issued"`
	ActiveJobCards     flexNum `json:"Total_No_of_Active_Job_Cards"`
	HouseholdsWorked   flexNum `json:"Total_Households_Worked"`
	PersonDays         flexNum `json:"Persondays_of_Central_Liability_so_far"`
	AvgDaysPerHH       flexNum `json:"Average_days_of_employment_provided_per_Household"`
	WorksCompleted     flexNum `json:"Number_of_Completed_Works"`
	WorksOngoing       flexNum `json:"Number_of_Ongoing_Works"`
	ApprovedBudget     flexNum `json:"Approved_Labour_Budget"`
	TotalExpenditure   flexNum `json:"Total_Exp"`
	Wages              flexNum `json:"Wages"`
	MaterialAndSkilled flexNum `json:"Material_and_skilled_Wages"`
}

func (r resourceRecord) toRecord(key model.PerformanceKey, now time.Time) model.PerformanceRecord {
	return model.PerformanceRecord{
		StateCode:               key.StateCode,
		StateName:               r.StateName,
		DistrictCode:            key.DistrictCode,
		DistrictName:            r.DistrictName,
		FiscalYear:              key.FiscalYear,
		Month:                   key.Month,
		TotalJobCards:           int64(r.TotalJobCards),
		ActiveJobCards:          int64(r.ActiveJobCards),
		EmploymentProvided:      int64(r.HouseholdsWorked),
		PersonDaysGenerated:     int64(r.PersonDays),
		AverageDaysPerHousehold: int64(r.AvgDaysPerHH),
		WorkCompleted:           int64(r.WorksCompleted),
		WorkInProgress:          int64(r.WorksOngoing),
		BudgetAllocated:         float64(r.ApprovedBudget),
		BudgetUtilized:          float64(r.TotalExpenditure),
		WagesPaid:               float64(r.Wages),
		MaterialCost:            float64(r.MaterialAndSkilled),
		LastUpdated:             now,
		DataSource:              "data.gov.in",
	}
}

// flexNum accepts numbers encoded as JSON numbers or strings; blanks and "NA" decode as 0.
type flexNum float64

func (f *flexNum) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if s == "" || strings.EqualFold(s, "NA") {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("number %q: %w", s, err)
		}
		*f = flexNum(v)
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*f = flexNum(v)
	return nil
}
