// Package model defines core domain types shared across the service.
package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// PerformanceKey identifies one district performance record for one period.
type PerformanceKey struct {
	StateCode    string
	DistrictCode string
	FiscalYear   string
	Month        string
}

func NewPerformanceKey(stateCode, districtCode, fiscalYear, month string) (PerformanceKey, error) {
	k := PerformanceKey{
		StateCode:    strings.TrimSpace(stateCode),
		DistrictCode: strings.TrimSpace(districtCode),
		FiscalYear:   strings.TrimSpace(fiscalYear),
		Month:        CanonicalMonth(month),
	}
	if err := k.Validate(); err != nil {
		return PerformanceKey{}, err
	}
	return k, nil
}

func (k PerformanceKey) Validate() error {
	switch {
	case k.StateCode == "":
		return &ValidationError{Field: "stateCode", Message: "stateCode is required"}
	case k.DistrictCode == "":
		return &ValidationError{Field: "districtCode", Message: "districtCode is required"}
	case k.FiscalYear == "":
		return &ValidationError{Field: "financialYear", Message: "financialYear is required"}
	case k.Month == "":
		return &ValidationError{Field: "month", Message: "month is required"}
	}
	return nil
}

// String form used for logging and coalescing
func (k PerformanceKey) String() string {
	return k.StateCode + "/" + k.DistrictCode + "/" + k.FiscalYear + "/" + k.Month
}

// PerformanceRecord is replaced as a whole on every write; fields are never patched.
type PerformanceRecord struct {
	StateCode    string `json:"stateCode" bson:"stateCode"`
	StateName    string `json:"stateName" bson:"stateName"`
	DistrictCode string `json:"districtCode" bson:"districtCode"`
	DistrictName string `json:"districtName" bson:"districtName"`
	FiscalYear   string `json:"financialYear" bson:"financialYear"`
	Month        string `json:"month" bson:"month"`
	MonthIndex   int    `json:"-" bson:"monthIndex"`

	TotalJobCards           int64 `json:"totalJobCards" bson:"totalJobCards"`
	ActiveJobCards          int64 `json:"activeJobCards" bson:"activeJobCards"`
	EmploymentProvided      int64 `json:"employmentProvided" bson:"employmentProvided"`
	PersonDaysGenerated     int64 `json:"personDaysGenerated" bson:"personDaysGenerated"`
	AverageDaysPerHousehold int64 `json:"averageDaysPerHousehold" bson:"averageDaysPerHousehold"`
	WorkCompleted           int64 `json:"workCompleted" bson:"workCompleted"`
	WorkInProgress          int64 `json:"workInProgress" bson:"workInProgress"`

	BudgetAllocated       float64 `json:"budgetAllocated" bson:"budgetAllocated"`
	BudgetUtilized        float64 `json:"budgetUtilized" bson:"budgetUtilized"`
	UtilizationPercentage int64   `json:"utilizationPercentage" bson:"utilizationPercentage"`
	WagesPaid             float64 `json:"wagesPaid" bson:"wagesPaid"`
	MaterialCost          float64 `json:"materialCost" bson:"materialCost"`

	LastUpdated time.Time `json:"lastUpdated" bson:"lastUpdated"`
	DataSource  string    `json:"dataSource" bson:"dataSource"`
	IsCached    bool      `json:"isCached" bson:"isCached"`

	// set only on degraded responses, never persisted
	Stale bool `json:"isStale,omitempty" bson:"-"`
}

func (r PerformanceRecord) Key() PerformanceKey {
	return PerformanceKey{
		StateCode:    r.StateCode,
		DistrictCode: r.DistrictCode,
		FiscalYear:   r.FiscalYear,
		Month:        r.Month,
	}
}

// Normalize clamps negative money figures and derives utilization and month index.
// budgetUtilized > budgetAllocated is tolerated as reported.
func (r PerformanceRecord) Normalize() PerformanceRecord {
	r.BudgetAllocated = nonNegative(r.BudgetAllocated)
	r.BudgetUtilized = nonNegative(r.BudgetUtilized)
	r.WagesPaid = nonNegative(r.WagesPaid)
	r.MaterialCost = nonNegative(r.MaterialCost)
	r.UtilizationPercentage = UtilizationPercentage(r.BudgetAllocated, r.BudgetUtilized)
	r.MonthIndex = FiscalMonthIndex(r.Month)
	return r
}

// UtilizationPercentage returns round(utilized/allocated*100), 0 when nothing was allocated.
func UtilizationPercentage(allocated, utilized float64) int64 {
	if allocated <= 0 || math.IsNaN(allocated) || math.IsNaN(utilized) {
		return 0
	}
	return int64(math.Round(utilized / allocated * 100))
}

// IsFresh reports whether the record was updated within maxAge of now (inclusive).
func (r PerformanceRecord) IsFresh(now time.Time, maxAge time.Duration) bool {
	if r.LastUpdated.IsZero() {
		return false
	}
	return now.Sub(r.LastUpdated) <= maxAge
}

func nonNegative(f float64) float64 {
	if f < 0 || math.IsNaN(f) {
		return 0
	}
	return f
}

type DistrictLocation struct {
	StateCode    string  `json:"stateCode" bson:"stateCode"`
	StateName    string  `json:"stateName" bson:"stateName"`
	DistrictCode string  `json:"districtCode" bson:"districtCode"`
	DistrictName string  `json:"districtName" bson:"districtName"`
	Latitude     float64 `json:"latitude" bson:"latitude"`
	Longitude    float64 `json:"longitude" bson:"longitude"`
	IsActive     bool    `json:"isActive" bson:"isActive"`
	Cell         string  `json:"h3Cell,omitempty" bson:"-"`
}

// NearestDistrict is a detect-my-district answer.
type NearestDistrict struct {
	DistrictLocation
	DistanceKm float64 `json:"distance"`
}

type State struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ApiCallRecord is one outbound attempt, written once and expired by the sink.
type ApiCallRecord struct {
	Endpoint       string    `json:"endpoint" bson:"endpoint"`
	Method         string    `json:"method" bson:"method"`
	StatusCode     int       `json:"statusCode" bson:"statusCode"`
	ResponseTimeMs int64     `json:"responseTime" bson:"responseTime"`
	Success        bool      `json:"success" bson:"success"`
	Error          string    `json:"error,omitempty" bson:"error,omitempty"`
	Attempt        int       `json:"attempt" bson:"attempt"`
	Timestamp      time.Time `json:"timestamp" bson:"timestamp"`
}

func (a ApiCallRecord) String() string {
	return fmt.Sprintf("%s %s status=%d ok=%t %dms", a.Method, a.Endpoint, a.StatusCode, a.Success, a.ResponseTimeMs)
}
