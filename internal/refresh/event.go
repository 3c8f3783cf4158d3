// Package refresh consumes data-release events from Kafka and forces the named
// district records to be refetched from upstream.
package refresh

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
)

var fiscalYearRe = regexp.MustCompile(`^\d{4}-\d{2}$`)

// Event announces that upstream published new figures for some districts of one period.
// Version increases per district; replays with an old version are skipped.
type Event struct {
	Version       uint64    `json:"version"`
	StateCode     string    `json:"stateCode"`
	DistrictCodes []string  `json:"districtCodes"`
	FiscalYear    string    `json:"financialYear"`
	Month         string    `json:"month"`
	TS            time.Time `json:"ts"`
	Source        string    `json:"source,omitempty"`
}

func (e Event) Validate() error {
	if e.Version == 0 {
		return fmt.Errorf("version must be positive")
	}
	if strings.TrimSpace(e.StateCode) == "" {
		return fmt.Errorf("stateCode is required")
	}
	if len(e.DistrictCodes) == 0 {
		return fmt.Errorf("districtCodes must not be empty")
	}
	for _, d := range e.DistrictCodes {
		if strings.TrimSpace(d) == "" {
			return fmt.Errorf("districtCodes contains an empty code")
		}
	}
	if !fiscalYearRe.MatchString(strings.TrimSpace(e.FiscalYear)) {
		return fmt.Errorf("financialYear must look like 2024-25")
	}
	if model.FiscalMonthIndex(e.Month) == 0 {
		return fmt.Errorf("month %q is not a month name", e.Month)
	}
	return nil
}

// Keys expands the event into one performance key per district, dropping duplicates.
func (e Event) Keys() ([]model.PerformanceKey, error) {
	seen := make(map[string]struct{}, len(e.DistrictCodes))
	out := make([]model.PerformanceKey, 0, len(e.DistrictCodes))
	for _, d := range e.DistrictCodes {
		k, err := model.NewPerformanceKey(strings.ToUpper(e.StateCode), strings.ToUpper(d), e.FiscalYear, e.Month)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[k.String()]; dup {
			continue
		}
		seen[k.String()] = struct{}{}
		out = append(out, k)
	}
	return out, nil
}
