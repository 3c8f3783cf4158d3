// Package upstream defines the performance data providers the fetcher calls.
package upstream

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
)

// Request describes one upstream call. Endpoint is safe to log and audit.
type Request struct {
	Key      model.PerformanceKey
	Endpoint string
	Method   string
}

type Payload struct {
	StatusCode int
	Record     model.PerformanceRecord
}

type Provider interface {
	Name() string
	Request(key model.PerformanceKey) Request
	Fetch(ctx context.Context, req Request) (Payload, error)
}

// StatusError is a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Body)
}

// StatusCode extracts the HTTP status carried by err, or 0 when there was no response.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// DistrictLookup resolves display names for a district code.
type DistrictLookup func(districtCode string) (model.DistrictLocation, bool)
