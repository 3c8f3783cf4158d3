package model

import (
	"errors"
	"fmt"
)

var (
	ErrUpstream        = errors.New("upstream unavailable")
	ErrDataUnavailable = errors.New("data unavailable")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
)

// UpstreamError is returned once every retry against the upstream has failed.
type UpstreamError struct {
	Endpoint   string
	Attempts   int
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed after %d attempt(s) (status=%d): %v",
		e.Endpoint, e.Attempts, e.StatusCode, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// DataUnavailableError means no fresh data, no stored copy and no upstream answer.
type DataUnavailableError struct {
	Key   PerformanceKey
	Cause error
}

func (e *DataUnavailableError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("no data available for %s", e.Key)
	}
	return fmt.Sprintf("no data available for %s: %v", e.Key, e.Cause)
}

func (e *DataUnavailableError) Unwrap() error { return e.Cause }

func (e *DataUnavailableError) Is(target error) bool { return target == ErrDataUnavailable }

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFound wraps ErrNotFound with a subject, e.g. NotFound("district %q", code).
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}
