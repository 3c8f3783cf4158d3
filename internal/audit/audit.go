// Package audit delivers upstream call records to best-effort sinks.
package audit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/observability"
)

// Sink receives one record per upstream attempt. Callers log and drop its errors.
type Sink interface {
	Record(ctx context.Context, rec model.ApiCallRecord) error
}

type SinkFunc func(ctx context.Context, rec model.ApiCallRecord) error

func (f SinkFunc) Record(ctx context.Context, rec model.ApiCallRecord) error { return f(ctx, rec) }

// Discard drops every record.
var Discard Sink = SinkFunc(func(context.Context, model.ApiCallRecord) error { return nil })

type LogSink struct {
	l *slog.Logger
}

func NewLogSink(l *slog.Logger) *LogSink { return &LogSink{l: l} }

func (s *LogSink) Record(ctx context.Context, rec model.ApiCallRecord) error {
	lvl := slog.LevelInfo
	if !rec.Success {
		lvl = slog.LevelWarn
	}
	s.l.LogAttrs(ctx, lvl, "upstream call",
		slog.String("endpoint", rec.Endpoint),
		slog.String("method", rec.Method),
		slog.Int("status", rec.StatusCode),
		slog.Int64("response_ms", rec.ResponseTimeMs),
		slog.Bool("success", rec.Success),
		slog.Int("attempt", rec.Attempt),
		slog.String("error", rec.Error),
	)
	observability.IncAudit("log", "ok")
	return nil
}

type multi []Sink

// Multi fans a record out to every sink and joins their errors.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multi) Record(ctx context.Context, rec model.ApiCallRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
