// Package fetcher calls an upstream provider with bounded retries and audits every attempt.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/audit"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/observability"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/upstream"
)

type Config struct {
	// Retries after the first attempt; 3 means at most 4 attempts.
	MaxRetries int
	Timeout    time.Duration
	// Fixed wait between attempts.
	Backoff time.Duration
}

type Fetcher struct {
	provider upstream.Provider
	sink     audit.Sink
	cfg      Config
	l        *slog.Logger

	// seams for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(p upstream.Provider, sink audit.Sink, cfg Config, l *slog.Logger) *Fetcher {
	if sink == nil {
		sink = audit.Discard
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{
		provider: p,
		sink:     sink,
		cfg:      cfg,
		l:        l,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Fetch returns the first successful payload for key. Once every attempt has failed it
// returns *model.UpstreamError. Cancelling ctx abandons remaining attempts.
func (f *Fetcher) Fetch(ctx context.Context, key model.PerformanceKey) (upstream.Payload, error) {
	req := f.provider.Request(key)
	attempts := f.cfg.MaxRetries + 1

	var lastErr error
	var lastStatus int
	made := 0
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := f.sleep(ctx, f.cfg.Backoff); err != nil {
				lastErr = fmt.Errorf("retry abandoned: %w", err)
				break
			}
		}
		made = attempt

		p, err := f.attempt(ctx, req, attempt)
		if err == nil {
			return p, nil
		}
		lastErr, lastStatus = err, upstream.StatusCode(err)

		if ctx.Err() != nil {
			lastErr = fmt.Errorf("retry abandoned: %w", errors.Join(err, ctx.Err()))
			break
		}
		if attempt < attempts {
			f.l.DebugContext(ctx, "upstream attempt failed; retrying",
				"endpoint", req.Endpoint, "attempt", attempt, "remaining", attempts-attempt, "err", err)
		}
	}

	return upstream.Payload{}, &model.UpstreamError{
		Endpoint:   req.Endpoint,
		Attempts:   made,
		StatusCode: lastStatus,
		Err:        lastErr,
	}
}

func (f *Fetcher) attempt(ctx context.Context, req upstream.Request, n int) (upstream.Payload, error) {
	actx := ctx
	cancel := func() {}
	if f.cfg.Timeout > 0 {
		actx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
	}
	defer cancel()

	start := f.now()
	p, err := f.provider.Fetch(actx, req)
	elapsed := f.now().Sub(start)

	rec := model.ApiCallRecord{
		Endpoint:       req.Endpoint,
		Method:         req.Method,
		ResponseTimeMs: elapsed.Milliseconds(),
		Success:        err == nil,
		Attempt:        n,
		Timestamp:      start.UTC(),
	}
	outcome := "ok"
	if err != nil {
		rec.StatusCode = upstream.StatusCode(err)
		rec.Error = err.Error()
		outcome = "error"
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			outcome = "timeout"
		}
	} else {
		rec.StatusCode = p.StatusCode
	}
	observability.ObserveUpstreamAttempt(f.provider.Name(), outcome, elapsed.Seconds())

	if aerr := f.sink.Record(ctx, rec); aerr != nil {
		f.l.WarnContext(ctx, "audit record dropped", "endpoint", req.Endpoint, "err", aerr)
	}
	return p, err
}
