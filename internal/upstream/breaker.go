package upstream

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/observability"
)

type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

type breakerProvider struct {
	next Provider
	cb   *gobreaker.CircuitBreaker[Payload]
}

// WithBreaker wraps p so that consecutive failures open the circuit and later calls fail
// fast with gobreaker.ErrOpenState until the open timeout elapses.
func WithBreaker(p Provider, cfg BreakerConfig) Provider {
	if cfg.Name == "" {
		cfg.Name = p.Name()
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, _, to gobreaker.State) {
			observability.SetBreakerState(name, breakerGauge(to))
		},
	}
	observability.SetBreakerState(cfg.Name, 0)
	return &breakerProvider{next: p, cb: gobreaker.NewCircuitBreaker[Payload](st)}
}

func breakerGauge(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func (b *breakerProvider) Name() string { return b.next.Name() }

func (b *breakerProvider) Request(key model.PerformanceKey) Request { return b.next.Request(key) }

func (b *breakerProvider) Fetch(ctx context.Context, req Request) (Payload, error) {
	return b.cb.Execute(func() (Payload, error) {
		return b.next.Fetch(ctx, req)
	})
}
