package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/observability"
)

var (
	ErrQueueFull = errors.New("audit queue full")
	ErrClosed    = errors.New("audit sink closed")
)

// Async moves delivery off the request path. When the queue is full the record is
// dropped and ErrQueueFull returned.
type Async struct {
	name    string
	next    Sink
	l       *slog.Logger
	timeout time.Duration
	events  chan model.ApiCallRecord
	stopped chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewAsync(name string, next Sink, queueSize int, l *slog.Logger) *Async {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	a := &Async{
		name:    name,
		next:    next,
		l:       l,
		timeout: 5 * time.Second,
		events:  make(chan model.ApiCallRecord, queueSize),
		stopped: make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *Async) loop() {
	defer close(a.stopped)
	for rec := range a.events {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := a.next.Record(ctx, rec)
		cancel()
		if err != nil {
			a.l.Warn("audit delivery failed", "sink", a.name, "endpoint", rec.Endpoint, "err", err)
			observability.IncAudit(a.name, "error")
		}
	}
}

// Record enqueues rec. After Close it returns ErrClosed.
func (a *Async) Record(_ context.Context, rec model.ApiCallRecord) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		observability.IncAudit(a.name, "dropped")
		return ErrClosed
	}
	select {
	case a.events <- rec:
		return nil
	default:
		observability.IncAudit(a.name, "dropped")
		return ErrQueueFull
	}
}

// Close drains queued records and stops the worker. It is safe to call more than once
// and concurrently with Record.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.events)
	}
	a.mu.Unlock()
	<-a.stopped
}
