package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/observability"
)

// KafkaSink publishes records as JSON keyed by endpoint. Publishing never blocks:
// a full queue drops the record.
type KafkaSink struct {
	topic   string
	events  chan model.ApiCallRecord
	prod    sarama.AsyncProducer
	l       *slog.Logger
	stopped chan struct{}
	errDone chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewKafkaSink(brokers []string, topic string, queueSize int, l *slog.Logger) (*KafkaSink, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false
	cfg.Producer.RequiredAcks = sarama.WaitForLocal

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("audit: create async producer: %w", err)
	}
	return NewKafkaSinkWithProducer(prod, topic, queueSize, l), nil
}

// NewKafkaSinkWithProducer takes ownership of prod.
func NewKafkaSinkWithProducer(prod sarama.AsyncProducer, topic string, queueSize int, l *slog.Logger) *KafkaSink {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	s := &KafkaSink{
		topic:   topic,
		events:  make(chan model.ApiCallRecord, queueSize),
		prod:    prod,
		l:       l,
		stopped: make(chan struct{}),
		errDone: make(chan struct{}),
	}

	go func() {
		defer close(s.stopped)
		for rec := range s.events {
			b, err := json.Marshal(rec)
			if err != nil {
				s.l.Warn("audit: marshal record", "err", err)
				observability.IncAudit("kafka", "error")
				continue
			}
			s.prod.Input() <- &sarama.ProducerMessage{
				Topic: s.topic,
				Key:   sarama.StringEncoder(rec.Endpoint),
				Value: sarama.ByteEncoder(b),
			}
			observability.IncAudit("kafka", "ok")
		}
	}()

	go func() {
		defer close(s.errDone)
		for err := range s.prod.Errors() {
			if err != nil {
				s.l.Warn("audit: producer error", "err", err)
				observability.IncAudit("kafka", "error")
			}
		}
	}()

	return s
}

func (s *KafkaSink) Record(_ context.Context, rec model.ApiCallRecord) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		observability.IncAudit("kafka", "dropped")
		return ErrClosed
	}
	select {
	case s.events <- rec:
		return nil
	default:
		observability.IncAudit("kafka", "dropped")
		return ErrQueueFull
	}
}

// Close flushes queued records and closes the producer. Records arriving afterwards
// get ErrClosed.
func (s *KafkaSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()
	<-s.stopped

	if err := s.prod.Close(); err != nil {
		return fmt.Errorf("audit: close producer: %w", err)
	}
	<-s.errDone
	return nil
}
