package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/logger"
)

// Refresher is satisfied by *performance.Service.
type Refresher interface {
	Refresh(ctx context.Context, key model.PerformanceKey) (model.PerformanceRecord, error)
}

type Config struct {
	Brokers       []string
	Topic         string
	GroupID       string
	InitialOldest bool

	SessionTimeout   time.Duration
	Heartbeat        time.Duration
	RebalanceTimeout time.Duration
	// PerKeyTimeout bounds one district refresh; 0 means 60s.
	PerKeyTimeout time.Duration
}

type Options struct {
	Logger   *slog.Logger
	Register prometheus.Registerer
}

type Runner struct {
	log    *slog.Logger
	cfg    Config
	target Refresher
	ms     *metricSet
	ver    *versionDedupe
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func New(cfg Config, target Refresher, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = 30 * time.Second
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 3 * time.Second
	}
	if cfg.RebalanceTimeout <= 0 {
		cfg.RebalanceTimeout = 30 * time.Second
	}
	if cfg.PerKeyTimeout <= 0 {
		cfg.PerKeyTimeout = 60 * time.Second
	}
	return &Runner{
		log:    opts.Logger,
		cfg:    cfg,
		target: target,
		ms:     newMetricSet(opts.Register),
		ver:    newVersionDedupe(8192),
	}
}

func (r *Runner) saramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Group.Session.Timeout = r.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = r.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = r.cfg.RebalanceTimeout
	if r.cfg.InitialOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Return.Errors = true
	return cfg
}

// Start joins the consumer group and processes messages in the background until
// Stop is called or ctx ends.
func (r *Runner) Start(ctx context.Context) error {
	if r.target == nil {
		return errors.New("refresh runner: refresher is required")
	}
	if len(r.cfg.Brokers) == 0 || r.cfg.Topic == "" || r.cfg.GroupID == "" {
		return errors.New("refresh runner: brokers, topic and group id are required")
	}

	group, err := sarama.NewConsumerGroup(r.cfg.Brokers, r.cfg.GroupID, r.saramaConfig())
	if err != nil {
		return fmt.Errorf("consumer group: %w", err)
	}
	r.run(ctx, group)
	return nil
}

func (r *Runner) run(ctx context.Context, group sarama.ConsumerGroup) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	h := &groupHandler{process: r.handleMessage, log: r.log}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if err := group.Close(); err != nil {
				r.log.Error("kafka consumer group close", "err", err)
			}
		}()

		for {
			if err := group.Consume(ctx, []string{r.cfg.Topic}, h); err != nil {
				r.log.Error("kafka consume error", "err", err)
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for err := range group.Errors() {
			r.log.Error("kafka group error", "err", err)
		}
	}()

	r.log.Info("refresh runner started",
		"topic", r.cfg.Topic, "group", r.cfg.GroupID, "brokers", r.cfg.Brokers)
}

func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.log.Info("refresh runner stopped")
}

// Close adapts Stop to the shutdown hook signature.
func (r *Runner) Close() error {
	r.Stop()
	return nil
}

// handleMessage returns an error only for messages that can never succeed. Refresh
// failures are logged and counted, and the message is still committed: a failed district is
// not retried from this message. Its version is forgotten so a re-published event with the
// same version applies, and Get refetches the record once it leaves the cache window.
func (r *Runner) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	start := time.Now()
	if !msg.Timestamp.IsZero() {
		r.ms.lagGauge.Set(time.Since(msg.Timestamp).Seconds())
	}

	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		r.ms.msgs.WithLabelValues("invalid").Inc()
		return fmt.Errorf("decode: %w", err)
	}
	if err := ev.Validate(); err != nil {
		r.ms.msgs.WithLabelValues("invalid").Inc()
		return fmt.Errorf("validate: %w", err)
	}
	keys, err := ev.Keys()
	if err != nil {
		r.ms.msgs.WithLabelValues("invalid").Inc()
		return fmt.Errorf("keys: %w", err)
	}

	ctx = logger.WithComponent(ctx, "refresh")
	var failed int
	for _, k := range keys {
		if !r.ver.shouldApply(k.String(), ev.Version) {
			r.ms.apply.WithLabelValues("skip_version").Inc()
			continue
		}
		kctx, cancel := context.WithTimeout(ctx, r.cfg.PerKeyTimeout)
		_, err := r.target.Refresh(kctx, k)
		cancel()
		if err != nil {
			failed++
			r.ver.forget(k.String(), ev.Version)
			r.ms.apply.WithLabelValues("error").Inc()
			r.log.WarnContext(logger.WithDistrict(ctx, k.DistrictCode), "refresh failed",
				"key", k.String(), "version", ev.Version, "err", err)
			continue
		}
		r.ms.apply.WithLabelValues("refreshed").Inc()
	}

	res := "ok"
	if failed > 0 {
		res = "error"
	}
	r.ms.msgs.WithLabelValues(res).Inc()
	r.ms.proc.Observe(time.Since(start).Seconds())
	return nil
}

type groupHandler struct {
	process func(context.Context, *sarama.ConsumerMessage) error
	log     *slog.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for msg := range claim.Messages() {
		if err := h.process(ctx, msg); err != nil {
			// poison messages are skipped; redelivery would fail the same way
			h.log.Warn("dropping undecodable refresh message",
				"partition", msg.Partition, "offset", msg.Offset, "err", err)
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
