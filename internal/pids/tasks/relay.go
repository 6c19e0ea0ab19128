package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"rdmrecords/internal/pids/metrics"
	"rdmrecords/internal/platform/config"
	"rdmrecords/internal/platform/kafka/producer"
	"rdmrecords/pkg/platform/uow"
)

// RelayStore is the outbox side of the relay.
type RelayStore interface {
	FetchUnpublished(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
	Backlog(ctx context.Context) (int, error)
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Publisher sends messages to the broker and waits for acknowledgement.
type Publisher interface {
	Publish(ctx context.Context, msgs ...producer.Message) error
}

// Relay moves outbox rows to Kafka. Each batch is fetched, published and
// marked in one transaction: a crash between publish and commit republishes
// the batch, which consumers absorb through their dedup cache.
type Relay struct {
	outbox    RelayStore
	publisher Publisher
	runner    uow.Runner
	topic     string
	cfg       config.OutboxConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type RelayOption func(*Relay)

func WithRelayLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) { r.logger = logger }
}

func WithRelayMetrics(m *metrics.Metrics) RelayOption {
	return func(r *Relay) { r.metrics = m }
}

func NewRelay(outbox RelayStore, publisher Publisher, runner uow.Runner, topic string, cfg config.OutboxConfig, opts ...RelayOption) *Relay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	r := &Relay{
		outbox:    outbox,
		publisher: publisher,
		runner:    runner,
		topic:     topic,
		cfg:       cfg,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays and prunes until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.relayLoop(ctx) })
	if r.cfg.Retention > 0 {
		g.Go(func() error { return r.pruneLoop(ctx) })
	}
	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (r *Relay) relayLoop(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	for {
		// Drain full batches without waiting for the next tick.
		for {
			n, err := r.RelayOnce(ctx)
			if err != nil {
				r.logger.ErrorContext(ctx, "outbox relay failed", "error", err)
				break
			}
			if n < r.cfg.BatchSize {
				break
			}
		}
		r.reportBacklog(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RelayOnce publishes one batch and returns its size.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	var published int
	err := r.runner.Run(ctx, func(ctx context.Context) error {
		entries, err := r.outbox.FetchUnpublished(ctx, r.cfg.BatchSize)
		if err != nil || len(entries) == 0 {
			return err
		}
		msgs := make([]producer.Message, len(entries))
		ids := make([]uuid.UUID, len(entries))
		for i, e := range entries {
			msgs[i] = producer.Message{
				Topic:   r.topic,
				Key:     []byte(e.Key),
				Value:   e.Payload,
				Headers: map[string]string{"task_id": e.ID.String()},
			}
			ids[i] = e.ID
		}
		if err := r.publisher.Publish(ctx, msgs...); err != nil {
			return err
		}
		if err := r.outbox.MarkPublished(ctx, ids); err != nil {
			return err
		}
		published = len(entries)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if published > 0 {
		r.metrics.AddOutboxPublished(published)
		r.logger.DebugContext(ctx, "relayed pid tasks", "count", published)
	}
	return published, nil
}

func (r *Relay) reportBacklog(ctx context.Context) {
	n, err := r.outbox.Backlog(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "outbox backlog unavailable", "error", err)
		return
	}
	r.metrics.SetOutboxBacklog(n)
}

func (r *Relay) pruneLoop(ctx context.Context) error {
	interval := r.cfg.Retention / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := r.outbox.DeletePublishedBefore(ctx, time.Now().Add(-r.cfg.Retention))
			if err != nil {
				r.logger.WarnContext(ctx, "outbox prune failed", "error", err)
				continue
			}
			if n > 0 {
				r.logger.InfoContext(ctx, "pruned published pid tasks", "count", n)
			}
		}
	}
}
