package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"rdmrecords/internal/pids/metrics"
	"rdmrecords/internal/platform/kafka/consumer"
)

// MessageHandler adapts the task body to Kafka. Delivery is at least once,
// so recently completed task ids are remembered and redeliveries skipped.
type MessageHandler struct {
	runner  TaskRunner
	done    *cache.Cache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type MessageHandlerOption func(*MessageHandler)

func WithDedupWindow(ttl time.Duration) MessageHandlerOption {
	return func(h *MessageHandler) { h.done = cache.New(ttl, 2*ttl) }
}

func WithMessageLogger(logger *slog.Logger) MessageHandlerOption {
	return func(h *MessageHandler) { h.logger = logger }
}

func WithMessageMetrics(m *metrics.Metrics) MessageHandlerOption {
	return func(h *MessageHandler) { h.metrics = m }
}

func NewMessageHandler(runner TaskRunner, opts ...MessageHandlerOption) *MessageHandler {
	h := &MessageHandler{
		runner: runner,
		done:   cache.New(15*time.Minute, 30*time.Minute),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle returns an error only for failures worth redelivering.
func (h *MessageHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	task, err := Decode(msg.Value)
	if err != nil {
		h.logger.ErrorContext(ctx, "malformed pid task, skipping",
			"key", string(msg.Key),
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}
	id := task.ID.String()
	if _, seen := h.done.Get(id); seen {
		h.metrics.IncDuplicateTask()
		h.logger.DebugContext(ctx, "duplicate pid task", "task_id", id)
		return nil
	}

	if _, err := h.runner.Run(ctx, task); err != nil {
		if isTransient(err) {
			return err
		}
		// Permanent provider failure: redelivery cannot fix it.
		h.done.SetDefault(id, struct{}{})
		return nil
	}
	h.done.SetDefault(id, struct{}{})
	return nil
}
