package tasks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"rdmrecords/internal/pids/providers"
)

// TaskRunner executes one task.
type TaskRunner interface {
	Run(ctx context.Context, task Task) (string, error)
}

// Dispatcher runs tasks in-process for single-process mode. It consumes from
// a buffered channel; Submit never blocks the committing request.
type Dispatcher struct {
	queue       chan Task
	runner      TaskRunner
	workers     int
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
}

type DispatcherOption func(*Dispatcher)

func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Task, n)
		}
	}
}

func WithRetry(maxAttempts int, backoff time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.maxAttempts = maxAttempts
		d.backoff = backoff
	}
}

func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

func NewDispatcher(runner TaskRunner, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		queue:       make(chan Task, 1024),
		runner:      runner,
		workers:     2,
		maxAttempts: 3,
		backoff:     200 * time.Millisecond,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Submit(task Task) bool {
	select {
	case d.queue <- task:
		return true
	default:
		return false
	}
}

// Run starts the workers and blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case task := <-d.queue:
					d.process(ctx, task)
				}
			}
		})
	}
	return g.Wait()
}

func (d *Dispatcher) process(ctx context.Context, task Task) {
	backoff := d.backoff
	for attempt := 1; ; attempt++ {
		_, err := d.runner.Run(ctx, task)
		if err == nil {
			return
		}
		if !isTransient(err) || attempt >= d.maxAttempts {
			d.logger.ErrorContext(ctx, "pid task abandoned",
				"task_id", task.ID,
				"key", task.Key(),
				"attempts", attempt,
				"error", err,
			)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// isTransient reports whether retrying may help. Provider failures carry
// their own verdict; anything else (store, network) is assumed transient.
func isTransient(err error) bool {
	var pe *providers.ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return !errors.Is(err, context.Canceled)
}
