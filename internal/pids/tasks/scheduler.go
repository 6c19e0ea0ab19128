package tasks

import (
	"context"
	"log/slog"

	"rdmrecords/internal/pids/metrics"
	"rdmrecords/internal/pids/models"
	dErrors "rdmrecords/pkg/domain-errors"
	"rdmrecords/pkg/platform/uow"
)

// Outbox persists tasks inside the caller's transaction.
type Outbox interface {
	Insert(ctx context.Context, tasks ...Task) error
}

// Submitter accepts tasks for in-process execution.
type Submitter interface {
	Submit(task Task) bool
}

// Scheduler binds tasks to the unit of work in ctx. Nothing is dispatched
// unless the unit of work commits.
type Scheduler struct {
	outbox    Outbox
	submitter Submitter
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// NewOutboxScheduler writes tasks to the outbox in the commit phase, so they
// share the fate of the transaction.
func NewOutboxScheduler(outbox Outbox, opts ...Option) *Scheduler {
	return newScheduler(&Scheduler{outbox: outbox}, opts)
}

// NewDispatchScheduler hands tasks to submitter after commit.
func NewDispatchScheduler(submitter Submitter, opts ...Option) *Scheduler {
	return newScheduler(&Scheduler{submitter: submitter}, opts)
}

func newScheduler(s *Scheduler, opts []Option) *Scheduler {
	s.logger = slog.Default()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule registers a register-or-update task for scheme of the entity.
func (s *Scheduler) Schedule(ctx context.Context, entityType models.EntityType, entityID, scheme string) error {
	task := NewTask(entityType, entityID, scheme)
	var op uow.Operation
	if s.outbox != nil {
		op = &outboxOp{outbox: s.outbox, task: task}
	} else {
		op = &dispatchOp{submitter: s.submitter, task: task, logger: s.logger}
	}
	if err := uow.Register(ctx, op); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "pid tasks need a unit of work")
	}
	s.metrics.IncTaskScheduled(task.IsParent())
	return nil
}

type outboxOp struct {
	uow.Op
	outbox Outbox
	task   Task
}

func (o *outboxOp) OnCommit(ctx context.Context) error {
	return o.outbox.Insert(ctx, o.task)
}

type dispatchOp struct {
	uow.Op
	submitter Submitter
	task      Task
	logger    *slog.Logger
}

func (o *dispatchOp) OnPostCommit(ctx context.Context) error {
	if !o.submitter.Submit(o.task) {
		o.logger.WarnContext(ctx, "pid task dropped, dispatcher queue full",
			"task_id", o.task.ID,
			"key", o.task.Key(),
		)
	}
	return nil
}
