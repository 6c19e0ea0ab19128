// Package uow provides a unit of work that collects operations during a
// request and runs them around the transaction boundary.
//
// Operations registered on a unit of work are driven in three phases:
//
//	OnCommit      inside the transaction, in registration order (persist, outbox writes)
//	OnPostCommit  after the transaction committed (task dispatch, notifications)
//	OnRollback    after the transaction rolled back (compensation of in-memory side effects)
//
// Post-commit failures are logged and never returned: the transaction is
// already durable and the caller must not observe a failure for it.
package uow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// Operation is a unit of deferred work bound to a unit of work.
type Operation interface {
	OnRegister(ctx context.Context) error
	OnCommit(ctx context.Context) error
	OnPostCommit(ctx context.Context) error
	OnRollback(ctx context.Context) error
}

// Op is a no-op Operation meant for embedding.
type Op struct{}

func (Op) OnRegister(context.Context) error   { return nil }
func (Op) OnCommit(context.Context) error     { return nil }
func (Op) OnPostCommit(context.Context) error { return nil }
func (Op) OnRollback(context.Context) error   { return nil }

// ErrClosed is returned when registering on a finished unit of work.
var ErrClosed = errors.New("unit of work already finished")

type state int

const (
	stateOpen state = iota
	stateCommitted
	stateRolledBack
)

// UnitOfWork is an ordered operation queue. It is not shared across requests.
type UnitOfWork struct {
	mu     sync.Mutex
	ops    []Operation
	state  state
	logger *slog.Logger
}

// New creates an open unit of work.
func New(logger *slog.Logger) *UnitOfWork {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &UnitOfWork{logger: logger}
}

// Register appends op to the queue after running its OnRegister hook.
func (u *UnitOfWork) Register(ctx context.Context, op Operation) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != stateOpen {
		return ErrClosed
	}
	if err := op.OnRegister(ctx); err != nil {
		return err
	}
	u.ops = append(u.ops, op)
	return nil
}

// Len returns the number of registered operations.
func (u *UnitOfWork) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.ops)
}

// Operations returns a snapshot of the registered operations.
func (u *UnitOfWork) Operations() []Operation {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]Operation, len(u.ops))
	copy(out, u.ops)
	return out
}

// runCommit runs OnCommit for every operation, stopping at the first error.
// Operations may register further operations while committing, so the queue
// is re-read on every step.
func (u *UnitOfWork) runCommit(ctx context.Context) error {
	for i := 0; ; i++ {
		u.mu.Lock()
		if i >= len(u.ops) {
			u.mu.Unlock()
			return nil
		}
		op := u.ops[i]
		u.mu.Unlock()
		if err := op.OnCommit(ctx); err != nil {
			return err
		}
	}
}

// finishCommit marks the unit of work committed and runs post-commit hooks.
func (u *UnitOfWork) finishCommit(ctx context.Context) {
	ops := u.close(stateCommitted)
	for _, op := range ops {
		if err := op.OnPostCommit(ctx); err != nil {
			u.logger.ErrorContext(ctx, "post-commit operation failed", "error", err)
		}
	}
}

// rollback marks the unit of work rolled back and runs compensation hooks in
// reverse registration order.
func (u *UnitOfWork) rollback(ctx context.Context) {
	ops := u.close(stateRolledBack)
	for i := len(ops) - 1; i >= 0; i-- {
		if err := ops[i].OnRollback(ctx); err != nil {
			u.logger.ErrorContext(ctx, "rollback operation failed", "error", err)
		}
	}
}

func (u *UnitOfWork) close(s state) []Operation {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != stateOpen {
		return nil
	}
	u.state = s
	ops := u.ops
	u.ops = nil
	return ops
}

// Commit runs the commit and post-commit phases without a SQL transaction.
// On a commit-phase error the unit of work is rolled back.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if err := u.runCommit(ctx); err != nil {
		u.rollback(ctx)
		return err
	}
	u.finishCommit(ctx)
	return nil
}

// Rollback discards all registered operations after running their rollback hooks.
func (u *UnitOfWork) Rollback(ctx context.Context) {
	u.rollback(ctx)
}

type ctxKey struct{}

// WithUnitOfWork stores u in ctx.
func WithUnitOfWork(ctx context.Context, u *UnitOfWork) context.Context {
	if u == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, u)
}

// From extracts the unit of work bound to ctx.
func From(ctx context.Context) (*UnitOfWork, bool) {
	u, ok := ctx.Value(ctxKey{}).(*UnitOfWork)
	return u, ok
}

// Register registers op on the unit of work bound to ctx.
func Register(ctx context.Context, op Operation) error {
	u, ok := From(ctx)
	if !ok {
		return errors.New("no unit of work in context")
	}
	return u.Register(ctx, op)
}
