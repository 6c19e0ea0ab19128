package uow

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	dErrors "rdmrecords/pkg/domain-errors"
	txcontext "rdmrecords/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// Runner executes fn inside a unit of work. A Run nested inside another Run
// joins the outer unit of work.
type Runner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// MemoryRunner drives a unit of work without a SQL transaction. Stores used
// with it are expected to compensate their writes through OnRollback.
type MemoryRunner struct {
	logger *slog.Logger
}

func NewMemoryRunner(logger *slog.Logger) *MemoryRunner {
	return &MemoryRunner{logger: logger}
}

func (r *MemoryRunner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}
	u := New(r.logger)
	ctx = WithUnitOfWork(ctx, u)
	if err := fn(ctx); err != nil {
		u.Rollback(ctx)
		return err
	}
	return u.Commit(ctx)
}

// SQLRunner binds a unit of work to a database transaction. The transaction
// is stored in ctx (see pkg/platform/tx) so stores join it transparently.
type SQLRunner struct {
	db      *sql.DB
	timeout time.Duration
	logger  *slog.Logger
}

// SQLOption configures a SQLRunner.
type SQLOption func(*SQLRunner)

// WithTimeout bounds transactions started without a caller deadline.
func WithTimeout(d time.Duration) SQLOption {
	return func(r *SQLRunner) {
		r.timeout = d
	}
}

// WithLogger sets the logger used for post-commit and rollback failures.
func WithLogger(logger *slog.Logger) SQLOption {
	return func(r *SQLRunner) {
		r.logger = logger
	}
}

func NewSQLRunner(db *sql.DB, opts ...SQLOption) *SQLRunner {
	r := &SQLRunner{db: db, timeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *SQLRunner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	u := New(r.logger)
	txCtx := txcontext.WithTx(WithUnitOfWork(ctx, u), sqlTx)

	abort := func() {
		_ = sqlTx.Rollback()
		u.Rollback(txCtx)
	}

	if err := fn(txCtx); err != nil {
		abort()
		return err
	}
	if err := u.runCommit(txCtx); err != nil {
		abort()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		u.Rollback(txCtx)
		return fmt.Errorf("commit transaction: %w", err)
	}
	// Post-commit work must not run on the finished transaction.
	u.finishCommit(WithUnitOfWork(ctx, u))
	return nil
}
