package providers

import (
	"context"
	"errors"
	"log/slog"

	"rdmrecords/internal/pids/metrics"
	"rdmrecords/internal/pids/models"
	"rdmrecords/internal/pids/store"
	"rdmrecords/pkg/platform/uow"
)

// Deps are the collaborators shared by every provider instance.
type Deps struct {
	Store        PIDStore
	Reservations store.Reservations
	Registrar    Registrar
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

// base implements the PID registry bookkeeping common to all providers.
// Concrete providers embed it and add value generation, validation and
// authority calls.
type base struct {
	name    string
	scheme  string
	client  string
	store   PIDStore
	locks   store.Reservations
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func newBase(name, scheme, client string, deps Deps) base {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	locks := deps.Reservations
	if locks == nil {
		locks = store.NewInMemoryReservations()
	}
	return base{
		name:    name,
		scheme:  scheme,
		client:  client,
		store:   deps.Store,
		locks:   locks,
		metrics: deps.Metrics,
		logger:  logger,
	}
}

func (b *base) Name() string   { return b.name }
func (b *base) Scheme() string { return b.scheme }
func (b *base) Client() string { return b.client }

func owner(entityType models.EntityType, entityID string) string {
	return string(entityType) + ":" + entityID
}

func (b *base) pidFrom(row *store.Row) models.PID {
	return models.PID{
		Identifier: row.Value,
		Provider:   row.Provider,
		Client:     b.client,
		Status:     row.Status,
	}
}

func (b *base) observe(operation string, err error) {
	b.metrics.IncProviderOp(b.scheme, b.name, operation, err)
}

// createValue records value as owned by entity with status new. Minting is
// idempotent: a value already owned by the same entity is returned as is.
func (b *base) createValue(ctx context.Context, entity models.Entity, value string) (pid models.PID, err error) {
	defer func() { b.observe("create", err) }()

	row := &store.Row{
		Scheme:     b.scheme,
		Value:      value,
		Provider:   b.name,
		ObjectType: entity.EntityType(),
		ObjectID:   entity.EntityID(),
		Status:     models.StatusNew,
	}
	err = b.store.Create(ctx, row)
	if err == nil {
		return b.pidFrom(row), nil
	}
	if !errors.Is(err, store.ErrAlreadyUsed) {
		return models.PID{}, NewProviderError(ErrorInternal, b, "create", "store pid", err)
	}
	existing, err := b.store.Get(ctx, b.scheme, value)
	if err != nil {
		return models.PID{}, NewProviderError(ErrorInternal, b, "create", "load existing pid", err)
	}
	if existing.ObjectType != entity.EntityType() || existing.ObjectID != entity.EntityID() {
		return models.PID{}, NewProviderError(ErrorConflict, b, "create", "identifier "+value+" is assigned to another entity", store.ErrAlreadyUsed)
	}
	return b.pidFrom(existing), nil
}

// Reserve locks a new PID against reuse. Reserved and registered PIDs are
// returned unchanged.
func (b *base) Reserve(ctx context.Context, entity models.Entity, pid models.PID) (out models.PID, err error) {
	defer func() { b.observe("reserve", err) }()

	switch pid.Status {
	case models.StatusReserved, models.StatusRegistered:
		return pid, nil
	case models.StatusNew:
	default:
		return models.PID{}, NewProviderError(ErrorInvalidState, b, "reserve", "pid is not in status new: "+string(pid.Status), nil)
	}

	holder := owner(entity.EntityType(), entity.EntityID())
	if err := b.locks.Acquire(ctx, b.scheme, pid.Identifier, holder); err != nil {
		if errors.Is(err, store.ErrReserved) {
			return models.PID{}, NewProviderError(ErrorConflict, b, "reserve", "identifier "+pid.Identifier+" is reserved by another entity", err)
		}
		return models.PID{}, NewProviderError(ErrorProviderOutage, b, "reserve", "acquire reservation", err)
	}
	if u, ok := uow.From(ctx); ok {
		if err := u.Register(ctx, &releaseOnRollback{locks: b.locks, scheme: b.scheme, value: pid.Identifier, owner: holder, logger: b.logger}); err != nil {
			return models.PID{}, NewProviderError(ErrorInternal, b, "reserve", "track reservation", err)
		}
	}

	row, err := b.store.SetStatus(ctx, b.scheme, pid.Identifier, models.StatusReserved)
	if err != nil {
		return models.PID{}, b.storeError("reserve", err)
	}
	return b.pidFrom(row), nil
}

// markRegistered persists status registered after the authority accepted
// the PID.
func (b *base) markRegistered(ctx context.Context, pid models.PID) (models.PID, error) {
	if pid.Status == models.StatusRegistered {
		return pid, nil
	}
	row, err := b.store.SetStatus(ctx, b.scheme, pid.Identifier, models.StatusRegistered)
	if err != nil {
		return models.PID{}, b.storeError("register", err)
	}
	return b.pidFrom(row), nil
}

// Invalidate soft-deletes (status deleted, previous status kept) or
// hard-discards the PID. A hard discard removes never-registered values
// and frees their reservation once the unit of work commits; registered
// values are only marked deleted since the authority already knows them.
func (b *base) Invalidate(ctx context.Context, pid models.PID, soft bool) (out models.PID, err error) {
	defer func() { b.observe("invalidate", err) }()

	row, err := b.store.Get(ctx, b.scheme, pid.Identifier)
	if errors.Is(err, store.ErrNotFound) {
		if soft {
			return models.PID{}, NewProviderError(ErrorNotFound, b, "invalidate", "pid "+pid.Identifier+" does not exist", err)
		}
		return models.PID{Identifier: pid.Identifier, Provider: pid.Provider, Client: pid.Client}, nil
	}
	if err != nil {
		return models.PID{}, b.storeError("invalidate", err)
	}

	if soft || row.Status == models.StatusRegistered || row.Status == models.StatusDeleted {
		if row.Status == models.StatusDeleted {
			return b.pidFrom(row), nil
		}
		updated, err := b.store.SetStatus(ctx, b.scheme, pid.Identifier, models.StatusDeleted)
		if err != nil {
			return models.PID{}, b.storeError("invalidate", err)
		}
		return b.pidFrom(updated), nil
	}

	if err := b.store.Delete(ctx, b.scheme, pid.Identifier); err != nil {
		return models.PID{}, b.storeError("invalidate", err)
	}
	release := &releaseOnCommit{locks: b.locks, scheme: b.scheme, value: row.Value, owner: owner(row.ObjectType, row.ObjectID), logger: b.logger}
	if err := uow.Register(ctx, release); err != nil {
		// No unit of work: release now.
		_ = release.OnPostCommit(ctx)
	}
	return models.PID{Identifier: row.Value, Provider: row.Provider, Client: b.client}, nil
}

// Restore reverses a soft delete, returning to the status held before it.
// Active PIDs are returned unchanged.
func (b *base) Restore(ctx context.Context, pid models.PID) (out models.PID, err error) {
	defer func() { b.observe("restore", err) }()

	row, err := b.store.Get(ctx, b.scheme, pid.Identifier)
	if err != nil {
		return models.PID{}, b.storeError("restore", err)
	}
	if row.Status != models.StatusDeleted {
		return b.pidFrom(row), nil
	}
	target := row.PreviousStatus
	if !target.IsActive() {
		target = models.StatusRegistered
	}
	updated, err := b.store.SetStatus(ctx, b.scheme, pid.Identifier, target)
	if err != nil {
		return models.PID{}, b.storeError("restore", err)
	}
	return b.pidFrom(updated), nil
}

// checkOwnership reports a problem when the identifier already belongs to
// a different entity.
func (b *base) checkOwnership(ctx context.Context, entity models.Entity, pid models.PID) ([]string, error) {
	if pid.Identifier == "" {
		return nil, nil
	}
	row, err := b.store.Get(ctx, b.scheme, pid.Identifier)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, b.storeError("validate", err)
	}
	if row.ObjectType != entity.EntityType() || row.ObjectID != entity.EntityID() {
		return []string{"The identifier " + pid.Identifier + " is already in use."}, nil
	}
	return nil, nil
}

func (b *base) storeError(operation string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return NewProviderError(ErrorNotFound, b, operation, "pid not found", err)
	}
	return NewProviderError(ErrorInternal, b, operation, "pid registry", err)
}

// releaseOnRollback frees a reservation taken inside a unit of work that
// did not commit.
type releaseOnRollback struct {
	uow.Op
	locks  store.Reservations
	scheme string
	value  string
	owner  string
	logger *slog.Logger
}

func (o *releaseOnRollback) OnRollback(ctx context.Context) error {
	if err := o.locks.Release(ctx, o.scheme, o.value, o.owner); err != nil {
		o.logger.WarnContext(ctx, "failed to release pid reservation",
			"scheme", o.scheme,
			"identifier", o.value,
			"error", err,
		)
		return err
	}
	return nil
}

// releaseOnCommit frees a reservation once its discard is durable.
type releaseOnCommit struct {
	uow.Op
	locks  store.Reservations
	scheme string
	value  string
	owner  string
	logger *slog.Logger
}

func (o *releaseOnCommit) OnPostCommit(ctx context.Context) error {
	if err := o.locks.Release(ctx, o.scheme, o.value, o.owner); err != nil {
		o.logger.WarnContext(ctx, "failed to release pid reservation",
			"scheme", o.scheme,
			"identifier", o.value,
			"error", err,
		)
		return err
	}
	return nil
}
