package tasks

import (
	"context"
	"errors"
	"log/slog"

	"rdmrecords/internal/pids/metrics"
	"rdmrecords/internal/pids/models"
	"rdmrecords/internal/pids/providers"
	dErrors "rdmrecords/pkg/domain-errors"
	"rdmrecords/pkg/platform/sentinel"
	"rdmrecords/pkg/platform/uow"
)

// Entities gives the task body access to the current state of a record or
// parent.
type Entities interface {
	LoadPIDs(ctx context.Context, entityType models.EntityType, id string) (models.Entity, models.PIDSet, error)
	SavePID(ctx context.Context, entityType models.EntityType, id, scheme string, pid models.PID) error
}

// ProviderLookup resolves the provider of a PID.
type ProviderLookup interface {
	Get(scheme, name string) (providers.Provider, error)
}

const (
	ActionRegister = "register"
	ActionUpdate   = "update"
	ActionSkip     = "skip"
)

// Handler is the register-or-update task body. A PID the authority has not
// seen yet is registered and the entity is saved with status registered;
// a registered or deleted PID gets its metadata and visibility updated.
type Handler struct {
	entities  Entities
	providers ProviderLookup
	runner    uow.Runner
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type HandlerOption func(*Handler)

func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

func WithHandlerMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

func NewHandler(entities Entities, lookup ProviderLookup, runner uow.Runner, opts ...HandlerOption) *Handler {
	h := &Handler{
		entities:  entities,
		providers: lookup,
		runner:    runner,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes task and returns the action taken.
func (h *Handler) Run(ctx context.Context, task Task) (action string, err error) {
	action = ActionSkip
	defer func() { h.metrics.IncTaskHandled(action, err) }()

	err = h.runner.Run(ctx, func(ctx context.Context) error {
		entity, pids, err := h.entities.LoadPIDs(ctx, task.EntityType, task.EntityID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) || dErrors.Is(err, dErrors.CodeNotFound) {
				action = ActionSkip
				h.logger.InfoContext(ctx, "pid task entity no longer exists", "key", task.Key())
				return nil
			}
			return err
		}
		pid, ok := pids[task.Scheme]
		if !ok || pid.Identifier == "" {
			action = ActionSkip
			h.logger.InfoContext(ctx, "pid task scheme no longer present", "key", task.Key())
			return nil
		}
		provider, err := h.providers.Get(task.Scheme, pid.Provider)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "resolve provider for "+task.Key())
		}

		switch pid.Status {
		case models.StatusRegistered, models.StatusDeleted:
			action = ActionUpdate
			return provider.Update(ctx, entity, pid)
		default:
			action = ActionRegister
			registered, err := provider.Register(ctx, entity, pid)
			if err != nil {
				return err
			}
			return h.entities.SavePID(ctx, task.EntityType, task.EntityID, task.Scheme, registered)
		}
	})
	if err != nil {
		h.logger.WarnContext(ctx, "pid task failed",
			"task_id", task.ID,
			"key", task.Key(),
			"action", action,
			"retryable", providers.IsRetryable(err),
			"error", err,
		)
		return action, err
	}
	h.logger.InfoContext(ctx, "pid task done",
		"task_id", task.ID,
		"key", task.Key(),
		"action", action,
	)
	return action, nil
}
