// Package manager validates, creates, reserves, discards and restores the
// PID set of one entity. It holds no state of its own: every method takes a
// PID set and returns a new one, leaving the input untouched.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rdmrecords/internal/pids/models"
	"rdmrecords/internal/pids/providers"
	dErrors "rdmrecords/pkg/domain-errors"
)

// Registry resolves the provider for a scheme and provider name.
type Registry interface {
	Get(scheme, name string) (providers.Provider, error)
	Schemes() models.SchemeSet
}

type Manager struct {
	registry Registry
	logger   *slog.Logger
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func New(registry Registry, opts ...Option) *Manager {
	m := &Manager{registry: registry, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Validate checks every PID in pids for entity.
//
// With a non-nil sink, problems are appended to it as field errors and nil
// is returned. Without a sink, raise selects between returning the first
// problem as a validation error and ignoring problems altogether. Infra
// failures from providers are always returned.
func (m *Manager) Validate(ctx context.Context, pids models.PIDSet, entity models.Entity, sink *models.FieldErrors, raise bool) error {
	var collected models.FieldErrors
	for _, scheme := range pids.Schemes().Sorted() {
		pid := pids[scheme]
		field := models.FieldName(scheme)

		provider, err := m.registry.Get(scheme, pid.Provider)
		if err != nil {
			switch {
			case errors.Is(err, providers.ErrUnknownScheme):
				collected.Add(field, "Unknown PID scheme "+scheme+".")
			case errors.Is(err, providers.ErrUnknownProvider):
				collected.Add(field, "Unknown PID provider "+pid.Provider+".")
			default:
				return dErrors.Wrap(err, dErrors.CodeInternal, "resolve pid provider")
			}
			continue
		}
		problems, err := provider.Validate(ctx, entity, pid)
		if err != nil {
			return dErrors.Wrap(err, providers.DomainCode(err), "validate "+scheme)
		}
		for _, msg := range problems {
			collected.Add(field, msg)
		}
	}

	if collected.Empty() {
		return nil
	}
	if sink != nil {
		for _, fe := range collected {
			for _, msg := range fe.Messages {
				sink.Add(fe.Field, msg)
			}
		}
		return nil
	}
	if raise {
		first := models.FieldErrors{{Field: collected[0].Field, Messages: collected[0].Messages[:1]}}
		return dErrors.Wrap(&models.ValidationError{Errors: first}, dErrors.CodeValidation, "invalid persistent identifiers")
	}
	return nil
}

// ValidateRestrictionLevel rejects a restricted entity that uses a provider
// needing public visibility. It is unconditional: no sink, always fatal.
func (m *Manager) ValidateRestrictionLevel(_ context.Context, entity models.Entity, pids models.PIDSet) error {
	if !entity.IsRestricted() {
		return nil
	}
	for _, scheme := range pids.Schemes().Sorted() {
		pid := pids[scheme]
		provider, err := m.registry.Get(scheme, pid.Provider)
		if err != nil {
			// Unknown schemes are reported by Validate.
			continue
		}
		if provider.RequiresPublicVisibility() {
			return dErrors.Wrap(
				&models.RestrictionPolicyError{Scheme: scheme, Provider: provider.Name()},
				dErrors.CodeForbidden,
				"restricted records cannot have a "+provider.Name()+" "+scheme,
			)
		}
	}
	return nil
}

// CreateAll mints a new PID for every scheme of pids ∪ schemes that is not
// created yet. A nil schemes means every configured scheme. Created entries
// pass through unchanged, so repeated calls give the same set.
func (m *Manager) CreateAll(ctx context.Context, entity models.Entity, pids models.PIDSet, schemes models.SchemeSet) (models.PIDSet, error) {
	if schemes == nil {
		schemes = m.registry.Schemes()
	}
	out := pids.Clone()
	for _, scheme := range pids.Schemes().Union(schemes).Sorted() {
		pid, present := out[scheme]
		if present && pid.IsCreated() {
			continue
		}
		provider, err := m.registry.Get(scheme, pid.Provider)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "no provider for "+scheme)
		}
		created, err := provider.Create(ctx, entity, pid)
		if err != nil {
			return nil, m.providerError(ctx, "create", scheme, err)
		}
		out[scheme] = created
	}
	return out, nil
}

// ReserveAll reserves every new PID. A failing scheme does not stop the
// others: successfully reserved PIDs are kept in the returned set and the
// failures are returned joined.
func (m *Manager) ReserveAll(ctx context.Context, entity models.Entity, pids models.PIDSet) (models.PIDSet, error) {
	out := pids.Clone()
	var errs []error
	for _, scheme := range pids.Schemes().Sorted() {
		pid := pids[scheme]
		if pid.Status != models.StatusNew {
			continue
		}
		provider, err := m.registry.Get(scheme, pid.Provider)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", scheme, err))
			continue
		}
		reserved, err := provider.Reserve(ctx, entity, pid)
		if err != nil {
			errs = append(errs, m.providerError(ctx, "reserve", scheme, err))
			continue
		}
		out[scheme] = reserved
	}
	if len(errs) > 0 {
		return out, aggregate("reserve", errs)
	}
	return out, nil
}

// DiscardAll invalidates every PID in pids. Callers exclude PIDs they do
// not own before calling. Soft discards keep the scheme with status
// deleted; hard discards drop it from the returned set. PIDs that were
// never created have nothing to invalidate and are dropped or kept as is.
func (m *Manager) DiscardAll(ctx context.Context, pids models.PIDSet, soft bool) (models.PIDSet, error) {
	out := make(models.PIDSet, len(pids))
	for _, scheme := range pids.Schemes().Sorted() {
		pid := pids[scheme]
		if !pid.IsCreated() {
			if soft {
				out[scheme] = pid
			}
			continue
		}
		provider, err := m.registry.Get(scheme, pid.Provider)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "no provider for "+scheme)
		}
		invalidated, err := provider.Invalidate(ctx, pid, soft)
		if err != nil {
			return nil, m.providerError(ctx, "invalidate", scheme, err)
		}
		if soft {
			out[scheme] = invalidated
		}
	}
	return out, nil
}

// RestoreAll reverses a soft discard for every PID in pids.
func (m *Manager) RestoreAll(ctx context.Context, pids models.PIDSet) (models.PIDSet, error) {
	out := pids.Clone()
	for _, scheme := range pids.Schemes().Sorted() {
		pid := pids[scheme]
		if pid.Status != models.StatusDeleted {
			continue
		}
		provider, err := m.registry.Get(scheme, pid.Provider)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "no provider for "+scheme)
		}
		restored, err := provider.Restore(ctx, pid)
		if err != nil {
			return nil, m.providerError(ctx, "restore", scheme, err)
		}
		out[scheme] = restored
	}
	return out, nil
}

func (m *Manager) providerError(ctx context.Context, op, scheme string, err error) error {
	m.logger.WarnContext(ctx, "pid provider operation failed",
		"operation", op,
		"scheme", scheme,
		"category", string(providers.GetCategory(err)),
		"error", err,
	)
	return dErrors.Wrap(err, providers.DomainCode(err), op+" "+scheme+" pid")
}

// aggregate joins per-scheme failures. The code of the first failure is
// used for the whole.
func aggregate(op string, errs []error) error {
	return dErrors.Wrap(errors.Join(errs...), dErrors.CodeOf(errs[0]), op+" failed for "+fmt.Sprint(len(errs))+" scheme(s)")
}
