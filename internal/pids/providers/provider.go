// Package providers implements the per-scheme PID strategies: how a value is
// minted, reserved, registered with its authority, invalidated and restored.
package providers

import (
	"context"
	"fmt"
	"sort"

	"rdmrecords/internal/pids/models"
	"rdmrecords/internal/pids/store"
)

// Provider is the strategy for one (scheme, provider) pair.
//
// All state-changing methods return the updated PID; callers place it into a
// new PIDSet rather than mutating the input.
type Provider interface {
	Name() string
	Scheme() string
	Client() string

	// IsManaged reports whether this system mints the value.
	IsManaged() bool
	// RequiresPublicVisibility reports whether restricted entities are
	// barred from this provider.
	RequiresPublicVisibility() bool

	Create(ctx context.Context, entity models.Entity, pid models.PID) (models.PID, error)
	Reserve(ctx context.Context, entity models.Entity, pid models.PID) (models.PID, error)
	Register(ctx context.Context, entity models.Entity, pid models.PID) (models.PID, error)
	Update(ctx context.Context, entity models.Entity, pid models.PID) error
	Invalidate(ctx context.Context, pid models.PID, soft bool) (models.PID, error)
	Restore(ctx context.Context, pid models.PID) (models.PID, error)

	// Validate returns client-facing problems with pid for entity.
	Validate(ctx context.Context, entity models.Entity, pid models.PID) ([]string, error)
}

// PIDStore is the PID registry persistence a provider needs.
type PIDStore interface {
	Create(ctx context.Context, row *store.Row) error
	Get(ctx context.Context, scheme, value string) (*store.Row, error)
	SetStatus(ctx context.Context, scheme, value string, status models.Status) (*store.Row, error)
	Delete(ctx context.Context, scheme, value string) error
}

// Registry resolves providers by scheme and name. Each scheme may have a
// default provider used when a PID does not name one.
type Registry struct {
	providers map[string]map[string]Provider
	defaults  map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]map[string]Provider),
		defaults:  make(map[string]string),
	}
}

// Register adds p. The first provider of a scheme becomes its default unless
// another is marked as such.
func (r *Registry) Register(p Provider, isDefault bool) error {
	scheme, name := p.Scheme(), p.Name()
	byName, ok := r.providers[scheme]
	if !ok {
		byName = make(map[string]Provider)
		r.providers[scheme] = byName
	}
	if _, exists := byName[name]; exists {
		return fmt.Errorf("provider %s already registered for scheme %s", name, scheme)
	}
	byName[name] = p
	if isDefault || r.defaults[scheme] == "" {
		r.defaults[scheme] = name
	}
	return nil
}

// Get returns the provider for scheme and name. An empty name selects the
// scheme's default.
func (r *Registry) Get(scheme, name string) (Provider, error) {
	byName, ok := r.providers[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScheme, scheme)
	}
	if name == "" {
		name = r.defaults[scheme]
	}
	p, ok := byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s for scheme %s", ErrUnknownProvider, name, scheme)
	}
	return p, nil
}

// Default returns the default provider of scheme.
func (r *Registry) Default(scheme string) (Provider, error) {
	return r.Get(scheme, "")
}

// HasScheme reports whether any provider serves scheme.
func (r *Registry) HasScheme(scheme string) bool {
	_, ok := r.providers[scheme]
	return ok
}

// Schemes returns every configured scheme.
func (r *Registry) Schemes() models.SchemeSet {
	out := make(models.SchemeSet, len(r.providers))
	for scheme := range r.providers {
		out[scheme] = struct{}{}
	}
	return out
}

// Names returns provider names of scheme, sorted.
func (r *Registry) Names(scheme string) []string {
	names := make([]string, 0, len(r.providers[scheme]))
	for name := range r.providers[scheme] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
