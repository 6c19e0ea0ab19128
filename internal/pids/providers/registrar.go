package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"rdmrecords/internal/pids/metrics"
	"rdmrecords/pkg/platform/circuit"
)

// RegistrationRequest is what a registration authority needs to publish or
// update an identifier. Hidden removes the identifier from public listings
// without deleting it at the authority.
type RegistrationRequest struct {
	Identifier string
	URL        string
	EntityType string
	EntityID   string
	Hidden     bool
}

// Registrar is the boundary to an external registration authority.
type Registrar interface {
	Register(ctx context.Context, req RegistrationRequest) error
	Update(ctx context.Context, req RegistrationRequest) error
}

// ErrRegistrarUnavailable is returned while the circuit breaker is open.
var ErrRegistrarUnavailable = errors.New("registrar unavailable")

// BreakerRegistrar guards a Registrar with a circuit breaker so that an
// authority outage fails fast instead of tying up every task worker.
type BreakerRegistrar struct {
	next    Registrar
	breaker *circuit.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewBreakerRegistrar(next Registrar, breaker *circuit.Breaker, m *metrics.Metrics, logger *slog.Logger) *BreakerRegistrar {
	if logger == nil {
		logger = slog.Default()
	}
	return &BreakerRegistrar{next: next, breaker: breaker, metrics: m, logger: logger}
}

func (r *BreakerRegistrar) Register(ctx context.Context, req RegistrationRequest) error {
	return r.call(ctx, "register", req, r.next.Register)
}

func (r *BreakerRegistrar) Update(ctx context.Context, req RegistrationRequest) error {
	return r.call(ctx, "update", req, r.next.Update)
}

func (r *BreakerRegistrar) call(ctx context.Context, op string, req RegistrationRequest, fn func(context.Context, RegistrationRequest) error) error {
	if !r.breaker.Allow() {
		return ErrRegistrarUnavailable
	}
	start := time.Now()
	err := fn(ctx, req)
	r.metrics.ObserveRegistrarCall(r.breaker.Name(), op, time.Since(start).Seconds())

	if err != nil {
		_, change := r.breaker.RecordFailure()
		if change.Opened {
			r.metrics.SetBreakerOpen(r.breaker.Name(), true)
			r.logger.WarnContext(ctx, "registrar circuit opened",
				"registrar", r.breaker.Name(),
				"identifier", req.Identifier,
				"error", err,
			)
		}
		return err
	}
	_, change := r.breaker.RecordSuccess()
	if change.Closed {
		r.metrics.SetBreakerOpen(r.breaker.Name(), false)
		r.logger.InfoContext(ctx, "registrar circuit closed", "registrar", r.breaker.Name())
	}
	return nil
}

// InMemoryRegistrar records registrations in memory. It stands in for the
// authority in single-process mode and tests.
type InMemoryRegistrar struct {
	mu      sync.Mutex
	entries map[string]RegistrationRequest
	calls   []string
	failing error
}

func NewInMemoryRegistrar() *InMemoryRegistrar {
	return &InMemoryRegistrar{entries: make(map[string]RegistrationRequest)}
}

func (r *InMemoryRegistrar) Register(_ context.Context, req RegistrationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "register:"+req.Identifier)
	if r.failing != nil {
		return r.failing
	}
	r.entries[req.Identifier] = req
	return nil
}

func (r *InMemoryRegistrar) Update(_ context.Context, req RegistrationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "update:"+req.Identifier)
	if r.failing != nil {
		return r.failing
	}
	if _, ok := r.entries[req.Identifier]; !ok {
		return fmt.Errorf("identifier %s is not registered", req.Identifier)
	}
	r.entries[req.Identifier] = req
	return nil
}

// Entry returns the last accepted request for identifier.
func (r *InMemoryRegistrar) Entry(identifier string) (RegistrationRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.entries[identifier]
	return req, ok
}

// Calls returns the operations received, in order.
func (r *InMemoryRegistrar) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// FailWith makes subsequent calls return err; nil restores normal behavior.
func (r *InMemoryRegistrar) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failing = err
}
