package store

import (
	"context"
	"sync"
	"time"

	"rdmrecords/internal/pids/models"
	"rdmrecords/pkg/platform/uow"
)

type rowKey struct {
	scheme string
	value  string
}

// InMemoryStore is a PID registry for single-process mode and tests.
// Writes made inside a unit of work are undone if it rolls back.
type InMemoryStore struct {
	mu   sync.RWMutex
	rows map[rowKey]Row
	now  func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		rows: make(map[rowKey]Row),
		now:  time.Now,
	}
}

// undoOp restores a single row to its state before a write.
type undoOp struct {
	uow.Op
	store   *InMemoryStore
	key     rowKey
	prev    Row
	existed bool
}

func (o *undoOp) OnRollback(context.Context) error {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	if o.existed {
		o.store.rows[o.key] = o.prev
	} else {
		delete(o.store.rows, o.key)
	}
	return nil
}

// trackLocked registers an undo for key. Caller holds the write lock.
func (s *InMemoryStore) trackLocked(ctx context.Context, key rowKey) error {
	u, ok := uow.From(ctx)
	if !ok {
		return nil
	}
	prev, existed := s.rows[key]
	return u.Register(ctx, &undoOp{store: s, key: key, prev: prev, existed: existed})
}

func (s *InMemoryStore) Create(ctx context.Context, row *Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rowKey{scheme: row.Scheme, value: row.Value}
	if _, exists := s.rows[key]; exists {
		return ErrAlreadyUsed
	}
	if err := s.trackLocked(ctx, key); err != nil {
		return err
	}
	stored := *row
	stored.UpdatedAt = s.now()
	s.rows[key] = stored
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, scheme, value string) (*Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[rowKey{scheme: scheme, value: value}]
	if !ok {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (s *InMemoryStore) SetStatus(ctx context.Context, scheme, value string, status models.Status) (*Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rowKey{scheme: scheme, value: value}
	row, ok := s.rows[key]
	if !ok {
		return nil, ErrNotFound
	}
	if err := s.trackLocked(ctx, key); err != nil {
		return nil, err
	}
	row.PreviousStatus = row.Status
	row.Status = status
	row.UpdatedAt = s.now()
	s.rows[key] = row
	return &row, nil
}

func (s *InMemoryStore) Delete(ctx context.Context, scheme, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rowKey{scheme: scheme, value: value}
	if _, ok := s.rows[key]; !ok {
		return ErrNotFound
	}
	if err := s.trackLocked(ctx, key); err != nil {
		return err
	}
	delete(s.rows, key)
	return nil
}

// Count returns the number of rows, for tests and diagnostics.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}
