package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rdmrecords/internal/records/models"
	"rdmrecords/pkg/platform/uow"
)

// InMemoryStore keeps aggregates in maps. Values are cloned on the way in
// and out so callers never share state with the store. Writes inside a unit
// of work are undone on rollback.
type InMemoryStore struct {
	mu      sync.RWMutex
	parents map[string]*models.Parent
	drafts  map[string]*models.Draft
	records map[string]*models.Record
	now     func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		parents: make(map[string]*models.Parent),
		drafts:  make(map[string]*models.Draft),
		records: make(map[string]*models.Record),
		now:     time.Now,
	}
}

type undoOp struct {
	uow.Op
	undo func()
}

func (o *undoOp) OnRollback(context.Context) error {
	o.undo()
	return nil
}

// track registers an undo restoring m[id] to its current value. Caller holds
// the write lock.
func track[T any](ctx context.Context, s *InMemoryStore, m map[string]T, id string) error {
	u, ok := uow.From(ctx)
	if !ok {
		return nil
	}
	prev, existed := m[id]
	return u.Register(ctx, &undoOp{undo: func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existed {
			m[id] = prev
		} else {
			delete(m, id)
		}
	}})
}

// checkRevision enforces insert-on-zero and compare-on-update.
func checkRevision(kind, id string, stored, given int, exists bool) error {
	switch {
	case given == 0 && exists:
		return fmt.Errorf("%s %s already exists: %w", kind, id, ErrConflict)
	case given != 0 && !exists:
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	case given != 0 && stored != given:
		return fmt.Errorf("%s %s at revision %d, saved from %d: %w", kind, id, stored, given, ErrConflict)
	}
	return nil
}

func (s *InMemoryStore) GetParent(_ context.Context, id string) (*models.Parent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (s *InMemoryStore) SaveParent(ctx context.Context, parent *models.Parent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, exists := s.parents[parent.ID]
	var rev int
	if exists {
		rev = stored.Revision
	}
	if err := checkRevision("parent", parent.ID, rev, parent.Revision, exists); err != nil {
		return err
	}
	if err := track(ctx, s, s.parents, parent.ID); err != nil {
		return err
	}
	now := s.now()
	if parent.Revision == 0 {
		parent.CreatedAt = now
	}
	parent.Revision++
	parent.UpdatedAt = now
	s.parents[parent.ID] = parent.Clone()
	return nil
}

func (s *InMemoryStore) GetDraft(_ context.Context, id string) (*models.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d.Clone(), nil
}

func (s *InMemoryStore) SaveDraft(ctx context.Context, draft *models.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, exists := s.drafts[draft.ID]
	var rev int
	if exists {
		rev = stored.Revision
	}
	if err := checkRevision("draft", draft.ID, rev, draft.Revision, exists); err != nil {
		return err
	}
	if err := track(ctx, s, s.drafts, draft.ID); err != nil {
		return err
	}
	now := s.now()
	if draft.Revision == 0 {
		draft.CreatedAt = now
	}
	draft.Revision++
	draft.UpdatedAt = now
	s.drafts[draft.ID] = draft.Clone()
	return nil
}

func (s *InMemoryStore) DeleteDraft(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[id]; !ok {
		return ErrNotFound
	}
	if err := track(ctx, s, s.drafts, id); err != nil {
		return err
	}
	delete(s.drafts, id)
	return nil
}

func (s *InMemoryStore) DraftByParent(_ context.Context, parentID string) (*models.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.drafts {
		if d.ParentID == parentID {
			return d.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) GetRecord(_ context.Context, id string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (s *InMemoryStore) SaveRecord(ctx context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, exists := s.records[record.ID]
	var rev int
	if exists {
		rev = stored.Revision
	}
	if err := checkRevision("record", record.ID, rev, record.Revision, exists); err != nil {
		return err
	}
	if err := track(ctx, s, s.records, record.ID); err != nil {
		return err
	}
	now := s.now()
	if record.Revision == 0 {
		record.CreatedAt = now
		if record.PublishedAt.IsZero() {
			record.PublishedAt = now
		}
	}
	record.Revision++
	record.UpdatedAt = now
	s.records[record.ID] = record.Clone()
	return nil
}

func (s *InMemoryStore) NextLatestPublishedByParent(_ context.Context, parentID, excludeID string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Record
	for _, r := range s.records {
		if r.ParentID != parentID || r.ID == excludeID || r.Deleted {
			continue
		}
		if latest == nil || r.VersionIndex > latest.VersionIndex {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	return latest.Clone(), nil
}

func (s *InMemoryStore) LatestVersionIndex(_ context.Context, parentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := 0
	for _, r := range s.records {
		if r.ParentID == parentID && r.VersionIndex > idx {
			idx = r.VersionIndex
		}
	}
	for _, d := range s.drafts {
		if d.ParentID == parentID && d.VersionIndex > idx {
			idx = d.VersionIndex
		}
	}
	return idx, nil
}
