package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryOutbox is the outbox used in tests of the scheduler and relay.
type InMemoryOutbox struct {
	mu        sync.Mutex
	entries   []Entry
	published map[uuid.UUID]bool
}

func NewInMemoryOutbox() *InMemoryOutbox {
	return &InMemoryOutbox{published: make(map[uuid.UUID]bool)}
}

func (o *InMemoryOutbox) Insert(_ context.Context, tasks ...Task) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, t := range tasks {
		payload, err := t.Encode()
		if err != nil {
			return err
		}
		o.entries = append(o.entries, Entry{ID: t.ID, Key: t.Key(), Payload: payload, CreatedAt: t.CreatedAt})
	}
	return nil
}

func (o *InMemoryOutbox) FetchUnpublished(_ context.Context, limit int) ([]Entry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []Entry
	for _, e := range o.entries {
		if o.published[e.ID] {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (o *InMemoryOutbox) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, id := range ids {
		o.published[id] = true
	}
	return nil
}

func (o *InMemoryOutbox) Backlog(context.Context) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries) - len(o.published), nil
}

// Tasks decodes every stored entry, published or not.
func (o *InMemoryOutbox) Tasks() []Task {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Task, 0, len(o.entries))
	for _, e := range o.entries {
		if t, err := Decode(e.Payload); err == nil {
			out = append(out, t)
		}
	}
	return out
}

// DeletePublishedBefore drops published entries regardless of cutoff; the
// in-memory outbox does not track publication times.
func (o *InMemoryOutbox) DeletePublishedBefore(_ context.Context, _ time.Time) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	kept := o.entries[:0]
	var n int64
	for _, e := range o.entries {
		if o.published[e.ID] {
			delete(o.published, e.ID)
			n++
			continue
		}
		kept = append(kept, e)
	}
	o.entries = kept
	return n, nil
}
