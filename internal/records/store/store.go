// Package store persists drafts, published records and parents. Every
// aggregate carries a revision; saves are conditional on the revision the
// caller loaded, and a mismatch is reported as ErrConflict.
package store

import (
	"context"

	"rdmrecords/internal/records/models"
	"rdmrecords/pkg/platform/sentinel"
)

var (
	ErrNotFound = sentinel.ErrNotFound
	ErrConflict = sentinel.ErrConflict
)

// Store is implemented by the in-memory and PostgreSQL stores.
//
// Save methods insert when Revision is zero and update otherwise. On
// success they advance Revision and UpdatedAt on the passed value.
type Store interface {
	GetParent(ctx context.Context, id string) (*models.Parent, error)
	SaveParent(ctx context.Context, parent *models.Parent) error

	GetDraft(ctx context.Context, id string) (*models.Draft, error)
	SaveDraft(ctx context.Context, draft *models.Draft) error
	DeleteDraft(ctx context.Context, id string) error
	DraftByParent(ctx context.Context, parentID string) (*models.Draft, error)

	GetRecord(ctx context.Context, id string) (*models.Record, error)
	SaveRecord(ctx context.Context, record *models.Record) error

	// NextLatestPublishedByParent returns the newest non-deleted published
	// version of the lineage other than excludeID, or nil when none exists.
	NextLatestPublishedByParent(ctx context.Context, parentID, excludeID string) (*models.Record, error)
	// LatestVersionIndex returns the highest version index used by any
	// draft or record of the lineage.
	LatestVersionIndex(ctx context.Context, parentID string) (int, error)
}
