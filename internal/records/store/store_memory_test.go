package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pidmodels "rdmrecords/internal/pids/models"
	"rdmrecords/internal/records/models"
	"rdmrecords/pkg/platform/uow"
)

func TestSaveParentRevisions(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	p := &models.Parent{ID: "p1"}
	require.NoError(t, s.SaveParent(ctx, p))
	assert.Equal(t, 1, p.Revision)

	a, err := s.GetParent(ctx, "p1")
	require.NoError(t, err)
	b, err := s.GetParent(ctx, "p1")
	require.NoError(t, err)

	a.PIDs = pidmodels.PIDSet{"doi": {Identifier: "10.1234/p1", Provider: "datacite", Status: pidmodels.StatusNew}}
	require.NoError(t, s.SaveParent(ctx, a))
	assert.Equal(t, 2, a.Revision)

	err = s.SaveParent(ctx, b)
	assert.ErrorIs(t, err, ErrConflict, "stale revision is rejected")

	err = s.SaveParent(ctx, &models.Parent{ID: "p1"})
	assert.ErrorIs(t, err, ErrConflict, "insert over an existing parent")

	err = s.SaveParent(ctx, &models.Parent{ID: "nope", Revision: 3})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValuesAreNotShared(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	d := &models.Draft{ID: "d1", ParentID: "p1", PIDs: pidmodels.PIDSet{}}
	require.NoError(t, s.SaveDraft(ctx, d))

	d.PIDs["doi"] = pidmodels.PID{Identifier: "x"}
	loaded, err := s.GetDraft(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, loaded.PIDs)
}

func TestRollbackUndoesWrites(t *testing.T) {
	s := NewInMemoryStore()
	require.NoError(t, s.SaveDraft(context.Background(), &models.Draft{ID: "d1", ParentID: "p1"}))

	runner := uow.NewMemoryRunner(slog.New(slog.NewTextHandler(io.Discard, nil)))
	boom := errors.New("boom")
	err := runner.Run(context.Background(), func(ctx context.Context) error {
		require.NoError(t, s.SaveParent(ctx, &models.Parent{ID: "p1"}))
		require.NoError(t, s.SaveRecord(ctx, &models.Record{ID: "d1", ParentID: "p1", VersionIndex: 1}))
		require.NoError(t, s.DeleteDraft(ctx, "d1"))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetParent(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetRecord(context.Background(), "d1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetDraft(context.Background(), "d1")
	assert.NoError(t, err)
}

func TestLineageQueries(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	require.NoError(t, s.SaveRecord(ctx, &models.Record{ID: "v1", ParentID: "p1", VersionIndex: 1}))
	require.NoError(t, s.SaveRecord(ctx, &models.Record{ID: "v2", ParentID: "p1", VersionIndex: 2}))
	require.NoError(t, s.SaveRecord(ctx, &models.Record{ID: "v3", ParentID: "p1", VersionIndex: 3, Deleted: true}))
	require.NoError(t, s.SaveRecord(ctx, &models.Record{ID: "x1", ParentID: "p2", VersionIndex: 9}))
	require.NoError(t, s.SaveDraft(ctx, &models.Draft{ID: "v4", ParentID: "p1", VersionIndex: 4}))

	next, err := s.NextLatestPublishedByParent(ctx, "p1", "v2")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "v1", next.ID, "deleted versions are skipped")

	none, err := s.NextLatestPublishedByParent(ctx, "p1", "v1")
	require.NoError(t, err)
	require.NotNil(t, none)
	assert.Equal(t, "v2", none.ID)

	require.NoError(t, s.SaveRecord(ctx, &models.Record{ID: "solo", ParentID: "p3", VersionIndex: 1}))
	last, err := s.NextLatestPublishedByParent(ctx, "p3", "solo")
	require.NoError(t, err)
	assert.Nil(t, last)

	idx, err := s.LatestVersionIndex(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 4, idx)

	draft, err := s.DraftByParent(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "v4", draft.ID)
}
