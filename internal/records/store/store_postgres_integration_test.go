//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	pidmodels "rdmrecords/internal/pids/models"
	"rdmrecords/internal/records/models"
	"rdmrecords/internal/records/store"
	"rdmrecords/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "records", "drafts", "parents"))
}

func (s *PostgresStoreSuite) TestParentOptimisticRevision() {
	ctx := context.Background()
	p := &models.Parent{ID: "p1"}
	s.Require().NoError(s.store.SaveParent(ctx, p))
	s.Equal(1, p.Revision)

	stale, err := s.store.GetParent(ctx, "p1")
	s.Require().NoError(err)

	p.PIDs = pidmodels.PIDSet{"doi": {Identifier: "10.1234/p1", Provider: "datacite", Status: pidmodels.StatusReserved}}
	s.Require().NoError(s.store.SaveParent(ctx, p))
	s.Equal(2, p.Revision)

	s.ErrorIs(s.store.SaveParent(ctx, stale), store.ErrConflict)
	s.ErrorIs(s.store.SaveParent(ctx, &models.Parent{ID: "p1"}), store.ErrConflict)

	loaded, err := s.store.GetParent(ctx, "p1")
	s.Require().NoError(err)
	s.Equal(p.PIDs, loaded.PIDs)
}

func (s *PostgresStoreSuite) TestDraftAndRecordRoundTrip() {
	ctx := context.Background()
	s.Require().NoError(s.store.SaveParent(ctx, &models.Parent{ID: "p1"}))

	d := &models.Draft{
		ID:           "r1",
		ParentID:     "p1",
		VersionIndex: 1,
		Access:       models.Access{Record: models.VisibilityRestricted, Files: models.VisibilityPublic},
		Metadata:     models.Metadata{"title": "A"},
		PIDs:         pidmodels.PIDSet{"doi": {Provider: "external", Identifier: "10.5555/x"}},
	}
	s.Require().NoError(s.store.SaveDraft(ctx, d))
	loaded, err := s.store.GetDraft(ctx, "r1")
	s.Require().NoError(err)
	s.Equal(d.Access, loaded.Access)
	s.Equal("A", loaded.Metadata["title"])
	s.Equal(d.PIDs, loaded.PIDs)

	rec := &models.Record{ID: "r1", ParentID: "p1", VersionIndex: 1, Access: d.Access, Metadata: d.Metadata, PIDs: d.PIDs}
	s.Require().NoError(s.store.SaveRecord(ctx, rec))
	s.Require().NoError(s.store.DeleteDraft(ctx, "r1"))
	s.ErrorIs(s.store.DeleteDraft(ctx, "r1"), store.ErrNotFound)

	got, err := s.store.GetRecord(ctx, "r1")
	s.Require().NoError(err)
	s.True(got.Access.IsRestricted())
	s.False(got.PublishedAt.IsZero())
}

func (s *PostgresStoreSuite) TestNextLatestPublishedByParent() {
	ctx := context.Background()
	s.Require().NoError(s.store.SaveParent(ctx, &models.Parent{ID: "p1"}))
	for i, id := range []string{"v1", "v2", "v3"} {
		s.Require().NoError(s.store.SaveRecord(ctx, &models.Record{ID: id, ParentID: "p1", VersionIndex: i + 1, Deleted: id == "v3"}))
	}
	s.Require().NoError(s.store.SaveDraft(ctx, &models.Draft{ID: "v4", ParentID: "p1", VersionIndex: 4}))

	next, err := s.store.NextLatestPublishedByParent(ctx, "p1", "v2")
	s.Require().NoError(err)
	s.Require().NotNil(next)
	s.Equal("v1", next.ID)

	idx, err := s.store.LatestVersionIndex(ctx, "p1")
	s.Require().NoError(err)
	s.Equal(4, idx)

	none, err := s.store.NextLatestPublishedByParent(ctx, "missing", "")
	s.Require().NoError(err)
	s.Nil(none)
}
