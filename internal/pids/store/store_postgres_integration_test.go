//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"rdmrecords/internal/pids/models"
	"rdmrecords/internal/pids/store"
	"rdmrecords/internal/platform/logger"
	"rdmrecords/pkg/platform/uow"
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
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "pid_registry"))
}

func row(value string) *store.Row {
	return &store.Row{
		Scheme:     "doi",
		Value:      value,
		Provider:   "datacite",
		ObjectType: models.EntityRecord,
		ObjectID:   "rec-1",
		Status:     models.StatusNew,
	}
}

func (s *PostgresStoreSuite) TestStatusRoundTrip() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, row("10.1234/a")))

	updated, err := s.store.SetStatus(ctx, "doi", "10.1234/a", models.StatusDeleted)
	s.Require().NoError(err)
	s.Equal(models.StatusDeleted, updated.Status)
	s.Equal(models.StatusNew, updated.PreviousStatus)

	got, err := s.store.Get(ctx, "doi", "10.1234/a")
	s.Require().NoError(err)
	s.Equal(models.EntityRecord, got.ObjectType)
	s.Equal("rec-1", got.ObjectID)

	s.Require().NoError(s.store.Delete(ctx, "doi", "10.1234/a"))
	_, err = s.store.Get(ctx, "doi", "10.1234/a")
	s.ErrorIs(err, store.ErrNotFound)
}

// TestConcurrentCreate verifies exactly one creator wins a value.
func (s *PostgresStoreSuite) TestConcurrentCreate() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var wins, taken atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, row("10.1234/race"))
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, store.ErrAlreadyUsed):
				taken.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(goroutines-1), taken.Load())
}

func (s *PostgresStoreSuite) TestRollbackDiscardsWrites() {
	ctx := context.Background()
	runner := uow.NewSQLRunner(s.postgres.DB, uow.WithLogger(logger.Discard()))
	boom := errors.New("boom")

	err := runner.Run(ctx, func(ctx context.Context) error {
		s.Require().NoError(s.store.Create(ctx, row("10.1234/tx")))
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.store.Get(ctx, "doi", "10.1234/tx")
	s.ErrorIs(err, store.ErrNotFound)
}
