package manager

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"pgregory.net/rapid"

	"rdmrecords/internal/pids/models"
	"rdmrecords/internal/pids/providers"
	"rdmrecords/internal/pids/providers/mocks"
	"rdmrecords/internal/pids/store"
	"rdmrecords/internal/platform/config"
	dErrors "rdmrecords/pkg/domain-errors"
)

type entity struct {
	id         string
	restricted bool
}

func (e entity) EntityID() string              { return e.id }
func (e entity) EntityType() models.EntityType { return models.EntityRecord }
func (e entity) IsRestricted() bool            { return e.restricted }

func newTestManager(t require.TestingT) (*Manager, *store.InMemoryStore) {
	pids := store.NewInMemoryStore()
	policy := config.DefaultPolicy(config.PIDsConfig{
		DOIPrefix:   "10.1234",
		DOIIDPrefix: "rdm",
		OAIHost:     "repo.test",
		LandingBase: "https://repo.test",
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg, err := providers.FromPolicy(policy, providers.Deps{
		Store:        pids,
		Reservations: store.NewInMemoryReservations(),
		Registrar:    providers.NewInMemoryRegistrar(),
		Logger:       logger,
	})
	require.NoError(t, err)
	return New(reg, WithLogger(logger)), pids
}

// =============================================================================
// Manager Test Suite
// =============================================================================
// Runs the manager against the real providers over in-memory stores. Failure
// aggregation uses mock providers so individual schemes can be made to fail.

type ManagerSuite struct {
	suite.Suite
	ctx     context.Context
	manager *Manager
	store   *store.InMemoryStore
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.ctx = context.Background()
	s.manager, s.store = newTestManager(s.T())
}

func (s *ManagerSuite) TestValidateCollectsIntoSink() {
	pids := models.PIDSet{
		"doi": {Identifier: "nope", Provider: "external"},
		"ark": {Identifier: "ark:/1/2", Provider: "n2t"},
	}
	var sink models.FieldErrors

	err := s.manager.Validate(s.ctx, pids, entity{id: "r1"}, &sink, true)
	s.Require().NoError(err, "a sink swallows validation failures")
	s.Require().Len(sink, 2)
	s.Equal("pids.ark", sink[0].Field)
	s.Equal([]string{"Unknown PID scheme ark."}, sink[0].Messages)
	s.Equal("pids.doi", sink[1].Field)
	s.Equal([]string{"Invalid DOI nope."}, sink[1].Messages)
}

func (s *ManagerSuite) TestValidateRaisesFirstFailure() {
	pids := models.PIDSet{
		"doi": {Provider: "external"},
		"oai": {Identifier: "oai:other:1", Provider: "oai"},
	}

	err := s.manager.Validate(s.ctx, pids, entity{id: "r1"}, nil, true)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeValidation))

	var verr *models.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Require().Len(verr.Errors, 1)
	s.Equal("pids.doi", verr.Errors[0].Field)
	s.Equal([]string{"Missing DOI for required field."}, verr.Errors[0].Messages)
}

func (s *ManagerSuite) TestValidateIgnoresFailuresWithoutRaise() {
	pids := models.PIDSet{"doi": {Provider: "unknown"}}
	before := pids.Clone()

	s.NoError(s.manager.Validate(s.ctx, pids, entity{id: "r1"}, nil, false))
	s.Equal(before, pids)
}

func (s *ManagerSuite) TestValidateRestrictionLevel() {
	managed := models.PIDSet{"doi": {Provider: "datacite"}}
	external := models.PIDSet{"doi": {Identifier: "10.5555/x", Provider: "external"}}

	err := s.manager.ValidateRestrictionLevel(s.ctx, entity{id: "r1", restricted: true}, managed)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeForbidden))
	var perr *models.RestrictionPolicyError
	s.Require().ErrorAs(err, &perr)
	s.Equal("doi", perr.Scheme)
	s.Equal("datacite", perr.Provider)

	s.NoError(s.manager.ValidateRestrictionLevel(s.ctx, entity{id: "r1", restricted: true}, external))
	s.NoError(s.manager.ValidateRestrictionLevel(s.ctx, entity{id: "r1"}, managed))
}

func (s *ManagerSuite) TestCreateAllNilSchemesUsesEveryConfiguredScheme() {
	out, err := s.manager.CreateAll(s.ctx, entity{id: "r1"}, nil, nil)
	s.Require().NoError(err)
	s.Equal([]string{"doi", "oai"}, out.Schemes().Sorted())
	s.Equal(models.PID{Identifier: "10.1234/rdm.r1", Provider: "datacite", Client: "datacite", Status: models.StatusNew}, out["doi"])
	s.Equal("oai:repo.test:r1", out["oai"].Identifier)
	s.Equal(2, s.store.Count())
}

func (s *ManagerSuite) TestCreateAllEmptySchemesOnlyCreatesGivenKeys() {
	in := models.PIDSet{"doi": {Identifier: "10.5555/ext", Provider: "external"}}

	out, err := s.manager.CreateAll(s.ctx, entity{id: "r1"}, in, models.NewSchemeSet())
	s.Require().NoError(err)
	s.Equal([]string{"doi"}, out.Schemes().Sorted())
	s.Equal(models.StatusNew, out["doi"].Status)
	s.Empty(in["doi"].Status, "input is not mutated")
}

func (s *ManagerSuite) TestCreateAllPassesCreatedThrough() {
	created := models.PID{Identifier: "10.1234/rdm.old", Provider: "datacite", Status: models.StatusRegistered}

	out, err := s.manager.CreateAll(s.ctx, entity{id: "r1"}, models.PIDSet{"doi": created}, models.NewSchemeSet("doi"))
	s.Require().NoError(err)
	s.Equal(created, out["doi"])
	s.Equal(0, s.store.Count(), "no provider call for created entries")
}

func (s *ManagerSuite) TestCreateAllUnknownScheme() {
	_, err := s.manager.CreateAll(s.ctx, entity{id: "r1"}, nil, models.NewSchemeSet("ark"))
	s.Require().Error(err)
	s.ErrorIs(err, providers.ErrUnknownScheme)
	s.True(dErrors.Is(err, dErrors.CodeValidation))
}

func (s *ManagerSuite) TestReserveAllReservesNewOnly() {
	rec := entity{id: "r1"}
	pids, err := s.manager.CreateAll(s.ctx, rec, nil, nil)
	s.Require().NoError(err)
	pids = pids.With("doi", models.PID{Identifier: pids["doi"].Identifier, Provider: "datacite", Status: models.StatusRegistered})

	out, err := s.manager.ReserveAll(s.ctx, rec, pids)
	s.Require().NoError(err)
	s.Equal(models.StatusRegistered, out["doi"].Status)
	s.Equal(models.StatusReserved, out["oai"].Status)
	s.Equal(models.StatusNew, pids["oai"].Status)
}

func (s *ManagerSuite) TestReserveAllAggregatesFailures() {
	ctrl := gomock.NewController(s.T())
	doi := mocks.NewMockProvider(ctrl)
	oai := mocks.NewMockProvider(ctrl)
	doi.EXPECT().Scheme().Return("doi").AnyTimes()
	doi.EXPECT().Name().Return("datacite").AnyTimes()
	oai.EXPECT().Scheme().Return("oai").AnyTimes()
	oai.EXPECT().Name().Return("oai").AnyTimes()

	reg := providers.NewRegistry()
	s.Require().NoError(reg.Register(doi, true))
	s.Require().NoError(reg.Register(oai, true))
	m := New(reg, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	rec := entity{id: "r1"}
	pids := models.PIDSet{
		"doi": {Identifier: "10.1234/x", Provider: "datacite", Status: models.StatusNew},
		"oai": {Identifier: "oai:h:x", Provider: "oai", Status: models.StatusNew},
	}
	locked := providers.NewProviderError(providers.ErrorConflict, doi, "reserve", "already reserved", nil)
	doi.EXPECT().Reserve(gomock.Any(), rec, pids["doi"]).Return(models.PID{}, locked)
	oai.EXPECT().Reserve(gomock.Any(), rec, pids["oai"]).
		Return(models.PID{Identifier: "oai:h:x", Provider: "oai", Status: models.StatusReserved}, nil)

	out, err := m.ReserveAll(s.ctx, rec, pids)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeConflict))
	var perr *providers.ProviderError
	s.Require().ErrorAs(err, &perr)
	s.Equal("doi", perr.Scheme)

	s.Equal(models.StatusNew, out["doi"].Status, "failed scheme keeps its input")
	s.Equal(models.StatusReserved, out["oai"].Status, "successful scheme is retained")
}

func (s *ManagerSuite) TestDiscardAllSoftAndHard() {
	rec := entity{id: "r1"}
	pids, err := s.manager.CreateAll(s.ctx, rec, nil, nil)
	s.Require().NoError(err)
	pids["ext"] = models.PID{Provider: "external"}

	soft, err := s.manager.DiscardAll(s.ctx, pids, true)
	s.Require().NoError(err)
	s.Equal(models.StatusDeleted, soft["doi"].Status)
	s.Equal(models.StatusDeleted, soft["oai"].Status)
	s.Equal(models.PID{Provider: "external"}, soft["ext"], "uncreated entries are kept untouched")
	s.Equal(models.StatusNew, pids["doi"].Status)

	draft := entity{id: "d1"}
	fresh, err := s.manager.CreateAll(s.ctx, draft, nil, nil)
	s.Require().NoError(err)
	s.Equal(4, s.store.Count())

	hard, err := s.manager.DiscardAll(s.ctx, fresh, false)
	s.Require().NoError(err)
	s.Empty(hard, "hard discards drop the scheme")
	s.Equal(2, s.store.Count(), "only the unregistered rows of d1 are removed")
}

func (s *ManagerSuite) TestRestoreAllOnlyTouchesDeleted() {
	rec := entity{id: "r1"}
	pids, err := s.manager.CreateAll(s.ctx, rec, nil, nil)
	s.Require().NoError(err)
	pids, err = s.manager.ReserveAll(s.ctx, rec, pids)
	s.Require().NoError(err)

	deleted, err := s.manager.DiscardAll(s.ctx, pids.Only(models.NewSchemeSet("doi")), true)
	s.Require().NoError(err)
	mixed := pids.Merge(deleted)

	restored, err := s.manager.RestoreAll(s.ctx, mixed)
	s.Require().NoError(err)
	s.Equal(pids, restored)
}

// =============================================================================
// Properties
// =============================================================================

func TestCreateAllIsIdempotent(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		m, _ := newTestManager(r)
		ctx := context.Background()
		rec := entity{id: rapid.StringMatching(`[a-z0-9]{4,10}`).Draw(r, "id")}

		schemes := models.NewSchemeSet()
		for _, scheme := range []string{"doi", "oai"} {
			if rapid.Bool().Draw(r, "with_"+scheme) {
				schemes = models.NewSchemeSet(append(schemes.Sorted(), scheme)...)
			}
		}
		var input models.PIDSet
		if rapid.Bool().Draw(r, "external") {
			input = models.PIDSet{"doi": {Identifier: "10.5555/" + rec.id, Provider: "external"}}
		}

		first, err := m.CreateAll(ctx, rec, input, schemes)
		require.NoError(r, err)
		second, err := m.CreateAll(ctx, rec, first, schemes)
		require.NoError(r, err)
		require.Equal(r, first, second)

		again, err := m.CreateAll(ctx, rec, input, schemes)
		require.NoError(r, err)
		require.Equal(r, first, again, "re-minting from the same input gives the same identifiers")
	})
}

func TestRestoreUndoesSoftDiscard(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		m, _ := newTestManager(r)
		ctx := context.Background()
		rec := entity{id: rapid.StringMatching(`[a-z0-9]{4,10}`).Draw(r, "id")}

		pids, err := m.CreateAll(ctx, rec, nil, nil)
		require.NoError(r, err)
		if rapid.Bool().Draw(r, "reserve") {
			pids, err = m.ReserveAll(ctx, rec, pids)
			require.NoError(r, err)
		}

		discarded, err := m.DiscardAll(ctx, pids, true)
		require.NoError(r, err)
		for _, pid := range discarded {
			require.Equal(r, models.StatusDeleted, pid.Status)
		}

		restored, err := m.RestoreAll(ctx, discarded)
		require.NoError(r, err)
		require.Equal(r, pids, restored)
	})
}

func TestReserveAllJoinsEveryFailure(t *testing.T) {
	err := aggregate("reserve", []error{
		dErrors.New(dErrors.CodeConflict, "doi"),
		errors.New("oai"),
	})
	require.True(t, dErrors.Is(err, dErrors.CodeConflict))
	require.Contains(t, err.Error(), "doi")
	require.Contains(t, err.Error(), "oai")
}
