package providers

//go:generate mockgen -source=provider.go -destination=mocks/mocks.go -package=mocks Provider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"rdmrecords/internal/pids/models"
	"rdmrecords/internal/pids/store"
	"rdmrecords/internal/platform/config"
	"rdmrecords/pkg/platform/circuit"
	"rdmrecords/pkg/platform/uow"
)

type testEntity struct {
	id         string
	typ        models.EntityType
	restricted bool
}

func (e testEntity) EntityID() string              { return e.id }
func (e testEntity) EntityType() models.EntityType { return e.typ }
func (e testEntity) IsRestricted() bool            { return e.restricted }

func record(id string) testEntity { return testEntity{id: id, typ: models.EntityRecord} }

type ProvidersSuite struct {
	suite.Suite
	ctx       context.Context
	store     *store.InMemoryStore
	locks     *store.InMemoryReservations
	registrar *InMemoryRegistrar
	registry  *Registry
	logger    *slog.Logger
}

func TestProvidersSuite(t *testing.T) {
	suite.Run(t, new(ProvidersSuite))
}

func (s *ProvidersSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemoryStore()
	s.locks = store.NewInMemoryReservations()
	s.registrar = NewInMemoryRegistrar()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	policy := config.DefaultPolicy(config.PIDsConfig{
		DOIPrefix:   "10.1234",
		DOIIDPrefix: "rdm",
		OAIHost:     "repo.test",
		LandingBase: "https://repo.test/",
	})
	reg, err := FromPolicy(policy, Deps{
		Store:        s.store,
		Reservations: s.locks,
		Registrar:    s.registrar,
		Logger:       s.logger,
	})
	s.Require().NoError(err)
	s.registry = reg
}

func (s *ProvidersSuite) provider(scheme, name string) Provider {
	p, err := s.registry.Get(scheme, name)
	s.Require().NoError(err)
	return p
}

func (s *ProvidersSuite) TestRegistryDefaults() {
	p, err := s.registry.Default("doi")
	s.Require().NoError(err)
	s.Equal("datacite", p.Name())
	s.Equal([]string{"datacite", "external"}, s.registry.Names("doi"))
	s.Equal([]string{"doi", "oai"}, s.registry.Schemes().Sorted())

	_, err = s.registry.Get("ark", "")
	s.ErrorIs(err, ErrUnknownScheme)
	_, err = s.registry.Get("doi", "crossref")
	s.ErrorIs(err, ErrUnknownProvider)
}

func (s *ProvidersSuite) TestManagedDOILifecycle() {
	p := s.provider("doi", "datacite")
	rec := record("ABC12")

	pid, err := p.Create(s.ctx, rec, models.PID{Provider: "datacite"})
	s.Require().NoError(err)
	s.Equal("10.1234/rdm.abc12", pid.Identifier)
	s.Equal(models.StatusNew, pid.Status)
	s.Equal("datacite", pid.Client)

	again, err := p.Create(s.ctx, rec, models.PID{Provider: "datacite"})
	s.Require().NoError(err)
	s.Equal(pid, again, "minting is idempotent for the owner")

	reserved, err := p.Reserve(s.ctx, rec, pid)
	s.Require().NoError(err)
	s.Equal(models.StatusReserved, reserved.Status)
	holder, ok := s.locks.Holder("doi", pid.Identifier)
	s.True(ok)
	s.Equal("record:ABC12", holder)

	registered, err := p.Register(s.ctx, rec, reserved)
	s.Require().NoError(err)
	s.Equal(models.StatusRegistered, registered.Status)
	entry, ok := s.registrar.Entry(pid.Identifier)
	s.Require().True(ok)
	s.Equal("https://repo.test/records/ABC12", entry.URL)

	deleted, err := p.Invalidate(s.ctx, registered, true)
	s.Require().NoError(err)
	s.Equal(models.StatusDeleted, deleted.Status)

	s.Require().NoError(p.Update(s.ctx, rec, deleted))
	entry, _ = s.registrar.Entry(pid.Identifier)
	s.True(entry.Hidden)

	restored, err := p.Restore(s.ctx, deleted)
	s.Require().NoError(err)
	s.Equal(models.StatusRegistered, restored.Status)
}

func (s *ProvidersSuite) TestCreateConflictsWithOtherOwner() {
	p := s.provider("doi", "external")

	_, err := p.Create(s.ctx, record("a"), models.PID{Identifier: "10.5555/shared", Provider: "external"})
	s.Require().NoError(err)

	_, err = p.Create(s.ctx, record("b"), models.PID{Identifier: "10.5555/shared", Provider: "external"})
	s.Equal(ErrorConflict, GetCategory(err))

	problems, err := p.Validate(s.ctx, record("b"), models.PID{Identifier: "10.5555/shared", Provider: "external"})
	s.Require().NoError(err)
	s.Len(problems, 1)
}

func (s *ProvidersSuite) TestReserveConflict() {
	p := s.provider("doi", "external")
	pid, err := p.Create(s.ctx, record("a"), models.PID{Identifier: "10.5555/x", Provider: "external"})
	s.Require().NoError(err)
	s.Require().NoError(s.locks.Acquire(s.ctx, "doi", "10.5555/x", "record:other"))

	_, err = p.Reserve(s.ctx, record("a"), pid)
	s.Equal(ErrorConflict, GetCategory(err))
}

func (s *ProvidersSuite) TestReserveRejectsDeleted() {
	p := s.provider("oai", "")
	_, err := p.Reserve(s.ctx, record("a"), models.PID{Identifier: "oai:repo.test:a", Status: models.StatusDeleted})
	s.Equal(ErrorInvalidState, GetCategory(err))
}

func (s *ProvidersSuite) TestHardDiscard() {
	p := s.provider("oai", "")
	rec := record("r1")

	pid, err := p.Create(s.ctx, rec, models.PID{Provider: "oai"})
	s.Require().NoError(err)
	s.Equal("oai:repo.test:r1", pid.Identifier)
	pid, err = p.Reserve(s.ctx, rec, pid)
	s.Require().NoError(err)

	out, err := p.Invalidate(s.ctx, pid, false)
	s.Require().NoError(err)
	s.Empty(out.Status)
	s.Equal(0, s.store.Count())
	_, held := s.locks.Holder("oai", pid.Identifier)
	s.False(held, "released immediately without a unit of work")

	// Discarding again is a no-op.
	_, err = p.Invalidate(s.ctx, pid, false)
	s.NoError(err)
}

func (s *ProvidersSuite) TestHardDiscardReleasesAfterCommit() {
	p := s.provider("oai", "")
	rec := record("r2")
	pid, err := p.Create(s.ctx, rec, models.PID{Provider: "oai"})
	s.Require().NoError(err)
	pid, err = p.Reserve(s.ctx, rec, pid)
	s.Require().NoError(err)

	runner := uow.NewMemoryRunner(s.logger)
	err = runner.Run(s.ctx, func(ctx context.Context) error {
		_, err := p.Invalidate(ctx, pid, false)
		s.Require().NoError(err)
		_, held := s.locks.Holder("oai", pid.Identifier)
		s.True(held, "still held before commit")
		return nil
	})
	s.Require().NoError(err)
	_, held := s.locks.Holder("oai", pid.Identifier)
	s.False(held)
}

func (s *ProvidersSuite) TestReserveRolledBack() {
	p := s.provider("oai", "")
	rec := record("r3")
	pid, err := p.Create(s.ctx, rec, models.PID{Provider: "oai"})
	s.Require().NoError(err)

	runner := uow.NewMemoryRunner(s.logger)
	boom := errors.New("boom")
	err = runner.Run(s.ctx, func(ctx context.Context) error {
		_, err := p.Reserve(ctx, rec, pid)
		s.Require().NoError(err)
		return boom
	})
	s.ErrorIs(err, boom)

	_, held := s.locks.Holder("oai", pid.Identifier)
	s.False(held)
	row, err := s.store.Get(s.ctx, "oai", pid.Identifier)
	s.Require().NoError(err)
	s.Equal(models.StatusNew, row.Status)
}

func (s *ProvidersSuite) TestExternalValidation() {
	p := s.provider("doi", "external")

	problems, err := p.Validate(s.ctx, record("a"), models.PID{Provider: "external"})
	s.Require().NoError(err)
	s.Equal([]string{"Missing DOI for required field."}, problems)

	problems, err = p.Validate(s.ctx, record("a"), models.PID{Identifier: "not-a-doi", Provider: "external"})
	s.Require().NoError(err)
	s.Len(problems, 1)

	_, err = p.Create(s.ctx, record("a"), models.PID{Provider: "external"})
	s.Equal(ErrorBadData, GetCategory(err))
	s.False(p.RequiresPublicVisibility())
}

func (s *ProvidersSuite) TestDataCiteRejectsForeignPrefix() {
	p := s.provider("doi", "datacite")

	problems, err := p.Validate(s.ctx, record("a"), models.PID{Identifier: "10.9999/abc", Provider: "datacite"})
	s.Require().NoError(err)
	s.Len(problems, 1)
	s.Contains(problems[0], "10.1234")

	_, err = p.Create(s.ctx, record("a"), models.PID{Identifier: "10.9999/abc", Provider: "datacite"})
	s.Equal(ErrorBadData, GetCategory(err))
	s.True(p.RequiresPublicVisibility())
}

func (s *ProvidersSuite) TestParentLandingPage() {
	p := s.provider("doi", "datacite")
	parent := testEntity{id: "p1", typ: models.EntityParent}
	pid, err := p.Create(s.ctx, parent, models.PID{})
	s.Require().NoError(err)

	_, err = p.Register(s.ctx, parent, pid)
	s.Require().NoError(err)
	entry, _ := s.registrar.Entry(pid.Identifier)
	s.Equal("https://repo.test/records/p1/latest", entry.URL)
}

func (s *ProvidersSuite) TestRegistrarOutageOpensBreaker() {
	now := time.Unix(0, 0)
	breaker := circuit.New("datacite",
		circuit.WithFailureThreshold(2),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	guarded := NewBreakerRegistrar(s.registrar, breaker, nil, s.logger)
	p := NewDataCite(DataCiteConfig{Prefix: "10.1234"}, Deps{Store: s.store, Reservations: s.locks, Registrar: guarded, Logger: s.logger})
	s.registrar.FailWith(errors.New("503"))

	for _, id := range []string{"a", "b"} {
		pid, err := p.Create(s.ctx, record(id), models.PID{})
		s.Require().NoError(err)
		_, err = p.Register(s.ctx, record(id), pid)
		s.Equal(ErrorProviderOutage, GetCategory(err))
		s.True(IsRetryable(err))
	}
	s.True(breaker.IsOpen())

	calls := len(s.registrar.Calls())
	pid, err := p.Create(s.ctx, record("c"), models.PID{})
	s.Require().NoError(err)
	_, err = p.Register(s.ctx, record("c"), pid)
	s.ErrorIs(err, ErrRegistrarUnavailable)
	s.Len(s.registrar.Calls(), calls, "open breaker short-circuits")

	now = now.Add(2 * time.Minute)
	s.registrar.FailWith(nil)
	_, err = p.Register(s.ctx, record("c"), pid)
	s.Require().NoError(err)
	s.False(breaker.IsOpen())
}

func (s *ProvidersSuite) TestFromPolicyRejectsUnknownType() {
	policy := config.PIDPolicy{Schemes: map[string]config.SchemePolicy{
		"ark": {Providers: []config.ProviderPolicy{{Name: "ark", Type: "n2t"}}},
	}}
	_, err := FromPolicy(policy, Deps{Store: s.store})
	s.Error(err)
}
