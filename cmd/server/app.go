package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"rdmrecords/internal/pids/manager"
	pidmetrics "rdmrecords/internal/pids/metrics"
	pidmodels "rdmrecords/internal/pids/models"
	"rdmrecords/internal/pids/providers"
	pidstore "rdmrecords/internal/pids/store"
	"rdmrecords/internal/pids/tasks"
	"rdmrecords/internal/platform/config"
	"rdmrecords/internal/platform/postgres"
	redisclient "rdmrecords/internal/platform/redis"
	"rdmrecords/internal/records/components"
	recordmetrics "rdmrecords/internal/records/metrics"
	"rdmrecords/internal/records/service"
	"rdmrecords/internal/records/store"
	"rdmrecords/pkg/platform/circuit"
	"rdmrecords/pkg/platform/uow"
)

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg        config.Config
	logger     *slog.Logger
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer

	db    *sql.DB
	redis *redisclient.Client

	runner      uow.Runner
	records     store.Store
	pidMetrics  *pidmetrics.Metrics
	providers   *providers.Registry
	taskHandler *tasks.Handler

	// Exactly one of outbox and dispatcher is set. The outbox needs both
	// PostgreSQL and Kafka; anything less dispatches in-process.
	outbox     *tasks.PostgresOutbox
	dispatcher *tasks.Dispatcher

	service *service.Service
}

func (a *app) outboxMode() bool {
	return a.cfg.Database.Enabled() && a.cfg.Kafka.Enabled()
}

// buildApp connects to the configured backends and wires the PID and record
// layers. Missing backends fall back to in-process implementations.
func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*app, error) {
	a := &app{cfg: cfg, logger: logger, registerer: reg, gatherer: gatherer}

	policy, err := config.LoadPIDPolicy(cfg.PIDs)
	if err != nil {
		return nil, err
	}

	var (
		pidStore     providers.PIDStore
		reservations pidstore.Reservations
	)
	if cfg.Database.Enabled() {
		a.db, err = postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.runner = uow.NewSQLRunner(a.db, uow.WithTimeout(cfg.Database.TxTimeout), uow.WithLogger(logger))
		a.records = store.NewPostgres(a.db)
		pidStore = pidstore.NewPostgres(a.db)
	} else {
		logger.WarnContext(ctx, "DATABASE_URL not set, using in-memory stores")
		a.runner = uow.NewMemoryRunner(logger)
		a.records = store.NewInMemoryStore()
		pidStore = pidstore.NewInMemoryStore()
	}

	a.redis, err = redisclient.New(ctx, cfg.Redis)
	if err != nil {
		a.close()
		return nil, err
	}
	if a.redis != nil {
		reservations = pidstore.NewRedisReservations(a.redis.Client)
	} else {
		reservations = pidstore.NewInMemoryReservations()
	}

	a.pidMetrics = pidmetrics.NewWithRegisterer(reg)
	breaker := circuit.New("datacite",
		circuit.WithFailureThreshold(cfg.PIDs.BreakerThreshold),
		circuit.WithCooldown(cfg.PIDs.BreakerCooldown),
	)
	registrar := providers.NewBreakerRegistrar(providers.NewInMemoryRegistrar(), breaker, a.pidMetrics, logger)

	a.providers, err = providers.FromPolicy(policy, providers.Deps{
		Store:        pidStore,
		Reservations: reservations,
		Registrar:    registrar,
		Metrics:      a.pidMetrics,
		Logger:       logger,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	a.taskHandler = tasks.NewHandler(service.NewPIDEntities(a.records), a.providers, a.runner,
		tasks.WithHandlerLogger(logger),
		tasks.WithHandlerMetrics(a.pidMetrics),
	)

	var scheduler *tasks.Scheduler
	if a.outboxMode() {
		a.outbox = tasks.NewPostgresOutbox(a.db)
		scheduler = tasks.NewOutboxScheduler(a.outbox, tasks.WithLogger(logger), tasks.WithMetrics(a.pidMetrics))
	} else {
		a.dispatcher = tasks.NewDispatcher(a.taskHandler, tasks.WithDispatcherLogger(logger))
		scheduler = tasks.NewDispatchScheduler(a.dispatcher, tasks.WithLogger(logger), tasks.WithMetrics(a.pidMetrics))
	}

	mgr := manager.New(a.providers, manager.WithLogger(logger))
	conditions, err := components.Conditions(policy.Parent.Conditional, a.providers)
	if err != nil {
		a.close()
		return nil, err
	}
	comps := []components.Component{
		components.NewPIDsComponent(mgr, scheduler, pidmodels.NewSchemeSet(policy.Record.Required...),
			components.WithPIDsLogger(logger)),
		components.NewParentPIDsComponent(mgr, scheduler, a.records, pidmodels.NewSchemeSet(policy.Parent.Required...),
			components.WithConditions(conditions), components.WithParentLogger(logger)),
	}
	a.service = service.New(a.records, a.runner, comps,
		service.WithLogger(logger),
		service.WithMetrics(recordmetrics.NewWithRegisterer(reg)),
	)
	return a, nil
}

// requireOutbox fails commands that only make sense with PostgreSQL and Kafka.
func (a *app) requireOutbox(command string) error {
	if !a.outboxMode() {
		return fmt.Errorf("%s needs DATABASE_URL and KAFKA_BROKERS", command)
	}
	return nil
}

// ready pings the configured backends.
func (a *app) ready(ctx context.Context) error {
	if a.db != nil {
		if err := a.db.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (a *app) close() {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Error("closing backends", "error", err)
	}
}
