// Package service runs the draft and record lifecycle. Every operation
// opens one unit of work, loads the aggregates involved, runs the
// registered components in order and persists what they changed. Commit
// operations and post-commit tasks registered by components run when the
// unit of work commits.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	pidmodels "rdmrecords/internal/pids/models"
	"rdmrecords/internal/records/components"
	"rdmrecords/internal/records/metrics"
	"rdmrecords/internal/records/models"
	"rdmrecords/internal/records/store"
	dErrors "rdmrecords/pkg/domain-errors"
	"rdmrecords/pkg/platform/uow"
)

type Service struct {
	store      store.Store
	runner     uow.Runner
	components []components.Component
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	logger     *slog.Logger
	newID      func() string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

// WithIDGenerator replaces the random record and parent ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func New(st store.Store, runner uow.Runner, comps []components.Component, opts ...Option) *Service {
	s := &Service{
		store:      st,
		runner:     runner,
		components: comps,
		tracer:     otel.Tracer("rdmrecords/records"),
		logger:     slog.Default(),
		newID:      func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run wraps fn in a span, a unit of work and the operation metrics.
func (s *Service) run(ctx context.Context, op, id string, fn func(ctx context.Context) error) (err error) {
	ctx, span := s.tracer.Start(ctx, "records."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("record.id", id)),
	)
	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		s.metrics.ObserveOperation(op, time.Since(start).Seconds(), err)
	}()

	if err := s.runner.Run(ctx, fn); err != nil {
		return s.translate(ctx, op, id, err)
	}
	return nil
}

// translate maps store sentinels onto coded errors. Coded errors from
// components pass through unchanged.
func (s *Service) translate(ctx context.Context, op, id string, err error) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, store.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "record or draft not found")
	case errors.Is(err, store.ErrConflict):
		s.metrics.IncConflict()
		s.logger.InfoContext(ctx, "revision conflict", "operation", op, "record_id", id)
		return dErrors.Wrap(err, dErrors.CodeConflict, "record was modified concurrently, retry the operation")
	default:
		s.logger.ErrorContext(ctx, "record operation failed", "operation", op, "record_id", id, "error", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, op+" failed")
	}
}

// CreateDraft starts a new lineage with a first draft.
func (s *Service) CreateDraft(ctx context.Context, identity models.Identity, input models.DraftInput) (*models.DraftResult, error) {
	parent := &models.Parent{ID: s.newID()}
	draft := &models.Draft{
		ID:           s.newID(),
		ParentID:     parent.ID,
		VersionIndex: 1,
		Access:       accessOf(input, models.Access{}),
		Metadata:     input.Metadata.Clone(),
		PIDs:         pidmodels.PIDSet{},
	}
	var errs pidmodels.FieldErrors
	err := s.run(ctx, "create", draft.ID, func(ctx context.Context) error {
		for _, c := range s.components {
			if err := c.Create(ctx, identity, &input, draft, parent, &errs); err != nil {
				return err
			}
		}
		if err := s.store.SaveParent(ctx, parent); err != nil {
			return err
		}
		return s.store.SaveDraft(ctx, draft)
	})
	if err != nil {
		return nil, err
	}
	return s.draftResult(draft, errs), nil
}

// UpdateDraft applies input to a draft. Invalid input is saved and
// reported alongside the draft.
func (s *Service) UpdateDraft(ctx context.Context, identity models.Identity, id string, input models.DraftInput) (*models.DraftResult, error) {
	var (
		draft *models.Draft
		errs  pidmodels.FieldErrors
	)
	err := s.run(ctx, "update_draft", id, func(ctx context.Context) error {
		var err error
		draft, err = s.store.GetDraft(ctx, id)
		if err != nil {
			return err
		}
		draft.Access = accessOf(input, draft.Access)
		if input.Metadata != nil {
			draft.Metadata = input.Metadata.Clone()
		}
		for _, c := range s.components {
			if err := c.UpdateDraft(ctx, identity, &input, draft, &errs); err != nil {
				return err
			}
		}
		return s.store.SaveDraft(ctx, draft)
	})
	if err != nil {
		return nil, err
	}
	return s.draftResult(draft, errs), nil
}

func (s *Service) GetDraft(ctx context.Context, id string) (*models.Draft, error) {
	draft, err := s.store.GetDraft(ctx, id)
	if err != nil {
		return nil, s.translate(ctx, "get_draft", id, err)
	}
	return draft, nil
}

func (s *Service) GetRecord(ctx context.Context, id string) (*models.Record, error) {
	record, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return nil, s.translate(ctx, "get_record", id, err)
	}
	return record, nil
}

// Publish turns a draft into a published version. The draft is removed;
// the record keeps its id.
func (s *Service) Publish(ctx context.Context, identity models.Identity, id string) (*models.Record, error) {
	var record *models.Record
	err := s.run(ctx, "publish", id, func(ctx context.Context) error {
		draft, err := s.store.GetDraft(ctx, id)
		if err != nil {
			return err
		}
		parent, err := s.store.GetParent(ctx, draft.ParentID)
		if err != nil {
			return err
		}
		record, err = s.optionalRecord(ctx, id)
		if err != nil {
			return err
		}
		if record == nil {
			record = &models.Record{ID: draft.ID, ParentID: draft.ParentID, VersionIndex: draft.VersionIndex}
		}
		record.Access = draft.Access
		record.Metadata = draft.Metadata.Clone()

		for _, c := range s.components {
			if err := c.Publish(ctx, identity, draft, record, parent); err != nil {
				return err
			}
		}
		if err := s.store.SaveRecord(ctx, record); err != nil {
			return err
		}
		return s.store.DeleteDraft(ctx, draft.ID)
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "record published", "record_id", record.ID, "parent_id", record.ParentID, "version", record.VersionIndex)
	return record, nil
}

// NewVersion creates the draft of the next version of a lineage. A lineage
// has at most one draft for a new version at a time.
func (s *Service) NewVersion(ctx context.Context, identity models.Identity, recordID string) (*models.Draft, error) {
	var draft *models.Draft
	err := s.run(ctx, "new_version", recordID, func(ctx context.Context) error {
		record, err := s.store.GetRecord(ctx, recordID)
		if err != nil {
			return err
		}
		existing, err := s.store.DraftByParent(ctx, record.ParentID)
		switch {
		case err == nil && existing.VersionIndex > record.VersionIndex:
			draft = existing
			return nil
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return err
		}
		latest, err := s.store.LatestVersionIndex(ctx, record.ParentID)
		if err != nil {
			return err
		}
		draft = &models.Draft{
			ID:           s.newID(),
			ParentID:     record.ParentID,
			VersionIndex: latest + 1,
			Access:       record.Access,
			Metadata:     record.Metadata.Clone(),
		}
		for _, c := range s.components {
			if err := c.NewVersion(ctx, identity, draft, record); err != nil {
				return err
			}
		}
		return s.store.SaveDraft(ctx, draft)
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// Edit opens a draft of a published record, or returns the one already
// open.
func (s *Service) Edit(ctx context.Context, identity models.Identity, recordID string) (*models.Draft, error) {
	var draft *models.Draft
	err := s.run(ctx, "edit", recordID, func(ctx context.Context) error {
		record, err := s.store.GetRecord(ctx, recordID)
		if err != nil {
			return err
		}
		if record.Deleted {
			return dErrors.New(dErrors.CodeConflict, "deleted records cannot be edited")
		}
		draft, err = s.store.GetDraft(ctx, recordID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		draft = &models.Draft{
			ID:           record.ID,
			ParentID:     record.ParentID,
			VersionIndex: record.VersionIndex,
			Access:       record.Access,
			Metadata:     record.Metadata.Clone(),
		}
		for _, c := range s.components {
			if err := c.Edit(ctx, identity, draft, record); err != nil {
				return err
			}
		}
		return s.store.SaveDraft(ctx, draft)
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// DeleteDraft removes a draft. For a draft of a published record only the
// draft is removed; the record stays as published.
func (s *Service) DeleteDraft(ctx context.Context, identity models.Identity, id string) error {
	return s.run(ctx, "delete_draft", id, func(ctx context.Context) error {
		draft, err := s.store.GetDraft(ctx, id)
		if err != nil {
			return err
		}
		record, err := s.optionalRecord(ctx, id)
		if err != nil {
			return err
		}
		for _, c := range s.components {
			if err := c.DeleteDraft(ctx, identity, draft, record); err != nil {
				return err
			}
		}
		return s.store.DeleteDraft(ctx, id)
	})
}

// DeleteRecord soft-deletes a published record.
func (s *Service) DeleteRecord(ctx context.Context, identity models.Identity, id string) (*models.Record, error) {
	var record *models.Record
	err := s.run(ctx, "delete_record", id, func(ctx context.Context) error {
		var err error
		record, err = s.store.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		if record.Deleted {
			return dErrors.New(dErrors.CodeConflict, "record is already deleted")
		}
		parent, err := s.store.GetParent(ctx, record.ParentID)
		if err != nil {
			return err
		}
		for _, c := range s.components {
			if err := c.DeleteRecord(ctx, identity, record, parent); err != nil {
				return err
			}
		}
		record.Deleted = true
		return s.store.SaveRecord(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// RestoreRecord reverses DeleteRecord.
func (s *Service) RestoreRecord(ctx context.Context, identity models.Identity, id string) (*models.Record, error) {
	var record *models.Record
	err := s.run(ctx, "restore_record", id, func(ctx context.Context) error {
		var err error
		record, err = s.store.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		if !record.Deleted {
			return dErrors.New(dErrors.CodeConflict, "record is not deleted")
		}
		parent, err := s.store.GetParent(ctx, record.ParentID)
		if err != nil {
			return err
		}
		for _, c := range s.components {
			if err := c.RestoreRecord(ctx, identity, record, parent); err != nil {
				return err
			}
		}
		record.Deleted = false
		return s.store.SaveRecord(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) optionalRecord(ctx context.Context, id string) (*models.Record, error) {
	record, err := s.store.GetRecord(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return record, err
}

func (s *Service) draftResult(draft *models.Draft, errs pidmodels.FieldErrors) *models.DraftResult {
	if !errs.Empty() {
		s.metrics.IncInvalidDraft()
	}
	return &models.DraftResult{Draft: draft, Errors: errs}
}

func accessOf(input models.DraftInput, current models.Access) models.Access {
	if input.Access != nil {
		return input.Access.Normalized()
	}
	return current.Normalized()
}
