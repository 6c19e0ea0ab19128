package components

import (
	"context"
	"log/slog"

	pidmodels "rdmrecords/internal/pids/models"
	"rdmrecords/internal/records/models"
	"rdmrecords/pkg/platform/uow"
)

// Lineage is the parent persistence the parent component needs.
type Lineage interface {
	SaveParent(ctx context.Context, parent *models.Parent) error
	NextLatestPublishedByParent(ctx context.Context, parentID, excludeID string) (*models.Record, error)
}

// ParentPIDsComponent manages the concept identifiers shared by every
// version of a record. They are minted on the first publish of a lineage
// and updated on later publishes so they resolve to the newest version.
type ParentPIDsComponent struct {
	BaseComponent
	manager    PIDManager
	scheduler  TaskScheduler
	lineage    Lineage
	required   pidmodels.SchemeSet
	conditions map[string]Predicate
	logger     *slog.Logger
}

type ParentOption func(*ParentPIDsComponent)

func WithParentLogger(logger *slog.Logger) ParentOption {
	return func(c *ParentPIDsComponent) { c.logger = logger }
}

// WithConditions makes the given required schemes conditional on a
// predicate over the published record.
func WithConditions(conditions map[string]Predicate) ParentOption {
	return func(c *ParentPIDsComponent) { c.conditions = conditions }
}

func NewParentPIDsComponent(manager PIDManager, scheduler TaskScheduler, lineage Lineage, required pidmodels.SchemeSet, opts ...ParentOption) *ParentPIDsComponent {
	c := &ParentPIDsComponent{
		manager:   manager,
		scheduler: scheduler,
		lineage:   lineage,
		required:  required,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ParentPIDsComponent) Create(_ context.Context, _ models.Identity, _ *models.DraftInput, _ *models.Draft, parent *models.Parent, _ *pidmodels.FieldErrors) error {
	if parent != nil && parent.PIDs == nil {
		parent.PIDs = pidmodels.PIDSet{}
	}
	return nil
}

// requiredFor drops conditional schemes whose predicate rejects record.
func (c *ParentPIDsComponent) requiredFor(record *models.Record) pidmodels.SchemeSet {
	out := pidmodels.SchemeSet{}
	for scheme := range c.required {
		if cond, ok := c.conditions[scheme]; ok && !cond(record) {
			continue
		}
		out[scheme] = struct{}{}
	}
	return out
}

// Publish creates the parent PIDs missing for the lineage. PIDs already on
// the parent are never re-created; they get an update task instead.
func (c *ParentPIDsComponent) Publish(ctx context.Context, _ models.Identity, _ *models.Draft, record *models.Record, parent *models.Parent) error {
	current := parent.PIDs.Clone()
	missing := c.requiredFor(record).Difference(current.Schemes())

	pids, err := c.manager.CreateAll(ctx, parent, current, missing)
	if err != nil {
		return err
	}
	pids, err = c.manager.ReserveAll(ctx, parent, pids)
	if err != nil {
		return err
	}
	parent.PIDs = pids
	if err := c.commit(ctx, parent); err != nil {
		return err
	}
	return c.scheduleAll(ctx, parent)
}

// DeleteRecord hides the concept identifiers when the last published
// version goes away. Either way the authority is told, so the identifiers
// follow the newest remaining version.
func (c *ParentPIDsComponent) DeleteRecord(ctx context.Context, _ models.Identity, record *models.Record, parent *models.Parent) error {
	next, err := c.lineage.NextLatestPublishedByParent(ctx, parent.ID, record.ID)
	if err != nil {
		return err
	}
	if next == nil {
		pids, err := c.manager.DiscardAll(ctx, parent.PIDs, true)
		if err != nil {
			return err
		}
		parent.PIDs = pids
		if err := c.commit(ctx, parent); err != nil {
			return err
		}
	}
	return c.scheduleAll(ctx, parent)
}

func (c *ParentPIDsComponent) RestoreRecord(ctx context.Context, _ models.Identity, _ *models.Record, parent *models.Parent) error {
	pids, err := c.manager.RestoreAll(ctx, parent.PIDs)
	if err != nil {
		return err
	}
	parent.PIDs = pids
	if err := c.commit(ctx, parent); err != nil {
		return err
	}
	return c.scheduleAll(ctx, parent)
}

func (c *ParentPIDsComponent) scheduleAll(ctx context.Context, parent *models.Parent) error {
	for _, scheme := range parent.PIDs.Schemes().Sorted() {
		if err := c.scheduler.Schedule(ctx, pidmodels.EntityParent, parent.ID, scheme); err != nil {
			return err
		}
	}
	return nil
}

// commit saves parent when the unit of work commits.
func (c *ParentPIDsComponent) commit(ctx context.Context, parent *models.Parent) error {
	return uow.Register(ctx, &parentCommitOp{lineage: c.lineage, parent: parent, logger: c.logger})
}

type parentCommitOp struct {
	uow.Op
	lineage Lineage
	parent  *models.Parent
	logger  *slog.Logger
}

func (o *parentCommitOp) OnCommit(ctx context.Context) error {
	if err := o.lineage.SaveParent(ctx, o.parent); err != nil {
		o.logger.WarnContext(ctx, "failed to save parent", "parent_id", o.parent.ID, "revision", o.parent.Revision, "error", err)
		return err
	}
	return nil
}
