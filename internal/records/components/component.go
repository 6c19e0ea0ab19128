// Package components holds the lifecycle hooks the record service runs for
// every draft and record operation. Each hook receives the entities involved
// and mutates them in place; persistence is left to the service and to the
// commit operations a hook registers on the unit of work.
package components

import (
	"context"

	pidmodels "rdmrecords/internal/pids/models"
	"rdmrecords/internal/records/models"
)

// Component is implemented by every lifecycle hook set. Hooks run in the
// order the service registered them, inside one unit of work. A returned
// error aborts the operation and rolls the unit of work back.
//
// record is nil in DeleteDraft when the draft was never published. Publish
// always receives a record; on a first publish it carries no PIDs yet.
type Component interface {
	Create(ctx context.Context, identity models.Identity, input *models.DraftInput, draft *models.Draft, parent *models.Parent, errs *pidmodels.FieldErrors) error
	UpdateDraft(ctx context.Context, identity models.Identity, input *models.DraftInput, draft *models.Draft, errs *pidmodels.FieldErrors) error
	DeleteDraft(ctx context.Context, identity models.Identity, draft *models.Draft, record *models.Record) error
	Publish(ctx context.Context, identity models.Identity, draft *models.Draft, record *models.Record, parent *models.Parent) error
	NewVersion(ctx context.Context, identity models.Identity, draft *models.Draft, record *models.Record) error
	Edit(ctx context.Context, identity models.Identity, draft *models.Draft, record *models.Record) error
	DeleteRecord(ctx context.Context, identity models.Identity, record *models.Record, parent *models.Parent) error
	RestoreRecord(ctx context.Context, identity models.Identity, record *models.Record, parent *models.Parent) error
}

// BaseComponent implements every hook as a no-op. Embed it and override the
// hooks a component cares about.
type BaseComponent struct{}

func (BaseComponent) Create(context.Context, models.Identity, *models.DraftInput, *models.Draft, *models.Parent, *pidmodels.FieldErrors) error {
	return nil
}

func (BaseComponent) UpdateDraft(context.Context, models.Identity, *models.DraftInput, *models.Draft, *pidmodels.FieldErrors) error {
	return nil
}

func (BaseComponent) DeleteDraft(context.Context, models.Identity, *models.Draft, *models.Record) error {
	return nil
}

func (BaseComponent) Publish(context.Context, models.Identity, *models.Draft, *models.Record, *models.Parent) error {
	return nil
}

func (BaseComponent) NewVersion(context.Context, models.Identity, *models.Draft, *models.Record) error {
	return nil
}

func (BaseComponent) Edit(context.Context, models.Identity, *models.Draft, *models.Record) error {
	return nil
}

func (BaseComponent) DeleteRecord(context.Context, models.Identity, *models.Record, *models.Parent) error {
	return nil
}

func (BaseComponent) RestoreRecord(context.Context, models.Identity, *models.Record, *models.Parent) error {
	return nil
}

// PIDManager is the subset of the PID manager the components drive.
type PIDManager interface {
	Validate(ctx context.Context, pids pidmodels.PIDSet, entity pidmodels.Entity, sink *pidmodels.FieldErrors, raise bool) error
	ValidateRestrictionLevel(ctx context.Context, entity pidmodels.Entity, pids pidmodels.PIDSet) error
	CreateAll(ctx context.Context, entity pidmodels.Entity, pids pidmodels.PIDSet, schemes pidmodels.SchemeSet) (pidmodels.PIDSet, error)
	ReserveAll(ctx context.Context, entity pidmodels.Entity, pids pidmodels.PIDSet) (pidmodels.PIDSet, error)
	DiscardAll(ctx context.Context, pids pidmodels.PIDSet, soft bool) (pidmodels.PIDSet, error)
	RestoreAll(ctx context.Context, pids pidmodels.PIDSet) (pidmodels.PIDSet, error)
}

// TaskScheduler binds a register-or-update task to the unit of work in ctx.
type TaskScheduler interface {
	Schedule(ctx context.Context, entityType pidmodels.EntityType, entityID, scheme string) error
}
