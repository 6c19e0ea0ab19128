package components

import (
	"context"
	"log/slog"

	pidmodels "rdmrecords/internal/pids/models"
	"rdmrecords/internal/records/models"
)

// PIDsComponent manages the PIDs of drafts and published records.
type PIDsComponent struct {
	BaseComponent
	manager   PIDManager
	scheduler TaskScheduler
	required  pidmodels.SchemeSet
	logger    *slog.Logger
}

type PIDsOption func(*PIDsComponent)

func WithPIDsLogger(logger *slog.Logger) PIDsOption {
	return func(c *PIDsComponent) { c.logger = logger }
}

// NewPIDsComponent creates the record PID component. required lists the
// schemes every public record must carry once published.
func NewPIDsComponent(manager PIDManager, scheduler TaskScheduler, required pidmodels.SchemeSet, opts ...PIDsOption) *PIDsComponent {
	c := &PIDsComponent{
		manager:   manager,
		scheduler: scheduler,
		required:  required,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *PIDsComponent) Create(ctx context.Context, _ models.Identity, input *models.DraftInput, draft *models.Draft, _ *models.Parent, errs *pidmodels.FieldErrors) error {
	return c.setDraftPIDs(ctx, input, draft, errs)
}

func (c *PIDsComponent) UpdateDraft(ctx context.Context, _ models.Identity, input *models.DraftInput, draft *models.Draft, errs *pidmodels.FieldErrors) error {
	return c.setDraftPIDs(ctx, input, draft, errs)
}

// setDraftPIDs takes the PIDs from input when given, otherwise keeps the
// draft's current ones, and validates them into errs.
func (c *PIDsComponent) setDraftPIDs(ctx context.Context, input *models.DraftInput, draft *models.Draft, errs *pidmodels.FieldErrors) error {
	pids := draft.PIDs.Clone()
	if input != nil && input.PIDs != nil {
		pids = fromInput(input.PIDs, draft.PIDs)
	}
	if err := c.manager.Validate(ctx, pids, draft, errs, false); err != nil {
		return err
	}
	draft.PIDs = pids
	return nil
}

// fromInput keeps the status of values the draft already holds. Status is
// never taken from the caller.
func fromInput(input, current pidmodels.PIDSet) pidmodels.PIDSet {
	out := make(pidmodels.PIDSet, len(input))
	for scheme, pid := range input {
		pid.Status = ""
		if cur, ok := current[scheme]; ok && cur.Identifier == pid.Identifier && cur.Provider == pid.Provider {
			pid.Status = cur.Status
		}
		out[scheme] = pid
	}
	return out
}

// DeleteDraft hard-discards the PIDs only the draft holds. PIDs shared with
// the published record belong to it and stay untouched.
func (c *PIDsComponent) DeleteDraft(ctx context.Context, _ models.Identity, draft *models.Draft, record *models.Record) error {
	owned := draft.PIDs.Without(models.PIDsOf(record).Schemes())
	if _, err := c.manager.DiscardAll(ctx, owned, false); err != nil {
		return err
	}
	draft.PIDs = pidmodels.PIDSet{}
	return nil
}

// Publish reconciles the draft PIDs with the published record and stores
// the result on record. Nothing is changed when validation or the
// restriction policy fail.
func (c *PIDsComponent) Publish(ctx context.Context, _ models.Identity, draft *models.Draft, record *models.Record, _ *models.Parent) error {
	draftPIDs := draft.PIDs.Clone()
	recordPIDs := models.PIDsOf(record)
	draftSchemes := draftPIDs.Schemes()
	recordSchemes := recordPIDs.Schemes()

	if err := c.manager.Validate(ctx, draftPIDs, draft, nil, true); err != nil {
		return err
	}

	// A value may change on a published record (an external DOI); the old
	// value is discarded and the new one created below.
	changed := pidmodels.PIDSet{}
	for scheme := range draftSchemes.Intersect(recordSchemes) {
		if recordPIDs[scheme].Identifier != draftPIDs[scheme].Identifier {
			changed[scheme] = recordPIDs[scheme]
			fresh := draftPIDs[scheme]
			fresh.Status = ""
			draftPIDs[scheme] = fresh
		}
	}

	if err := c.manager.ValidateRestrictionLevel(ctx, draft, draftPIDs); err != nil {
		return err
	}
	if _, err := c.manager.DiscardAll(ctx, changed, false); err != nil {
		return err
	}

	missing := pidmodels.SchemeSet{}
	if !draft.IsRestricted() {
		missing = c.required.Difference(recordSchemes).Difference(draftSchemes)
	}
	pids, err := c.manager.CreateAll(ctx, draft, draftPIDs, missing)
	if err != nil {
		return err
	}
	pids, err = c.manager.ReserveAll(ctx, draft, pids)
	if err != nil {
		return err
	}

	// Required PIDs dropped from the draft are kept from the record.
	removed := recordSchemes.Difference(draftSchemes).Intersect(c.required)
	for scheme := range removed {
		pids[scheme] = recordPIDs[scheme]
	}

	record.PIDs = pids
	if err := c.schedule(ctx, record, pids.Schemes()); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "record pids reconciled",
		"record_id", record.ID,
		"schemes", pids.Schemes().Sorted(),
		"changed", changed.Schemes().Sorted(),
	)
	return nil
}

// NewVersion starts the new draft without PIDs. A lineage using an
// external DOI gets an empty external DOI so the editor asks for the new
// version's value.
func (c *PIDsComponent) NewVersion(_ context.Context, _ models.Identity, draft *models.Draft, record *models.Record) error {
	if doi, ok := models.PIDsOf(record).Get("doi"); ok && doi.Provider == "external" {
		draft.PIDs = pidmodels.PIDSet{"doi": {Provider: "external", Identifier: ""}}
		return nil
	}
	draft.PIDs = pidmodels.PIDSet{}
	return nil
}

// Edit copies the published PIDs to the draft.
func (c *PIDsComponent) Edit(ctx context.Context, _ models.Identity, draft *models.Draft, record *models.Record) error {
	pids := models.PIDsOf(record)
	if err := c.manager.Validate(ctx, pids, record, nil, false); err != nil {
		return err
	}
	draft.PIDs = pids
	return nil
}

// DeleteRecord soft-discards the record PIDs. Identifiers already known to
// the authority are updated after commit so they get hidden.
func (c *PIDsComponent) DeleteRecord(ctx context.Context, _ models.Identity, record *models.Record, _ *models.Parent) error {
	registered := registeredSchemes(record.PIDs)
	pids, err := c.manager.DiscardAll(ctx, record.PIDs, true)
	if err != nil {
		return err
	}
	record.PIDs = pids
	return c.schedule(ctx, record, registered)
}

func (c *PIDsComponent) RestoreRecord(ctx context.Context, _ models.Identity, record *models.Record, _ *models.Parent) error {
	pids, err := c.manager.RestoreAll(ctx, record.PIDs)
	if err != nil {
		return err
	}
	record.PIDs = pids
	return c.schedule(ctx, record, registeredSchemes(pids))
}

func (c *PIDsComponent) schedule(ctx context.Context, record *models.Record, schemes pidmodels.SchemeSet) error {
	for _, scheme := range schemes.Sorted() {
		if err := c.scheduler.Schedule(ctx, pidmodels.EntityRecord, record.ID, scheme); err != nil {
			return err
		}
	}
	return nil
}

// registeredSchemes lists the schemes whose identifier the authority holds.
// Reserved identifiers were never sent, so there is nothing to hide.
func registeredSchemes(pids pidmodels.PIDSet) pidmodels.SchemeSet {
	out := pidmodels.SchemeSet{}
	for scheme, pid := range pids {
		if pid.Status == pidmodels.StatusRegistered {
			out[scheme] = struct{}{}
		}
	}
	return out
}
