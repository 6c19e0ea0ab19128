package service

import (
	"context"
	"errors"
	"fmt"

	pidmodels "rdmrecords/internal/pids/models"
	"rdmrecords/internal/records/store"
)

// PIDEntities gives PID tasks access to records and parents. It satisfies
// the entity lookup of the register-or-update task handler.
type PIDEntities struct {
	store store.Store
}

func NewPIDEntities(st store.Store) *PIDEntities {
	return &PIDEntities{store: st}
}

func (e *PIDEntities) LoadPIDs(ctx context.Context, entityType pidmodels.EntityType, id string) (pidmodels.Entity, pidmodels.PIDSet, error) {
	switch entityType {
	case pidmodels.EntityParent:
		parent, err := e.store.GetParent(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		return parent, parent.PIDs, nil
	case pidmodels.EntityRecord:
		record, err := e.store.GetRecord(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		return record, record.PIDs, nil
	default:
		return nil, nil, fmt.Errorf("unknown entity type %q", entityType)
	}
}

// SavePID stores pid under scheme. An open draft of the record holding the
// same value is updated too, so publishing it later keeps the status.
func (e *PIDEntities) SavePID(ctx context.Context, entityType pidmodels.EntityType, id, scheme string, pid pidmodels.PID) error {
	switch entityType {
	case pidmodels.EntityParent:
		parent, err := e.store.GetParent(ctx, id)
		if err != nil {
			return err
		}
		parent.PIDs = parent.PIDs.With(scheme, pid)
		return e.store.SaveParent(ctx, parent)
	case pidmodels.EntityRecord:
		record, err := e.store.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		record.PIDs = record.PIDs.With(scheme, pid)
		if err := e.store.SaveRecord(ctx, record); err != nil {
			return err
		}
		draft, err := e.store.GetDraft(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if cur, ok := draft.PIDs.Get(scheme); !ok || cur.Identifier != pid.Identifier {
			return nil
		}
		draft.PIDs = draft.PIDs.With(scheme, pid)
		return e.store.SaveDraft(ctx, draft)
	default:
		return fmt.Errorf("unknown entity type %q", entityType)
	}
}
