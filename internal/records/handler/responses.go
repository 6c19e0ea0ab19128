package handler

import (
	"time"

	pidmodels "rdmrecords/internal/pids/models"
	"rdmrecords/internal/records/models"
)

// DraftResponse is the draft as returned by the API, with the identifier
// problems found in the last input.
type DraftResponse struct {
	ID           string                `json:"id"`
	ParentID     string                `json:"parent_id"`
	VersionIndex int                   `json:"version_index"`
	Access       models.Access         `json:"access"`
	Metadata     models.Metadata       `json:"metadata"`
	PIDs         pidmodels.PIDSet      `json:"pids"`
	Revision     int                   `json:"revision"`
	Updated      time.Time             `json:"updated"`
	Errors       pidmodels.FieldErrors `json:"errors,omitempty"`
}

type RecordResponse struct {
	ID           string           `json:"id"`
	ParentID     string           `json:"parent_id"`
	VersionIndex int              `json:"version_index"`
	Access       models.Access    `json:"access"`
	Metadata     models.Metadata  `json:"metadata"`
	PIDs         pidmodels.PIDSet `json:"pids"`
	Deleted      bool             `json:"deleted"`
	Published    time.Time        `json:"published"`
	Revision     int              `json:"revision"`
}

// ValidationErrorResponse lists every identifier problem that blocked a
// publish.
type ValidationErrorResponse struct {
	Error       string                `json:"error"`
	Description string                `json:"error_description"`
	Errors      pidmodels.FieldErrors `json:"errors"`
}

func FromDraft(d *models.Draft, errs pidmodels.FieldErrors) DraftResponse {
	return DraftResponse{
		ID:           d.ID,
		ParentID:     d.ParentID,
		VersionIndex: d.VersionIndex,
		Access:       d.Access,
		Metadata:     d.Metadata,
		PIDs:         d.PIDs.Clone(),
		Revision:     d.Revision,
		Updated:      d.UpdatedAt,
		Errors:       errs,
	}
}

func FromRecord(r *models.Record) RecordResponse {
	return RecordResponse{
		ID:           r.ID,
		ParentID:     r.ParentID,
		VersionIndex: r.VersionIndex,
		Access:       r.Access,
		Metadata:     r.Metadata,
		PIDs:         r.PIDs.Clone(),
		Deleted:      r.Deleted,
		Published:    r.PublishedAt,
		Revision:     r.Revision,
	}
}
