package handler

import (
	"strings"

	pidmodels "rdmrecords/internal/pids/models"
	"rdmrecords/internal/records/models"
	dErrors "rdmrecords/pkg/domain-errors"
)

const maxPIDSchemes = 16

// DraftRequest is the HTTP body for creating or updating a draft.
type DraftRequest struct {
	Access   *AccessRequest        `json:"access,omitempty"`
	Metadata map[string]any        `json:"metadata,omitempty"`
	PIDs     map[string]PIDRequest `json:"pids,omitempty"`
}

type AccessRequest struct {
	Record string `json:"record"`
	Files  string `json:"files"`
}

// PIDRequest carries the caller's view of one identifier. Status is not
// accepted from clients.
type PIDRequest struct {
	Identifier string `json:"identifier"`
	Provider   string `json:"provider"`
}

// Validate checks shape only. Identifier rules belong to the PID providers
// and come back as field errors on the draft.
func (r *DraftRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.PIDs) > maxPIDSchemes {
		return dErrors.New(dErrors.CodeValidation, "too many persistent identifier schemes")
	}
	if r.Access != nil {
		for field, v := range map[string]*string{"access.record": &r.Access.Record, "access.files": &r.Access.Files} {
			*v = strings.ToLower(strings.TrimSpace(*v))
			switch models.Visibility(*v) {
			case "", models.VisibilityPublic, models.VisibilityRestricted:
			default:
				return dErrors.New(dErrors.CodeValidation, field+" must be public or restricted")
			}
		}
	}
	for scheme := range r.PIDs {
		if strings.TrimSpace(scheme) == "" {
			return dErrors.New(dErrors.CodeValidation, "pids scheme must not be empty")
		}
	}
	return nil
}

// Input converts the request into draft input.
func (r *DraftRequest) Input() models.DraftInput {
	input := models.DraftInput{Metadata: models.Metadata(r.Metadata)}
	if r.Access != nil {
		input.Access = &models.Access{
			Record: models.Visibility(r.Access.Record),
			Files:  models.Visibility(r.Access.Files),
		}
	}
	if r.PIDs != nil {
		input.PIDs = make(pidmodels.PIDSet, len(r.PIDs))
		for scheme, p := range r.PIDs {
			input.PIDs[strings.ToLower(strings.TrimSpace(scheme))] = pidmodels.PID{
				Identifier: strings.TrimSpace(p.Identifier),
				Provider:   strings.TrimSpace(p.Provider),
			}
		}
	}
	return input
}
