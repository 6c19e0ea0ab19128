// Package models holds the draft, published record and parent aggregates.
package models

import (
	"time"

	pidmodels "rdmrecords/internal/pids/models"
)

// Visibility of a record or its files.
type Visibility string

const (
	VisibilityPublic     Visibility = "public"
	VisibilityRestricted Visibility = "restricted"
)

// Access controls who may see the record metadata and files.
type Access struct {
	Record Visibility `json:"record"`
	Files  Visibility `json:"files"`
}

// IsRestricted reports whether the record metadata is hidden.
func (a Access) IsRestricted() bool {
	return a.Record == VisibilityRestricted
}

// Normalized fills empty visibilities with public.
func (a Access) Normalized() Access {
	if a.Record == "" {
		a.Record = VisibilityPublic
	}
	if a.Files == "" {
		a.Files = VisibilityPublic
	}
	return a
}

// Metadata is free-form descriptive metadata. Schema rules are not enforced
// here.
type Metadata map[string]any

// Identity is the caller on whose behalf a lifecycle operation runs.
type Identity struct {
	UserID string
}

// Parent groups all versions of a record. Its PIDs (the concept DOI)
// always resolve to the newest published version.
type Parent struct {
	ID        string           `json:"id"`
	PIDs      pidmodels.PIDSet `json:"pids"`
	Revision  int              `json:"revision"`
	CreatedAt time.Time        `json:"created"`
	UpdatedAt time.Time        `json:"updated"`
}

func (p *Parent) EntityID() string                 { return p.ID }
func (p *Parent) EntityType() pidmodels.EntityType { return pidmodels.EntityParent }

// IsRestricted is false: the lineage stays resolvable even when individual
// versions are restricted.
func (p *Parent) IsRestricted() bool { return false }

// Draft is an editable version. A draft of a published record shares the
// record's ID.
type Draft struct {
	ID           string           `json:"id"`
	ParentID     string           `json:"parent_id"`
	VersionIndex int              `json:"version_index"`
	Access       Access           `json:"access"`
	Metadata     Metadata         `json:"metadata"`
	PIDs         pidmodels.PIDSet `json:"pids"`
	Revision     int              `json:"revision"`
	CreatedAt    time.Time        `json:"created"`
	UpdatedAt    time.Time        `json:"updated"`
}

func (d *Draft) EntityID() string                 { return d.ID }
func (d *Draft) EntityType() pidmodels.EntityType { return pidmodels.EntityRecord }
func (d *Draft) IsRestricted() bool               { return d.Access.IsRestricted() }

// Record is a published version.
type Record struct {
	ID           string           `json:"id"`
	ParentID     string           `json:"parent_id"`
	VersionIndex int              `json:"version_index"`
	Access       Access           `json:"access"`
	Metadata     Metadata         `json:"metadata"`
	PIDs         pidmodels.PIDSet `json:"pids"`
	Revision     int              `json:"revision"`
	Deleted      bool             `json:"deleted"`
	PublishedAt  time.Time        `json:"published"`
	CreatedAt    time.Time        `json:"created"`
	UpdatedAt    time.Time        `json:"updated"`
}

func (r *Record) EntityID() string                 { return r.ID }
func (r *Record) EntityType() pidmodels.EntityType { return pidmodels.EntityRecord }
func (r *Record) IsRestricted() bool               { return r.Access.IsRestricted() }

// PIDsOf returns the PID set of a possibly nil record.
func PIDsOf(r *Record) pidmodels.PIDSet {
	if r == nil {
		return pidmodels.PIDSet{}
	}
	return r.PIDs.Clone()
}

// DraftInput is caller-supplied draft content. A nil PIDs means the input
// does not touch identifiers; a non-nil empty set clears them.
type DraftInput struct {
	Access   *Access          `json:"access,omitempty"`
	Metadata Metadata         `json:"metadata,omitempty"`
	PIDs     pidmodels.PIDSet `json:"pids,omitempty"`
}

// DraftResult is a draft together with the problems found in its input.
// Drafts are saved even when invalid; publishing re-validates strictly.
type DraftResult struct {
	Draft  *Draft                `json:"draft"`
	Errors pidmodels.FieldErrors `json:"errors,omitempty"`
}

func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (p *Parent) Clone() *Parent {
	out := *p
	out.PIDs = p.PIDs.Clone()
	return &out
}

func (d *Draft) Clone() *Draft {
	out := *d
	out.PIDs = d.PIDs.Clone()
	out.Metadata = d.Metadata.Clone()
	return &out
}

func (r *Record) Clone() *Record {
	out := *r
	out.PIDs = r.PIDs.Clone()
	out.Metadata = r.Metadata.Clone()
	return &out
}
