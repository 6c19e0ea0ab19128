// Package store persists the PID registry: one row per (scheme, value) that
// records which entity owns an identifier and how far it has progressed.
// Stores are pure I/O; state transitions are decided by providers.
package store

import (
	"time"

	"rdmrecords/internal/pids/models"
	"rdmrecords/pkg/platform/sentinel"
)

// Row is a PID registry entry. PreviousStatus is kept on soft delete so a
// restore can return to the exact prior state.
type Row struct {
	Scheme         string
	Value          string
	Provider       string
	ObjectType     models.EntityType
	ObjectID       string
	Status         models.Status
	PreviousStatus models.Status
	UpdatedAt      time.Time
}

var (
	// ErrNotFound is returned when no row exists for (scheme, value).
	ErrNotFound = sentinel.ErrNotFound
	// ErrAlreadyUsed is returned when creating a row whose value is taken.
	ErrAlreadyUsed = sentinel.ErrAlreadyUsed
)
