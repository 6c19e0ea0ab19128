package models

// EntityType distinguishes the aggregates that own PID sets.
type EntityType string

const (
	EntityRecord EntityType = "record"
	EntityParent EntityType = "parent"
)

// Entity is the view of a draft, record or parent that PID providers and the
// manager need. It deliberately excludes the PID set itself: callers pass the
// set they want processed explicitly.
type Entity interface {
	EntityID() string
	EntityType() EntityType
	IsRestricted() bool
}
