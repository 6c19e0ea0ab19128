package models

// Status tracks how far an identifier has progressed towards its authority.
type Status string

const (
	StatusNew        Status = "new"
	StatusReserved   Status = "reserved"
	StatusRegistered Status = "registered"
	StatusDeleted    Status = "deleted"
)

// IsActive reports whether the status is one of the non-deleted states.
func (s Status) IsActive() bool {
	return s == StatusNew || s == StatusReserved || s == StatusRegistered
}

// PID is a persistent identifier bound to an entity. The scheme is the key of
// the owning PIDSet and is not repeated here.
//
// An empty Identifier with a known Provider is a request: the provider is
// asked to mint the value (managed) or the user is expected to supply it
// (external). An empty Status means the PID has not been created yet.
type PID struct {
	Identifier string `json:"identifier"`
	Provider   string `json:"provider"`
	Client     string `json:"client,omitempty"`
	Status     Status `json:"status,omitempty"`
}

// IsCreated reports whether the PID already exists in the PID registry.
func (p PID) IsCreated() bool {
	return p.Identifier != "" && p.Status != ""
}

// PIDSet maps scheme names to PIDs. It is treated as an immutable value:
// every mutating helper returns a new set, so a set read from one entity can
// seed another without aliasing.
type PIDSet map[string]PID

// Clone returns a shallow copy. PID values are plain structs, so the copy
// shares nothing with the original. A nil set clones to an empty set.
func (s PIDSet) Clone() PIDSet {
	out := make(PIDSet, len(s))
	for scheme, pid := range s {
		out[scheme] = pid
	}
	return out
}

// Get returns the PID for scheme.
func (s PIDSet) Get(scheme string) (PID, bool) {
	pid, ok := s[scheme]
	return pid, ok
}

// Has reports whether scheme is present.
func (s PIDSet) Has(scheme string) bool {
	_, ok := s[scheme]
	return ok
}

// Schemes returns the key set.
func (s PIDSet) Schemes() SchemeSet {
	out := make(SchemeSet, len(s))
	for scheme := range s {
		out[scheme] = struct{}{}
	}
	return out
}

// With returns a copy with scheme set to pid.
func (s PIDSet) With(scheme string, pid PID) PIDSet {
	out := s.Clone()
	out[scheme] = pid
	return out
}

// Without returns a copy without the given schemes.
func (s PIDSet) Without(schemes SchemeSet) PIDSet {
	out := make(PIDSet, len(s))
	for scheme, pid := range s {
		if !schemes.Contains(scheme) {
			out[scheme] = pid
		}
	}
	return out
}

// Only returns a copy restricted to the given schemes.
func (s PIDSet) Only(schemes SchemeSet) PIDSet {
	out := make(PIDSet, len(schemes))
	for scheme, pid := range s {
		if schemes.Contains(scheme) {
			out[scheme] = pid
		}
	}
	return out
}

// Merge returns a copy of s overlaid with other.
func (s PIDSet) Merge(other PIDSet) PIDSet {
	out := s.Clone()
	for scheme, pid := range other {
		out[scheme] = pid
	}
	return out
}

// Identifiers returns scheme -> identifier, ignoring provider and status.
func (s PIDSet) Identifiers() map[string]string {
	out := make(map[string]string, len(s))
	for scheme, pid := range s {
		out[scheme] = pid.Identifier
	}
	return out
}
