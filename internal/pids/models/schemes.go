package models

import "sort"

// SchemeSet is a set of scheme names. Operations never mutate their receiver.
type SchemeSet map[string]struct{}

// NewSchemeSet builds a set from names.
func NewSchemeSet(names ...string) SchemeSet {
	out := make(SchemeSet, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

func (s SchemeSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

func (s SchemeSet) Len() int {
	return len(s)
}

func (s SchemeSet) Union(other SchemeSet) SchemeSet {
	out := make(SchemeSet, len(s)+len(other))
	for n := range s {
		out[n] = struct{}{}
	}
	for n := range other {
		out[n] = struct{}{}
	}
	return out
}

// Difference returns s − other.
func (s SchemeSet) Difference(other SchemeSet) SchemeSet {
	out := make(SchemeSet, len(s))
	for n := range s {
		if !other.Contains(n) {
			out[n] = struct{}{}
		}
	}
	return out
}

func (s SchemeSet) Intersect(other SchemeSet) SchemeSet {
	out := make(SchemeSet)
	for n := range s {
		if other.Contains(n) {
			out[n] = struct{}{}
		}
	}
	return out
}

// Sorted returns the names in lexical order, for logs and deterministic output.
func (s SchemeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
