package models

import (
	"fmt"
	"strings"
)

// FieldError is a client-facing problem with one PID field.
type FieldError struct {
	Field    string   `json:"field"`
	Messages []string `json:"messages"`
}

// FieldErrors is an error sink. Validation appends to it instead of failing
// on the first problem, so one response can show every PID problem.
type FieldErrors []FieldError

// Add appends a message for field, merging with an existing entry.
func (e *FieldErrors) Add(field, message string) {
	for i := range *e {
		if (*e)[i].Field == field {
			(*e)[i].Messages = append((*e)[i].Messages, message)
			return
		}
	}
	*e = append(*e, FieldError{Field: field, Messages: []string{message}})
}

// Empty reports whether no errors were collected.
func (e FieldErrors) Empty() bool {
	return len(e) == 0
}

// ValidationError reports PID values or schemes that fail their rules.
type ValidationError struct {
	Errors FieldErrors
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, strings.Join(fe.Messages, "; ")))
	}
	return "invalid persistent identifiers: " + strings.Join(parts, ", ")
}

// RestrictionPolicyError reports a restricted entity using a provider that
// needs a publicly resolvable landing page.
type RestrictionPolicyError struct {
	Scheme   string
	Provider string
}

func (e *RestrictionPolicyError) Error() string {
	return fmt.Sprintf("restricted records cannot use the %q provider for %q identifiers", e.Provider, e.Scheme)
}

// FieldName is the error field used for a scheme.
func FieldName(scheme string) string {
	return "pids." + scheme
}
