package providers

import (
	"errors"
	"fmt"

	dErrors "rdmrecords/pkg/domain-errors"
)

// ErrorCategory is the normalized failure taxonomy for provider calls.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorBadData        ErrorCategory = "bad_data"
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorProviderOutage ErrorCategory = "provider_outage"
	ErrorNotFound       ErrorCategory = "not_found"
	ErrorConflict       ErrorCategory = "conflict"
	ErrorInvalidState   ErrorCategory = "invalid_state"
	ErrorRateLimited    ErrorCategory = "rate_limited"
	ErrorInternal       ErrorCategory = "internal"
)

// ProviderError wraps provider failures with a category and the operation
// that failed.
type ProviderError struct {
	Category   ErrorCategory
	ProviderID string
	Scheme     string
	Operation  string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider %s/%s %s [%s]: %s: %v", e.Scheme, e.ProviderID, e.Operation, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider %s/%s %s [%s]: %s", e.Scheme, e.ProviderID, e.Operation, e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// named is the part of Provider used to label errors.
type named interface {
	Name() string
	Scheme() string
}

// NewProviderError creates a categorized provider error. Timeouts, outages
// and rate limits are retryable.
func NewProviderError(category ErrorCategory, p named, operation, message string, underlying error) *ProviderError {
	retryable := category == ErrorTimeout ||
		category == ErrorProviderOutage ||
		category == ErrorRateLimited

	pe := &ProviderError{
		Category:   category,
		Operation:  operation,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
	if p != nil {
		pe.ProviderID = p.Name()
		pe.Scheme = p.Scheme()
	}
	return pe
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error.
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

// DomainCode maps a provider failure onto a domain error code.
func DomainCode(err error) dErrors.Code {
	switch GetCategory(err) {
	case ErrorConflict:
		return dErrors.CodeConflict
	case ErrorBadData:
		return dErrors.CodeValidation
	case ErrorNotFound:
		return dErrors.CodeNotFound
	case ErrorTimeout:
		return dErrors.CodeTimeout
	case ErrorProviderOutage, ErrorRateLimited:
		return dErrors.CodeUnavailable
	case ErrorInvalidState:
		return dErrors.CodeInvariantViolation
	default:
		return dErrors.CodeInternal
	}
}

var (
	ErrUnknownScheme   = errors.New("unknown pid scheme")
	ErrUnknownProvider = errors.New("unknown pid provider")
)
