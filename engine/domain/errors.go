package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the gateway's failure taxonomy.
var (
	// ErrPolicyViolation marks input rejected before any upstream call.
	ErrPolicyViolation = errors.New("input violates guidance policy")
	// ErrAuthFailure marks a missing or unverifiable bearer credential.
	ErrAuthFailure = errors.New("authentication failed")
	// ErrUpstreamUnavailable marks a failed feed, provider, or article fetch.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrMalformedUpstream marks an unparseable upstream payload.
	ErrMalformedUpstream = errors.New("malformed upstream response")
	// ErrNotFound marks a link that resolves to no cached or fetchable record.
	ErrNotFound = errors.New("not found")
)

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
