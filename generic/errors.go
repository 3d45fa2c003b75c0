/*
errors.go - Centralized error types shared across packages

PURPOSE:
  All cross-cutting error sentinels in one place. The payroll engine itself
  prefers numeric fallback over errors; these are raised by the storage
  and workflow layers around it.

USAGE:
    if errors.Is(err, generic.ErrNotFound) {
        // 404
    }

SEE ALSO:
  - payroll/errors.go: engine errors (accumulation not ready)
  - store/sqlite/sqlite.go: wraps these with context
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a unique key already exists.
	ErrDuplicate = errors.New("duplicate record")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrPeriodClosed is returned when a closed period is modified.
	ErrPeriodClosed = errors.New("period is closed")

	// ErrInvalidTransition is returned when a status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidInput is returned for malformed client input.
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// FieldError reports an invalid field value.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidInput
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if the error is a workflow state conflict or a
// duplicate key.
func IsConflict(err error) bool {
	return errors.Is(err, ErrPeriodClosed) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrDuplicate)
}
