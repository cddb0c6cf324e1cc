// Package errs defines the typed errors shared by the ledger core, the
// storage backends and the RPC edge.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports malformed input. Nothing has been applied when it
// is returned; the caller can correct the input and retry.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// Validation returns a ValidationError with no field.
func Validation(msg string) error {
	return &ValidationError{Msg: msg}
}

// Validationf returns a ValidationError for field with a formatted message.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// ConflictError reports a second attempt at an operation that may only
// happen once, such as creating the settlements of a transaction twice.
type ConflictError struct {
	Entity string
	ID     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Entity, e.ID)
}

// InvalidStateError reports an illegal state transition.
type InvalidStateError struct {
	Entity string
	ID     string
	State  string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s is already %s", e.Entity, e.ID, e.State)
}

// NotFoundError reports a missing group, transaction, settlement or member.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// NotFound returns a NotFoundError.
func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// GroupFailure records one group whose balance could not be computed.
type GroupFailure struct {
	GroupID string
	Err     error
}

// PartialFailure is returned by multi-group aggregations when some groups
// failed. The accompanying result still holds every group that succeeded.
type PartialFailure struct {
	Failures []GroupFailure
}

func (e *PartialFailure) Error() string {
	ids := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = f.GroupID
	}
	return fmt.Sprintf("balances unavailable for %d group(s): %s", len(e.Failures), strings.Join(ids, ", "))
}

// Unwrap exposes the underlying group errors to errors.Is / errors.As.
func (e *PartialFailure) Unwrap() []error {
	out := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f.Err
	}
	return out
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var v *NotFoundError
	return errors.As(err, &v)
}

// IsConflict reports whether err is or wraps a ConflictError.
func IsConflict(err error) bool {
	var v *ConflictError
	return errors.As(err, &v)
}

// IsInvalidState reports whether err is or wraps an InvalidStateError.
func IsInvalidState(err error) bool {
	var v *InvalidStateError
	return errors.As(err, &v)
}
