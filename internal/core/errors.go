package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the common money/input failures, kept alongside the
// typed taxonomy below for cheap equality checks.
var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidMode   = errors.New("invalid deletion mode")
)

// ValidationError reports malformed or out-of-range input. It maps to a
// 4xx-equivalent at the API boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// InvalidStateError reports an operation not permitted in the entity's
// current state, e.g. contributing to a cancelled goal.
type InvalidStateError struct {
	Entity string
	State  string
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s is %s: cannot %s", e.Entity, e.State, e.Op)
}

// NotFoundError reports a referenced id that does not resolve to a record.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ConflictError reports a uniqueness violation, e.g. a duplicate budget for
// the same (category, month, year).
type ConflictError struct {
	Entity string
	Key    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists for %s", e.Entity, e.Key)
}

// IsValidation reports whether err is (or wraps) a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrInvalidAmount) || errors.Is(err, ErrInvalidMode)
}

// IsInvalidState reports whether err is (or wraps) an invalid-state failure.
func IsInvalidState(err error) bool {
	var se *InvalidStateError
	return errors.As(err, &se)
}

// IsNotFound reports whether err is (or wraps) a missing-record failure.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// IsConflict reports whether err is (or wraps) a uniqueness violation.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
