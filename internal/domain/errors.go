package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")
	ErrCapacityConflict = errors.New("capacity conflict")
	ErrAuthRequired     = errors.New("authentication required")
	ErrInfrastructure   = errors.New("infrastructure error")
)

// ValidationError reports malformed or out-of-policy input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports a missing or inactive room type, event or slot.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func NewNotFound(resource string, key any) error {
	return &NotFoundError{Resource: resource, Key: fmt.Sprint(key)}
}

// RemainingUnknown is the Remaining value of a conflict detected by the
// datastore (serialization failure, lock timeout) rather than by a count.
const RemainingUnknown = -1

// CapacityConflictError means the allocation could not be satisfied at
// commit time. Nothing was written.
type CapacityConflictError struct {
	Resource  string
	Remaining int
	Cause     error
}

func (e *CapacityConflictError) Error() string {
	msg := fmt.Sprintf("no capacity left for %s", e.Resource)
	if e.Remaining != RemainingUnknown {
		msg = fmt.Sprintf("%s (remaining %d)", msg, e.Remaining)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *CapacityConflictError) Is(target error) bool { return target == ErrCapacityConflict }

func (e *CapacityConflictError) Unwrap() error { return e.Cause }

// RemainingKnown reports whether Remaining carries an actual count.
func (e *CapacityConflictError) RemainingKnown() bool { return e.Remaining != RemainingUnknown }

func NewCapacityConflict(resource string, remaining int) error {
	return &CapacityConflictError{Resource: resource, Remaining: remaining}
}

// InfrastructureError wraps datastore failures. The transaction was rolled
// back, so the caller may retry.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Is(target error) bool { return target == ErrInfrastructure }

func (e *InfrastructureError) Unwrap() error { return e.Err }

func NewInfrastructure(op string, err error) error {
	return &InfrastructureError{Op: op, Err: err}
}
