package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input or a failed business rule.
// Callers must not retry the same request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validationf builds a ValidationError
func Validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports an action that is invalid for the current state.
// Callers should re-fetch state before trying again.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// Conflictf builds a ConflictError
func Conflictf(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing entity
type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

// NotFound builds a NotFoundError
func NotFound(resource string, id any) error {
	return &NotFoundError{Resource: resource, ID: id}
}

var (
	// ErrUnresolvableCallback is returned for callbacks that carry no transaction identifier
	ErrUnresolvableCallback = errors.New("callback carries no transaction identifier")

	// ErrTransactionNotFound is returned for callbacks whose identifiers match nothing
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrPaymentRejected marks a gateway request that was definitely not accepted.
	// No callback will follow it.
	ErrPaymentRejected = errors.New("payment request rejected")
)

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsConflict reports whether err is a ConflictError
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
