package core

import (
	"errors"
	"fmt"
)

// Sentinels matched by errors.Is against the typed errors below.
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAuthorization = errors.New("not authorized")
)

type (
	ValidationError struct {
		Field   string
		Message string
		Err     error
	}

	NotFoundError struct {
		Kind string
		ID   any
	}

	ConflictError struct {
		Message string
	}

	AuthorizationError struct {
		Message string
	}
)

// NewValidationError reports a single invalid field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Invalid wraps err as a validation failure on field, keeping err matchable.
func Invalid(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: err.Error(), Err: err}
}

func NotFound(kind string, id any) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func Conflict(format string, args ...any) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

func Forbidden(message string) *AuthorizationError {
	return &AuthorizationError{Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
func (e *ValidationError) Unwrap() error        { return e.Err }

func (e *NotFoundError) Error() string {
	if e.ID == nil {
		return e.Kind + " not found"
	}
	return fmt.Sprintf("%s %v not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func (e *ConflictError) Error() string        { return e.Message }
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func (e *AuthorizationError) Error() string {
	if e.Message == "" {
		return ErrAuthorization.Error()
	}
	return e.Message
}

func (e *AuthorizationError) Is(target error) bool { return target == ErrAuthorization }
