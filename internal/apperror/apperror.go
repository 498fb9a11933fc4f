// Package apperror defines the error taxonomy shared by every layer.
//
// Services return *AppError values that wrap one of the sentinel errors
// below. Handlers never inspect messages; they match the sentinel with
// errors.Is and pick the HTTP status from it.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrPublication     = errors.New("publication failed")
)

type AppError struct {
	Err     error  // sentinel
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a duplicate resource or an illegal state change.
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// AccessDenied returns an AppError naming the policy rule that rejected
// the operation, e.g. "only owners may publish".
func AccessDenied(rule string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: rule,
	}
}

// AuthenticationFailed is deliberately vague: callers must not learn
// whether the user was unknown or the secret was wrong.
func AuthenticationFailed() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "sign-in failed",
	}
}

// PublicationFailed wraps an adapter error. The cause stays reachable
// through errors.Is/As on the returned value's Err chain.
func PublicationFailed(cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrPublication, cause),
		Message: cause.Error(),
	}
}
