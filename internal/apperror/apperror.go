// Package apperror defines the error taxonomy shared by every layer of the runtime.
//
// Callers match on the sentinel values with errors.Is and extract the
// human-readable message with errors.As(*AppError). Communication failures and
// timeouts belong here too: a page session surfaces them inline in the block's
// result area, while the JSON API maps them to 502 and 504.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
	ErrCommunication = errors.New("communication error")
	ErrTimeout       = errors.New("communication timeout")
)

type AppError struct {
	Err     error  // sentinel
	Message string // Human-readable error message
	Field   string // Optional: field or failure category
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

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Communication reports a failed exchange with a remote service. The category
// ("network", "status 502", "decode") is kept in Field so the page can name it.
func Communication(category string, cause error) *AppError {
	msg := "communication error: " + category
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return &AppError{
		Err:     ErrCommunication,
		Message: msg,
		Field:   category,
	}
}

// Timeout reports a remote call that did not answer within its bounded wait.
func Timeout(operation string) *AppError {
	return &AppError{
		Err:     ErrTimeout,
		Message: fmt.Sprintf("communication timeout: %s", operation),
		Field:   "timeout",
	}
}

// Category returns the failure category carried by err, or "" if err is not an AppError.
func Category(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
