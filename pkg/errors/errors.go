package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same code, so cloned errors still match
// the predefined kinds below.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Error codes exposed to API clients.
const (
	CodeNotFound               = "NOT_FOUND"
	CodeForbidden              = "FORBIDDEN"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeValidation             = "VALIDATION_FAILED"
	CodeStateConflict          = "STATE_CONFLICT"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeInternal               = "INTERNAL_ERROR"
)

// Predefined errors for common scenarios.
var (
	ErrNotFound               = New(CodeNotFound, http.StatusNotFound, "resource not found")
	ErrForbidden              = New(CodeForbidden, http.StatusForbidden, "forbidden")
	ErrUnauthorized           = New(CodeUnauthorized, http.StatusUnauthorized, "unauthorized")
	ErrValidation             = New(CodeValidation, http.StatusBadRequest, "validation failed")
	ErrStateConflict          = New(CodeStateConflict, http.StatusBadRequest, "operation not allowed in current state")
	ErrConcurrentModification = New(CodeConcurrentModification, http.StatusConflict, "resource was modified by another user")
	ErrInternal               = New(CodeInternal, http.StatusInternalServerError, "internal server error")
)

// NotFound returns a NOT_FOUND error with the given message.
func NotFound(message string) *Error {
	return Clone(ErrNotFound, message)
}

// Forbidden returns a FORBIDDEN error with the given message.
func Forbidden(message string) *Error {
	return Clone(ErrForbidden, message)
}

// Validation returns a VALIDATION_FAILED error with the given message.
func Validation(message string) *Error {
	return Clone(ErrValidation, message)
}

// StateConflict returns a STATE_CONFLICT error with the given message.
func StateConflict(message string) *Error {
	return Clone(ErrStateConflict, message)
}

// ConcurrentModification returns a CONCURRENT_MODIFICATION error with the given message.
func ConcurrentModification(message string) *Error {
	return Clone(ErrConcurrentModification, message)
}

// Internal wraps an infrastructure failure without leaking its details to callers.
func Internal(err error, message string) *Error {
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, message)
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// IsRetryable reports whether the caller may retry after reloading current state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
