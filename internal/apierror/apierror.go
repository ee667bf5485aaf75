// Package apierror defines the errors handlers return to the HTTP error boundary.
package apierror

import (
	"errors"
	"net/http"
)

// MsgInternal is the only message clients see for unexpected failures
const MsgInternal = "Erro interno do servidor"

// Error is an error that knows which HTTP status and message it maps to
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation is a 400 for missing or malformed input
func Validation(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

// Unauthorized is a 401 for missing credentials
func Unauthorized(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: message}
}

// Forbidden is a 403 for an authenticated caller lacking the required role
func Forbidden(message string) *Error {
	return &Error{Status: http.StatusForbidden, Message: message}
}

// NotFound is a 404
func NotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Message: message}
}

// TooManyRequests is a 429
func TooManyRequests(message string) *Error {
	return &Error{Status: http.StatusTooManyRequests, Message: message}
}

// Internal wraps an infrastructure failure. The cause is logged, never returned.
func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: MsgInternal, Err: err}
}

// From classifies any error. Errors that are not *Error become internal.
func From(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal(err)
}
