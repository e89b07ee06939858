// Package errors provides structured error handling with HTTP status code mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error for metrics and response formatting.
type ErrorType string

const (
	// TypeValidation indicates invalid input (HTTP 400)
	TypeValidation ErrorType = "validation"
	// TypeNotFound indicates resource not found (HTTP 404)
	TypeNotFound ErrorType = "not_found"
	// TypeConflict indicates a duplicate unique key (HTTP 400, specific message)
	TypeConflict ErrorType = "conflict"
	// TypeState indicates an operation against a closed entity (HTTP 403)
	TypeState ErrorType = "state"
	// TypeInternal indicates server-side error (HTTP 500)
	TypeInternal ErrorType = "internal"
)

// Error represents a structured error with type, message, and context.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the appropriate HTTP status code for this error type.
// Conflicts map to 400: the public API reports a duplicate join code the same
// way as any other bad request, just with a specific message.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation, TypeConflict:
		return http.StatusBadRequest
	case TypeNotFound:
		return http.StatusNotFound
	case TypeState:
		return http.StatusForbidden
	case TypeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ValidationError creates a new validation error (HTTP 400).
func ValidationError(message string) *Error {
	return &Error{Type: TypeValidation, Message: message, Context: make(map[string]any)}
}

// NotFoundError creates a new not-found error (HTTP 404).
func NotFoundError(message string) *Error {
	return &Error{Type: TypeNotFound, Message: message, Context: make(map[string]any)}
}

// ConflictError creates a new conflict error (HTTP 400).
func ConflictError(message string) *Error {
	return &Error{Type: TypeConflict, Message: message, Context: make(map[string]any)}
}

// StateError creates a new state error (HTTP 403).
func StateError(message string) *Error {
	return &Error{Type: TypeState, Message: message, Context: make(map[string]any)}
}

// InternalError creates a new internal error (HTTP 500). The cause is logged
// but never leaked to the caller.
func InternalError(message string, cause error) *Error {
	return &Error{Type: TypeInternal, Message: message, Cause: cause, Context: make(map[string]any)}
}

// WithField adds a context field to the error (chainable).
func (e *Error) WithField(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ErrorResponse represents the JSON structure sent to clients.
type ErrorResponse struct {
	Error string    `json:"error"`
	Type  ErrorType `json:"type"`
}

// ToResponse converts an Error to an ErrorResponse for JSON serialization.
// Context fields are for logs only and are not exposed.
func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.Message, Type: e.Type}
}

// AsStructuredError converts any error into a structured Error. If err is
// already an *Error, it is returned unchanged; anything else becomes an
// internal error so no detail leaks.
func AsStructuredError(err error) *Error {
	var structured *Error
	if errors.As(err, &structured) {
		return structured
	}
	return InternalError("internal server error", err)
}
