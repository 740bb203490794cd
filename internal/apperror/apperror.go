// Package apperror defines the application error taxonomy and its mapping
// to HTTP status codes.
package apperror

import (
	"errors"
	"net/http"
)

// Kind categorizes an application error.
type Kind int

const (
	// Unknown is for unspecified errors.
	Unknown Kind = iota
	// Validation represents an input validation failure.
	Validation
	// Auth represents a failed or missing authentication token.
	Auth
	// Forbidden represents rejected credentials (login).
	Forbidden
	// NotFound represents a missing resource.
	NotFound
	// Store represents an underlying database failure.
	Store
)

// FieldError describes a single invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the application error type. Message is the user-facing text;
// Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode maps the error kind to an HTTP status code.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case Validation:
		return http.StatusBadRequest
	case Auth:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Store:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Response is the JSON body sent to clients for any failed request.
type Response struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
}

// ToResponse converts the error to its client-facing payload. The underlying
// cause is never included.
func (e *Error) ToResponse() Response {
	return Response{Error: e.Message, Fields: e.Fields}
}

// NewValidation creates a Validation error with an optional field list.
func NewValidation(message string, fields ...FieldError) *Error {
	return &Error{Kind: Validation, Message: message, Fields: fields}
}

// NewAuth creates an Auth error.
func NewAuth(message string, err error) *Error {
	return &Error{Kind: Auth, Message: message, Err: err}
}

// NewForbidden creates a Forbidden error.
func NewForbidden(message string) *Error {
	return &Error{Kind: Forbidden, Message: message}
}

// NewNotFound creates a NotFound error.
func NewNotFound(message string) *Error {
	return &Error{Kind: NotFound, Message: message}
}

// NewStore creates a Store error wrapping a database failure.
func NewStore(message string, err error) *Error {
	return &Error{Kind: Store, Message: message, Err: err}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool { return IsKind(err, NotFound) }

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool { return IsKind(err, Validation) }
