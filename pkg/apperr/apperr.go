package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies the category of an application error. The kind string is
// what clients see in the "error" field of the wire error body.
type Kind string

const (
	KindValidation   Kind = "ValidationError"
	KindBadRequest   Kind = "BadRequestError"
	KindUnauthorized Kind = "UnauthorizedError"
	KindNotFound     Kind = "NotFoundError"
	KindConflict     Kind = "ConflictError"
	KindInternal     Kind = "InternalServerError"
)

// Issue describes a single field-level problem attached to a
// ValidationError or BadRequestError.
type Issue struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error is the typed error that services and guards return. Handlers never
// build HTTP error bodies themselves; the httputil boundary translates an
// *Error into the wire shape and status code.
type Error struct {
	Kind    Kind
	Message string
	Issues  []Issue
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// Status maps the error kind to its HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Validation builds a 400 error carrying field-level issues.
func Validation(message string, issues ...Issue) *Error {
	return &Error{Kind: KindValidation, Message: message, Issues: issues}
}

// BadRequest builds a 400 error for a generic precondition failure.
func BadRequest(message string, issues ...Issue) *Error {
	return &Error{Kind: KindBadRequest, Message: message, Issues: issues}
}

// Unauthorized builds a 401 error.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// NotFound builds a 404 error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Conflict builds a 409 error.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Internal wraps an unexpected error. The cause is kept for server-side
// logging; the client only ever sees the generic message.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", cause: cause}
}

// From returns err as an *Error, masking anything untyped as an internal
// error so no detail leaks to the client.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// IsKind reports whether err is an application error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
