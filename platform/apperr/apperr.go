// Package apperr defines the typed errors services return. The HTTP layer
// maps them onto status codes so handlers never pick codes themselves.
package apperr

import (
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP mapping.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound marks a missing resource.
	KindNotFound
	// KindValidation marks rejected input.
	KindValidation
	// KindConflict marks a clash with current state, such as a stale
	// revision or a duplicate pipeline.
	KindConflict
	// KindForbidden marks an action the caller may not perform.
	KindForbidden
	// KindUnauthorized marks missing or failed authentication.
	KindUnauthorized
	// KindBadRequest marks a malformed request.
	KindBadRequest
	// KindUnavailable marks a failed downstream collaborator.
	KindUnavailable
	// KindInternal marks an unexpected failure.
	KindInternal
)

// Error carries a Kind alongside the message so transports can map it.
type Error struct {
	Kind    Kind
	Message string
	Err     error       // wrapped cause, optional
	Details interface{} // extra payload for the response, optional
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the error kind to a status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// New builds an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an error of the given kind around an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithDetails attaches a details payload carried into the HTTP response.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// NotFound builds a KindNotFound error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Conflict builds a KindConflict error.
func Conflict(message string) *Error {
	return New(KindConflict, message)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
