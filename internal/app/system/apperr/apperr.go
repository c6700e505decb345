// internal/app/system/apperr/apperr.go
//
// Package apperr classifies failures at the workflow/handler boundary.
// Stores return sentinel errors; workflows translate them into an *Error of
// a Kind, and the HTTP layer maps the Kind to a status code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the category of a failure.
type Kind int

const (
	Internal Kind = iota
	Unauthenticated
	Unauthorized
	Forbidden
	NotFound
	Conflict
	Validation
	DependencyFailure
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Validation:
		return "validation"
	case DependencyFailure:
		return "dependency_failed"
	default:
		return "internal"
	}
}

// Status returns the HTTP status code for k.
func (k Kind) Status() int {
	switch k {
	case Unauthenticated, Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Validation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Message is safe to show to the caller;
// Err is the underlying cause, logged but never returned over HTTP.
type Error struct {
	Kind    Kind
	Message string
	Code    string            // overrides Kind.String() in responses
	Details map[string]string // extra response fields, e.g. invitationId
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// ResponseCode is the machine-readable code written to clients.
func (e *Error) ResponseCode() string {
	if e.Code != "" {
		return e.Code
	}
	return e.Kind.String()
}

// New returns an *Error of kind k.
func New(k Kind, msg string) *Error {
	return &Error{Kind: k, Message: msg}
}

// Wrap returns an *Error of kind k with cause err.
func Wrap(k Kind, msg string, err error) *Error {
	return &Error{Kind: k, Message: msg, Err: err}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
