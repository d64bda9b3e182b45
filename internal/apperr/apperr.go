// Package apperr defines the error taxonomy surfaced at the HTTP boundary.
//
// Faults from external collaborators are converted into one of these kinds by the
// component that issued the call, so no raw upstream error reaches the wire.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the caller
type Kind string

const (
	KindInvalidInput           Kind = "invalid-input"
	KindUnauthenticated        Kind = "unauthenticated"
	KindUpstreamUnavailable    Kind = "upstream-unavailable"
	KindPersistenceUnavailable Kind = "persistence-unavailable"
	KindUnexpected             Kind = "unexpected"
)

// Error carries a Kind, a human-readable message and the underlying cause
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: k}) works
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Message == "" && t.Err == nil && t.Kind == e.Kind
	}
	return false
}

// New creates an error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around a cause
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func InvalidInput(message string) *Error {
	return New(KindInvalidInput, message)
}

func Unauthenticated(message string) *Error {
	return New(KindUnauthenticated, message)
}

func PersistenceUnavailable(message string, err error) *Error {
	return Wrap(KindPersistenceUnavailable, message, err)
}

func UpstreamUnavailable(message string, err error) *Error {
	return Wrap(KindUpstreamUnavailable, message, err)
}

func Unexpected(message string, err error) *Error {
	return Wrap(KindUnexpected, message, err)
}

// KindOf returns the kind of err, or KindUnexpected for foreign errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// MessageOf returns the caller-facing message of err
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Something went wrong."
}

// HTTPStatus maps a kind to its response status
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
