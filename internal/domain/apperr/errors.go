// Package apperr defines the error taxonomy shared by the engine, the
// record store and the HTTP adapter.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the boundary that reports it.
type Kind string

const (
	KindNotFound              Kind = "NotFound"
	KindForbidden             Kind = "Forbidden"
	KindInvalidParameterValue Kind = "InvalidParameterValue"
	KindConflict              Kind = "Conflict"
	KindInternal              Kind = "Internal"
)

// Sentinels for errors.Is matching. Every *Error matches the sentinel of its kind.
var (
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrForbidden             = &Error{Kind: KindForbidden}
	ErrInvalidParameterValue = &Error{Kind: KindInvalidParameterValue}
	ErrConflict              = &Error{Kind: KindConflict}
	ErrInternal              = &Error{Kind: KindInternal}
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NotFound returns a NotFound error.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Forbidden returns a Forbidden error.
func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// InvalidParameterValue returns an InvalidParameterValue error.
func InvalidParameterValue(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidParameterValue, Message: fmt.Sprintf(format, args...)}
}

// Conflict returns a Conflict error.
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind, keeping it as the cause.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the message of the first *Error in err's chain, falling
// back to err.Error().
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
