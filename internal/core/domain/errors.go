package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every error leaving the core service unwraps to one of these.
var (
	ErrMalformedInput = errors.New("malformed input")
	ErrConflict       = errors.New("conflict")
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("access forbidden")
	ErrStoreFailure   = errors.New("store failure")

	// ErrBatchAborted means the batch dispatch itself failed, as opposed to
	// individual items failing.
	ErrBatchAborted = errors.New("batch aborted")

	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
)

// Stable kind names reported to callers.
const (
	KindMalformedInput = "malformed_input"
	KindConflict       = "conflict"
	KindNotFound       = "not_found"
	KindForbidden      = "forbidden"
	KindStoreFailure   = "store_failure"
	KindBatchAborted   = "batch_aborted"
	KindUnknown        = "unknown"
)

// Error carries a taxonomy kind plus a human-readable detail.
type Error struct {
	Kind   error
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// Errorf builds an *Error of the given kind.
func Errorf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// MalformedField reports a missing or unusable input field.
func MalformedField(field, reason string) *Error {
	return &Error{Kind: ErrMalformedInput, Detail: field + ": " + reason}
}

// CourseExists reports a (title, instructor) pair the owner already uses.
func CourseExists(title, instructor string) *Error {
	return Errorf(ErrConflict, "course %q by %q already exists; use update instead", title, instructor)
}

// StoreFailure wraps a persistence error. Errors that already carry a
// taxonomy kind are returned unchanged.
func StoreFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict):
		return err
	}
	return &Error{Kind: ErrStoreFailure, Detail: op, Cause: err}
}

// KindOf returns the stable kind name of err.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedInput):
		return KindMalformedInput
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrStoreFailure):
		return KindStoreFailure
	case errors.Is(err, ErrBatchAborted):
		return KindBatchAborted
	default:
		return KindUnknown
	}
}

// DetailOf returns the human-readable part of err.
func DetailOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Detail
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
