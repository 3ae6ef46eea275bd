// Package errs defines the typed failures returned by the fleet providers.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure
type Kind int

const (
	// KindValidation is malformed input, rejected before any write
	KindValidation Kind = iota + 1
	// KindNotFound means a referenced id does not exist
	KindNotFound
	// KindConflict is a unique constraint violation
	KindConflict
	// KindIntegrity means a write references a missing related entity
	KindIntegrity
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindIntegrity:
		return "integrity"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is checks
var (
	ErrValidation = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrNotFound   = &Error{Kind: KindNotFound, Message: "not found"}
	ErrConflict   = &Error{Kind: KindConflict, Message: "already exists"}
	ErrIntegrity  = &Error{Kind: KindIntegrity, Message: "integrity violation"}
)

// Error is a typed failure carrying a human readable message
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

// Is matches any *Error of the same kind. An integrity failure also
// matches ErrNotFound since it is always caused by a missing entity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return e.Kind == KindIntegrity && t.Kind == KindNotFound
}

// Validation builds a validation failure
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a not-found failure
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict builds a conflict failure wrapping the store error
func Conflict(err error, format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...), Err: err}
}

// Integrity builds an integrity failure
func Integrity(format string, args ...any) error {
	return &Error{Kind: KindIntegrity, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or 0 when err is not a typed failure
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
