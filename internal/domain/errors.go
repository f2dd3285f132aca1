package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned by stores when a key is absent or expired.
	ErrKeyNotFound = errors.New("key not found")
	// ErrConflict is returned when an optimistic update lost every race for a key.
	ErrConflict = errors.New("concurrent update conflict")
)

// Kind classifies an error for callers that translate it to a status code.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalid
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not found"
	default:
		return "internal"
	}
}

// Error is the typed error returned by every quiz, attempt and practice operation.
// Message is safe to show to the caller; Err keeps the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Internal wraps an upstream or storage failure.
func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: cause}
}

// KindOf reports the kind of err, treating untyped errors as internal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// PublicMessage returns the caller-facing message of err.
func PublicMessage(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
