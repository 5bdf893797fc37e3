// Package apperr defines the error taxonomy shared by every component of
// the orchestrator: parser, converter, resolver, and orchestrator all
// construct errors through New so callers can branch on Kind with
// errors.Is/errors.As instead of string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure the way the orchestrator's callers need to
// react to it.
type Kind string

const (
	InvalidArgument Kind = "invalid_argument"
	NotFound        Kind = "not_found"
	Timeout         Kind = "timeout"
	InternalError   Kind = "internal_error"
	AlreadyExists   Kind = "already_exists"
)

// Sentinel values so errors.Is(err, apperr.ErrNotFound) works without
// reaching into the concrete *Error.
var (
	ErrInvalidArgument = errors.New(string(InvalidArgument))
	ErrNotFound        = errors.New(string(NotFound))
	ErrTimeout         = errors.New(string(Timeout))
	ErrInternalError   = errors.New(string(InternalError))
	ErrAlreadyExists   = errors.New(string(AlreadyExists))
)

func sentinelFor(k Kind) error {
	switch k {
	case InvalidArgument:
		return ErrInvalidArgument
	case NotFound:
		return ErrNotFound
	case Timeout:
		return ErrTimeout
	case AlreadyExists:
		return ErrAlreadyExists
	default:
		return ErrInternalError
	}
}

// Error is the single error shape used across the codebase, generalizing
// the teacher's DockerError/ParseError into one type with a Kind.
type Error struct {
	Op      string // operation that failed, e.g. "resolver.Resolve"
	Kind    Kind
	Message string
	Err     error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return sentinelFor(e.Kind)
}

func (e *Error) Is(target error) bool {
	return target == sentinelFor(e.Kind)
}

// New constructs an *Error. cause may be nil.
func New(op string, kind Kind, message string, cause error) *Error {
	return &Error{Op: op, Kind: kind, Message: message, Err: cause}
}

// Newf is New with fmt.Sprintf-style formatting of the message.
func Newf(op string, kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf extracts the Kind of err if it (or something it wraps) is an
// *Error; ok is false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
