package domain

import (
	"errors"
	"fmt"
)

// ─── Error Kinds ────────────────────────────────────────────────────────────
// Match with errors.Is; *Error carries the operation that failed.

var (
	// ErrInvalidArgument rejects an out-of-contract input before any mutation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPersistence marks a store read/write failure or a malformed record.
	ErrPersistence = errors.New("persistence error")

	// ErrNotFound marks a lookup of an unknown badge or milestone.
	ErrNotFound = errors.New("not found")

	// ErrCorruptRecord is wrapped in ErrPersistence when a payload cannot be decoded.
	ErrCorruptRecord = errors.New("corrupt state record")

	// ErrUnknownBackend is returned for an unsupported store or ranking backend name.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrBusClosed is returned when publishing to a closed bus.
	ErrBusClosed = errors.New("event bus closed")
)

// Error is an operation-scoped error with a kind.
type Error struct {
	Op   string // e.g. "AddPoints", "load"
	Kind error  // one of the kinds above
	Err  error  // underlying cause, optional
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// InvalidArgument builds an ErrInvalidArgument error for op.
func InvalidArgument(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrInvalidArgument, Err: fmt.Errorf(format, args...)}
}

// PersistenceError wraps a storage failure for op.
func PersistenceError(op string, err error) error {
	return &Error{Op: op, Kind: ErrPersistence, Err: err}
}
