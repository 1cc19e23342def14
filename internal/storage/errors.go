package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrPrecondition marks a call the gateway refuses before touching the
	// store: empty or mixed batches, unknown fields.
	ErrPrecondition = errors.New("storage: precondition failed")
	// ErrInsufficientData is returned when a step has nothing to work on.
	ErrInsufficientData = errors.New("storage: insufficient data")
	// ErrNotConfirmed is returned when a destructive operation could not be
	// confirmed interactively.
	ErrNotConfirmed = errors.New("storage: not confirmed")
	// ErrUnknownKind is returned by Lookup for an unregistered backend.
	ErrUnknownKind = errors.New("storage: unknown backend kind")
)

// InsertError reports a failed batch insert. The batch has already been
// written to the quarantine sink when it is returned.
type InsertError struct {
	Table string
	Rows  int
	Err   error
}

func (e *InsertError) Error() string {
	return fmt.Sprintf("storage: insert %d rows into %s: %v", e.Rows, e.Table, e.Err)
}

func (e *InsertError) Unwrap() error { return e.Err }
