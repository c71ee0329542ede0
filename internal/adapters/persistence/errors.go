package persistence

import (
	"errors"
	"fmt"
)

// ErrPersistence marks failures to read or write the backing store.
var ErrPersistence = errors.New("persistence failure")

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown persistence backend")

// Error describes a failed persistence operation.
type Error struct {
	Op   string // "load", "save" or "open"
	Path string // file path or redacted DSN
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s %s: %v", ErrPersistence, e.Op, e.Path, e.Err)
}

// Unwrap matches both ErrPersistence and the underlying cause.
func (e *Error) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}
