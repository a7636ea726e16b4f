package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConnection     = errors.New("database connection failed")
	ErrLookupMiss     = errors.New("lookup miss")
	ErrMalformedInput = errors.New("malformed input")
	ErrAmbiguousMatch = fmt.Errorf("%w: ambiguous name match", ErrMalformedInput)
	ErrRowsRejected   = errors.New("rows rejected")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
)

// Malformed wraps a formatted message with ErrMalformedInput.
func Malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...))
}
