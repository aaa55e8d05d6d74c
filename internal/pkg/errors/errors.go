package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDuplicate marks content rejected by a uniqueness constraint or a
	// deduplication pass. Callers treat it as a skip, not a failure.
	ErrDuplicate = errors.New("duplicate")
)
