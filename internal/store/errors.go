package store

import "errors"

var (
	// ErrNotFound is returned when no record matches the lookup or owner filter.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a write violates the unique email index.
	ErrDuplicate = errors.New("duplicate key")
)
