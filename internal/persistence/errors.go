package persistence

import "errors"

var (
	// ErrNotFound is returned when the backing file does not exist yet.
	ErrNotFound = errors.New("persistence: not found")
)
