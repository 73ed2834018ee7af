package domain

import "errors"

var (
	// ErrValidation marks caller-supplied input that cannot be accepted.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a lookup for a row that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks an operation rejected because of current row state.
	ErrConflict = errors.New("conflict")
)
