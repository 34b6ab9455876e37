package domain

import "errors"

var (
	ErrNotFound    = errors.New("version not found")
	ErrDocNotFound = errors.New("document not found")
	ErrValidation  = errors.New("invalid input")
	ErrCorruptData = errors.New("corrupt stored data")

	// ErrConflict is reserved for a future strict-conflict mode; the current
	// last-write-wins policy never returns it.
	ErrConflict = errors.New("version conflict")
)
