package errors

import (
	"errors"
)

// Sentinel errors for the hubblepad error taxonomy.
var (
	// ErrNotFound - hook or document not found (404 at the HTTP boundary)
	ErrNotFound = errors.New("not found")

	// ErrDisabled - hook exists but is disabled (400 at the HTTP boundary, no execution)
	ErrDisabled = errors.New("disabled")

	// ErrInvalidInput - submitted document failed validation, nothing written
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransient - lock contention or other retryable condition
	ErrTransient = errors.New("transient error")

	// ErrInternal - failure loading, parsing or saving durable state
	ErrInternal = errors.New("internal error")
)
