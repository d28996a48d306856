package core

import "errors"

// Error taxonomy shared by the store, the calendar and the HTTP layer.
// Callers match with errors.Is; concrete errors wrap one of these.
var (
	// ErrStorageUnavailable means persistent storage could not be opened.
	// Callers degrade to memory-only operation.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrConstraintViolation covers uniqueness and validation failures.
	ErrConstraintViolation = errors.New("constraint violation")

	ErrNotFound = errors.New("not found")

	// ErrParse is returned when a date string does not match the expected format.
	ErrParse = errors.New("parse error")
)
