package health

import "errors"

var (
	// ErrCheckTimeout indicates a health check exceeded its timeout.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckCrashed indicates a check implementation failed unexpectedly,
	// by panicking or returning an error instead of a result.
	ErrCheckCrashed = errors.New("health: check crashed")

	// ErrCheckNotStarted indicates the caller gave up before the check got
	// a concurrency slot.
	ErrCheckNotStarted = errors.New("health: check not started")

	// ErrCheckNotFound indicates a check was not found.
	ErrCheckNotFound = errors.New("health: check not found")

	// ErrDuplicateCheck indicates a check name is already registered.
	ErrDuplicateCheck = errors.New("health: duplicate check name")

	// ErrInvalidCheck indicates a check cannot be registered.
	ErrInvalidCheck = errors.New("health: invalid check")
)
