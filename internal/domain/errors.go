package domain

import "errors"

var (
	// ErrNotFound is returned by lookups for an unknown identifier.
	ErrNotFound = errors.New("not found")
	// ErrEmptySignals is returned when an insight is requested for zero signals.
	ErrEmptySignals  = errors.New("cannot generate insight from empty signals list")
	ErrInvalidWindow = errors.New("window end is before window start")
	// ErrLockHeld means another pipeline run owns the run lock.
	ErrLockHeld = errors.New("pipeline run lock is held")
)
