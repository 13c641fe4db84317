package interfaces

import "errors"

// Error kinds shared by storage backends, the roster manager and the outer surfaces.
// Callers test for them with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrCorruptData    = errors.New("corrupt roster data")
	ErrIO             = errors.New("storage i/o failure")
	ErrNoActiveRoster = errors.New("no roster is currently selected")
	ErrEmptyRoster    = errors.New("roster has no students")
)
