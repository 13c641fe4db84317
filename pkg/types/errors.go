package types

import "errors"

// Validation errors returned by the types package
var (
	ErrInvalidClassName   = errors.New("class name must be 1-100 characters and usable as a file name")
	ErrInvalidStudentName = errors.New("student name cannot be blank")
	ErrInvalidDocument    = errors.New("roster document is not a valid student list")
)
