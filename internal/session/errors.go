package session

import "errors"

// Session management error types
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSession  = errors.New("invalid session ID format")
)
