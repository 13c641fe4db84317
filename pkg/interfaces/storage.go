package interfaces

import "context"

// Storage persists one opaque document per class name
// ARCHITECTURAL DISCOVERY: Whole-document reads and writes only; the roster
// manager owns encoding so backends stay interchangeable (directory, SQLite)
type Storage interface {
	// List returns the class names of all stored documents, sorted.
	List(ctx context.Context) ([]string, error)

	// Exists reports whether a document is stored under className.
	Exists(ctx context.Context, className string) (bool, error)

	// Read returns the document for className or ErrNotFound.
	Read(ctx context.Context, className string) ([]byte, error)

	// Write replaces the document for className. A failed write must leave the
	// previous version intact.
	Write(ctx context.Context, className string, data []byte) error

	// Delete removes the document for className or returns ErrNotFound.
	Delete(ctx context.Context, className string) error

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
