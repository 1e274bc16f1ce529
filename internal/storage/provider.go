// Package storage defines the key-value boundary that backs the note store.
//
// Keys are page URLs (plus one fixed settings key). Values are raw JSON
// documents: either a bare string (legacy note) or a structured object.
package storage

import "context"

// Provider is the interface for key-value storage operations.
type Provider interface {
	// Get returns the raw value stored under key, or apperr.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set fully replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. A missing key is not an error.
	Delete(ctx context.Context, key string) error
	// All returns every stored key with its raw value.
	All(ctx context.Context) (map[string][]byte, error)
	// Close releases the underlying resources.
	Close() error
}

// Drivers.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
	DriverMemory = "memory"
)

// Open constructs the provider for driver rooted at path.
func Open(driver, path string) (Provider, error) {
	switch driver {
	case DriverSQLite:
		return OpenSQLite(path)
	case DriverFile:
		return NewFile(path)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, &UnknownDriverError{Driver: driver}
	}
}

// UnknownDriverError is returned by Open for an unsupported driver name.
type UnknownDriverError struct {
	Driver string
}

func (e *UnknownDriverError) Error() string {
	return "storage: unknown driver " + e.Driver
}
