package domain

import (
	"context"
)

// KeyValueStore defines the persistence capability for widget state.
// This follows the Dependency Inversion Principle - domain defines the interface
type KeyValueStore interface {
	// Get returns the stored value or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key string, value []byte) error

	// Health checks backend connectivity
	Health(ctx context.Context) error

	// Close releases the backend
	Close() error
}
