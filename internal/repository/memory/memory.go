package memory

import (
	"context"
	"sync"

	"github.com/weatherapp/backend/internal/domain"
)

// Repository implements domain.KeyValueStore in process memory, for tests and
// for running without a database
type Repository struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewRepository creates an empty in-memory store
func NewRepository() *Repository {
	return &Repository{
		values: make(map[string][]byte),
	}
}

// Get returns a copy of the stored value
func (r *Repository) Get(ctx context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.values[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set stores a copy of value
func (r *Repository) Set(ctx context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	r.values[key] = v
	return nil
}

// Health always returns nil in memory mode
func (r *Repository) Health(ctx context.Context) error {
	return nil
}

// Close is a no-op in memory mode
func (r *Repository) Close() error {
	return nil
}
