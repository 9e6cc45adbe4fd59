package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/weatherapp/backend/internal/domain"
)

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Repository implements domain.KeyValueStore on Redis string keys
type Repository struct {
	client *redis.Client
}

// NewRepository connects to Redis and verifies connectivity
func NewRepository(ctx context.Context, opts Options) (*Repository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: failed to connect to %s: %w", opts.Addr, err)
	}

	return &Repository{client: client}, nil
}

// NewRepositoryWithClient wraps an existing client
func NewRepositoryWithClient(client *redis.Client) *Repository {
	return &Repository{client: client}
}

// Get returns the stored value or domain.ErrNotFound
func (r *Repository) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: failed to get %q: %w", key, err)
	}
	return value, nil
}

// Set stores value without expiry
func (r *Repository) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis: failed to set %q: %w", key, err)
	}
	return nil
}

// Health pings the server
func (r *Repository) Health(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: health check failed: %w", err)
	}
	return nil
}

// Close closes the client
func (r *Repository) Close() error {
	return r.client.Close()
}
