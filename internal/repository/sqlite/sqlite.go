package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	_ "modernc.org/sqlite"

	"github.com/weatherapp/backend/internal/domain"
)

const schema = `CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// Repository implements domain.KeyValueStore using sqlite (pure Go driver modernc.org/sqlite)
type Repository struct {
	db *sql.DB
}

// NewRepository opens (or creates) the database at path and applies the schema
func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open %s: %w", path, err)
	}

	// WAL keeps readers unblocked during the small synchronous writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		log.Warnw("sqlite: could not set WAL mode", "error", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to apply schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Get returns the stored value or domain.ErrNotFound
func (r *Repository) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get %q: %w", key, err)
	}
	return []byte(value), nil
}

// Set upserts value under key
func (r *Repository) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO kv_store(key, value, updated_at) VALUES(?,?,?)`,
		key, string(value), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("sqlite: failed to set %q: %w", key, err)
	}
	return nil
}

// Health checks the database handle
func (r *Repository) Health(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: health check failed: %w", err)
	}
	return nil
}

// Close closes the database
func (r *Repository) Close() error {
	return r.db.Close()
}
