package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/weatherapp/backend/internal/domain"
	"github.com/weatherapp/backend/internal/repository/memory"
	"github.com/weatherapp/backend/internal/repository/postgres"
	"github.com/weatherapp/backend/internal/repository/redis"
	"github.com/weatherapp/backend/internal/repository/sqlite"
)

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Options selects and configures a KeyValueStore backend
type Options struct {
	Driver        string
	SQLitePath    string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open creates the configured store and checks that it is reachable
func Open(ctx context.Context, opts Options) (domain.KeyValueStore, error) {
	switch opts.Driver {
	case DriverMemory, "":
		return memory.NewRepository(), nil

	case DriverSQLite:
		return sqlite.NewRepository(opts.SQLitePath)

	case DriverPostgres:
		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to create postgres pool: %w", err)
		}
		repo := postgres.NewPostgresRepository(pool)
		if err := repo.Health(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return repo, nil

	case DriverRedis:
		return redis.NewRepository(ctx, redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})

	default:
		return nil, fmt.Errorf("repository: unknown storage driver %q", opts.Driver)
	}
}
