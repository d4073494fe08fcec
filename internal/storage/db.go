// Package db provides read access to the relational Source Store of the research
// dashboard.
//
// This package contains:
//   - DB: PostgreSQL connection pool (pgx) with pool options and connection retries
//   - SQLite: embedded database/sql store for local deployments and tests
//   - Source: the table loaders the aggregation engine rebuilds from, shared by both
//   - Migration support via goose for the reference schema
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/lueurxax/research-dashboard/internal/platform/worker"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	Pool   *pgxpool.Pool
	Logger *zerolog.Logger
}

// PoolOptions configures the database connection pool.
type PoolOptions struct {
	MaxConns          int32
	MinConns          int32
	MaxConnIdleTime   time.Duration
	MaxConnLifetime   time.Duration
	HealthCheckPeriod time.Duration
}

// NewWithOptions creates a new database connection. Zero pool options keep the
// pgxpool defaults.
func NewWithOptions(ctx context.Context, dsn string, opts PoolOptions, logger *zerolog.Logger) (*DB, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	applyPoolOptions(config, opts)

	return connectWithRetries(ctx, config, orNop(logger))
}

func applyPoolOptions(config *pgxpool.Config, opts PoolOptions) {
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}

	if opts.MinConns > 0 {
		config.MinConns = opts.MinConns
	}

	if opts.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	if opts.MaxConnLifetime > 0 {
		config.MaxConnLifetime = opts.MaxConnLifetime
	}

	if opts.HealthCheckPeriod > 0 {
		config.HealthCheckPeriod = opts.HealthCheckPeriod
	}
}

// connectWithRetries keeps trying until the pool answers a ping, the retry budget
// runs out or ctx is done.
func connectWithRetries(ctx context.Context, config *pgxpool.Config, logger *zerolog.Logger) (*DB, error) {
	var pool *pgxpool.Pool

	var err error

	for i := 0; i < maxConnectionRetries; i++ {
		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return &DB{Pool: pool, Logger: logger}, nil
			}
		}

		if pool != nil {
			pool.Close()
		}

		logger.Warn().Err(err).Int("attempt", i+1).Msg("database not ready, retrying")

		if err := worker.Wait(ctx, ConnectionRetrySleep); err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
	}

	return nil, fmt.Errorf("failed to connect to database after retries: %w", err)
}

// Close closes the database connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// Ping verifies the pool can reach the server.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	return nil
}

// Source returns the table loaders backed by this pool.
func (db *DB) Source() *Source {
	return newSource(postgresDialect, db.query, db.Ping, db.Logger)
}

func (db *DB) query(ctx context.Context, sql string) (rowScanner, func(), error) {
	rows, err := db.Pool.Query(ctx, sql)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // wrapped by the loader with the table name
	}

	return rows, rows.Close, nil
}

type gooseLogger struct {
	logger *zerolog.Logger
}

func (l *gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatal().Msgf(format, v...)
}

func (l *gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info().Msgf(format, v...)
}

// Migrate applies the reference schema using goose.
// It holds an advisory lock so only one instance migrates at a time.
func (db *DB) Migrate(ctx context.Context) error {
	return db.withAdvisoryLock(ctx, migrationLockID, func(ctx context.Context) error {
		dbSQL := stdlib.OpenDB(*db.Pool.Config().ConnConfig)

		defer func() {
			_ = dbSQL.Close()
		}()

		return runGoose(ctx, dbSQL, postgresDialect, db.Logger)
	})
}
