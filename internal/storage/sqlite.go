package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// SQLite is a file-backed or in-memory Source Store.
type SQLite struct {
	DB     *sql.DB
	Logger *zerolog.Logger
}

// OpenSQLite opens the database at path; ":memory:" gives a private in-memory store.
func OpenSQLite(ctx context.Context, path string, logger *zerolog.Logger) (*SQLite, error) {
	conn, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == sqliteMemoryPath {
		conn.SetMaxOpenConns(1)
	}

	if _, err := conn.ExecContext(ctx, sqliteBusyPragma); err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	return &SQLite{DB: conn, Logger: orNop(logger)}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	if err := s.DB.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}

	return nil
}

// Ping verifies the database file is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}

	return nil
}

// Migrate applies the reference schema using goose.
func (s *SQLite) Migrate(ctx context.Context) error {
	return runGoose(ctx, s.DB, sqliteDialect, s.Logger)
}

// Source returns the table loaders backed by this database.
func (s *SQLite) Source() *Source {
	return newSource(sqliteDialect, s.query, s.Ping, s.Logger)
}

func (s *SQLite) query(ctx context.Context, query string) (rowScanner, func(), error) {
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // wrapped by the loader with the table name
	}

	return rows, func() { _ = rows.Close() }, nil
}
