package db

import (
	"context"
	"fmt"
)

// migrationLockID serializes migrations across instances sharing a database.
const migrationLockID int64 = 1000

// withAdvisoryLock runs fn while a session advisory lock is held on a dedicated
// pool connection. The lock is released when fn returns.
func (db *DB) withAdvisoryLock(ctx context.Context, lockID int64, fn func(ctx context.Context) error) error {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", lockID); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}

	defer func() {
		//nolint:errcheck // lock is released on connection close anyway
		_, _ = conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", lockID)
	}()

	return fn(ctx)
}
