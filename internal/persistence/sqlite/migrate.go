package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations holds the ordered schema steps. The schema version recorded in
// PRAGMA user_version equals the number of applied steps; append-only.
var migrations = []string{
	`CREATE TABLE users (
		email         TEXT PRIMARY KEY,
		display_name  TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,
	`CREATE TABLE rooms (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT,
		created_by  TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,
	`CREATE TABLE room_members (
		room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		email   TEXT NOT NULL,
		role    TEXT NOT NULL,
		PRIMARY KEY (room_id, email)
	)`,
	`CREATE TABLE bookings (
		id         TEXT PRIMARY KEY,
		room_id    TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		title      TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time   TEXT NOT NULL,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT,
		CHECK (end_time > start_time)
	)`,
	`CREATE INDEX idx_bookings_room_end ON bookings (room_id, end_time)`,
	`CREATE TABLE booking_participants (
		booking_id TEXT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
		email      TEXT NOT NULL,
		PRIMARY KEY (booking_id, email)
	)`,
	`CREATE TABLE sessions (
		id         TEXT PRIMARY KEY,
		email      TEXT NOT NULL REFERENCES users(email) ON DELETE CASCADE,
		token      TEXT NOT NULL UNIQUE,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		revoked_at TEXT
	)`,
	`CREATE INDEX idx_sessions_expires ON sessions (expires_at)`,
}

// Migrate brings the schema up to the current version. Safe to call on
// every startup; already applied steps are skipped.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	var version int
	if err := pool.DB().QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("sqlite: failed to read schema version: %w", err)
	}
	if version < 0 || version > len(migrations) {
		return fmt.Errorf("sqlite: unknown schema version %d", version)
	}

	for step := version; step < len(migrations); step++ {
		statement := migrations[step]
		next := step + 1
		err := pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, statement); err != nil {
				return fmt.Errorf("sqlite: migration step %d failed: %w", next, err)
			}
			// PRAGMA does not support placeholders.
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", next)); err != nil {
				return fmt.Errorf("sqlite: failed to record schema version %d: %w", next, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}
