package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is a named, ordered schema change. Applied versions are recorded
// in schema_migrations so Migrate is safe to call on every start.
type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "create_users",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'USER' CHECK (role IN ('USER', 'ADMIN')),
				created_at TEXT NOT NULL
			)`,
		},
	},
	{
		version: 2,
		name:    "create_books",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS books (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				author TEXT NOT NULL,
				genre TEXT NOT NULL,
				isbn TEXT NOT NULL UNIQUE,
				total_copies INTEGER NOT NULL CHECK (total_copies >= 0),
				available_copies INTEGER NOT NULL
					CHECK (available_copies >= 0 AND available_copies <= total_copies),
				description TEXT,
				created_at TEXT NOT NULL
			)`,
		},
	},
	{
		version: 3,
		name:    "create_loans",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS loans (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
				status TEXT NOT NULL CHECK (status IN ('BORROWED', 'RETURNED')),
				borrowed_at TEXT NOT NULL,
				due_at TEXT NOT NULL,
				returned_at TEXT,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_loans_user_id ON loans(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_loans_book_id ON loans(book_id)`,
			// One active loan per (user, book): the partial index makes the
			// second concurrent borrow fail as a unique violation instead of
			// being silently admitted.
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_loans_active_user_book
				ON loans(user_id, book_id) WHERE status = 'BORROWED'`,
		},
	},
	{
		version: 4,
		name:    "create_activity_logs",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS activity_logs (
				id TEXT PRIMARY KEY,
				user_id TEXT REFERENCES users(id) ON DELETE SET NULL,
				book_id TEXT REFERENCES books(id) ON DELETE SET NULL,
				action TEXT NOT NULL,
				message TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_logs_user_id ON activity_logs(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_logs_book_id ON activity_logs(book_id)`,
		},
	},
	{
		version: 5,
		name:    "create_sessions",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				token TEXT NOT NULL UNIQUE,
				expires_at TEXT NOT NULL,
				created_at TEXT NOT NULL,
				revoked_at TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`,
		},
	},
}

// Migrate applies any pending schema migrations.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	if _, err := cp.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	for _, m := range migrations {
		applied, err := cp.migrationApplied(ctx, m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		err = cp.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.stmts {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
				}
			}
			_, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.version, m.name)
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (cp *ConnectionPool) migrationApplied(ctx context.Context, version int) (bool, error) {
	var count int
	err := cp.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	return count > 0, nil
}
