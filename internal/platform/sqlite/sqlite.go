package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Open opens a SQLite database (pure Go driver), applies pragmas and runs
// migrations. ":memory:" is pinned to one connection so every query sees the
// same database.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty sqlite path")
	}

	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the users table if missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			telegram_id INTEGER PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL DEFAULT '',
			language_code TEXT NOT NULL DEFAULT '',
			is_premium BOOLEAN NOT NULL DEFAULT 0,
			city TEXT NOT NULL DEFAULT '',
			delivery_address TEXT NOT NULL DEFAULT '',
			wallet_address TEXT NOT NULL DEFAULT '',
			agreed_to_terms BOOLEAN NOT NULL DEFAULT 0,
			onboarding_completed BOOLEAN NOT NULL DEFAULT 0,
			is_blocked BOOLEAN NOT NULL DEFAULT 0,
			role TEXT NOT NULL DEFAULT 'user',
			chat_id INTEGER,
			creation_key TEXT NOT NULL DEFAULT '',
			registered_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_chat_id ON users(chat_id)`,
	}

	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	log.Debug().Int("count", len(migrations)).Msg("sqlite migrations applied")
	return nil
}
