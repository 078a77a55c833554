package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLite is a KV backed by one of the agent database's key/value tables.
type SQLite struct {
	db    *sql.DB
	table string
}

// NewSQLiteSession returns the KV used for the session handoff. Values survive
// agent restarts, which mirrors a browser profile's session store.
func NewSQLiteSession(db *sql.DB) *SQLite {
	return &SQLite{db: db, table: "session_store"}
}

// NewSQLiteConfig returns the KV over the agent's private settings table
// (auth token, device ID).
func NewSQLiteConfig(db *sql.DB) *SQLite {
	return &SQLite{db: db, table: "config"}
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM "+s.table+" WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s/%s: %w", s.table, key, err)
	}
	return value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	var err error
	switch s.table {
	case "session_store":
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO session_store (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, key, value, time.Now().UTC().Format(time.RFC3339))
	default:
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO config (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value)
	}
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", s.table, key, err)
	}
	return nil
}
