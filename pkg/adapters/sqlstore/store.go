// Package sqlstore persists client state in a SQL table, on SQLite or PostgreSQL.
//
// All stores share one table; each Store instance owns a scope ("local", "session"),
// so several clients or profiles can live in the same database.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/noteq/noteq/pkg/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS client_state (
	scope      TEXT NOT NULL,
	name       TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (scope, name)
)`

// Entry is one stored row.
type Entry struct {
	Scope     string    `db:"scope"`
	Name      string    `db:"name"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Open connects to driver ("sqlite3" or "postgres") and creates the schema.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	if driver == "sqlite3" {
		// SQLite doesn't support multiple writers.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return db, nil
}

// Store implements core.Store for one scope.
type Store struct {
	db    *sqlx.DB
	scope string
	now   func() time.Time
}

// New binds a scope to an open database.
func New(db *sqlx.DB, scope string) *Store {
	return &Store{db: db, scope: scope, now: time.Now}
}

// Get implements core.Store.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	query := s.db.Rebind(`SELECT value FROM client_state WHERE scope = ? AND name = ?`)
	err := s.db.GetContext(ctx, &value, query, s.scope, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return value, true, nil
}

// Set implements core.Store.
func (s *Store) Set(ctx context.Context, key, value string) error {
	query := s.db.Rebind(`
		INSERT INTO client_state (scope, name, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (scope, name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`)
	if _, err := s.db.ExecContext(ctx, query, s.scope, key, value, s.now().UTC()); err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

// Delete implements core.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	query := s.db.Rebind(`DELETE FROM client_state WHERE scope = ? AND name = ?`)
	if _, err := s.db.ExecContext(ctx, query, s.scope, key); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// Clear implements core.Store.
func (s *Store) Clear(ctx context.Context) error {
	query := s.db.Rebind(`DELETE FROM client_state WHERE scope = ?`)
	if _, err := s.db.ExecContext(ctx, query, s.scope); err != nil {
		return fmt.Errorf("failed to clear scope %q: %w", s.scope, err)
	}
	return nil
}

// Entries lists the rows of the scope ordered by name.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	query := s.db.Rebind(`SELECT scope, name, value, updated_at FROM client_state WHERE scope = ? ORDER BY name`)
	if err := s.db.SelectContext(ctx, &entries, query, s.scope); err != nil {
		return nil, fmt.Errorf("failed to list scope %q: %w", s.scope, err)
	}
	return entries, nil
}

var _ core.Store = (*Store)(nil)
