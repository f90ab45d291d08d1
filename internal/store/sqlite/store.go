// Package sqlite persists shortlists to a SQLite database file using the
// pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/hupe1980/where2work/internal/selection"
)

// DefaultPath is used when no path is configured.
const DefaultPath = "where2work.db"

var _ selection.Store = (*Store)(nil)

// Store keeps one JSON-encoded set per session row.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database at path.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single connection serialises writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS selections (
		session TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create selections table: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Load returns the session's set, or an empty set for unknown sessions.
func (s *Store) Load(ctx context.Context, session string) (selection.Set, error) {
	if err := selection.CheckSession(session); err != nil {
		return selection.Set{}, err
	}

	var payload []byte

	err := s.db.QueryRowContext(ctx, `SELECT payload FROM selections WHERE session = ?`, session).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return selection.New(), nil
	}

	if err != nil {
		return selection.Set{}, fmt.Errorf("select selection: %w", err)
	}

	var set selection.Set
	if err := json.Unmarshal(payload, &set); err != nil {
		return selection.Set{}, fmt.Errorf("session %q: %w", session, err)
	}

	return set, nil
}

// Save upserts the session's set.
func (s *Store) Save(ctx context.Context, session string, set selection.Set) error {
	if err := selection.CheckSession(session); err != nil {
		return err
	}

	payload, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `INSERT INTO selections(session, payload) VALUES(?, ?)
		ON CONFLICT(session) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP`,
		session, payload); err != nil {
		return fmt.Errorf("upsert selection: %w", err)
	}

	return nil
}

// Clear deletes the session's row.
func (s *Store) Clear(ctx context.Context, session string) error {
	if err := selection.CheckSession(session); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM selections WHERE session = ?`, session); err != nil {
		return fmt.Errorf("delete selection: %w", err)
	}

	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
