// Package postgres persists shortlists to PostgreSQL through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/hupe1980/where2work/internal/selection"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/where2work?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

var _ selection.Store = (*Store)(nil)

// Store keeps one JSONB set per session row.
type Store struct {
	db *sql.DB
}

// NewStore connects to dsn, falling back to a local default, and ensures
// the selections table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}

	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS selections (
		session TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure selections table: %w", err)
	}

	return &Store{db: db}, nil
}

// Load returns the session's set, or an empty set for unknown sessions.
func (s *Store) Load(ctx context.Context, session string) (selection.Set, error) {
	if err := selection.CheckSession(session); err != nil {
		return selection.Set{}, err
	}

	var payload []byte

	err := s.db.QueryRowContext(ctx, `SELECT payload FROM selections WHERE session = $1`, session).Scan(&payload)
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

	if _, err := s.db.ExecContext(ctx, `INSERT INTO selections(session, payload) VALUES($1, $2)
		ON CONFLICT(session) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
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

	if _, err := s.db.ExecContext(ctx, `DELETE FROM selections WHERE session = $1`, session); err != nil {
		return fmt.Errorf("delete selection: %w", err)
	}

	return nil
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}
