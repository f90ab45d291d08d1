// Package memory provides a process-local selection store. Sets live as long
// as the process.
package memory

import (
	"context"
	"sync"

	"github.com/hupe1980/where2work/internal/selection"
)

var _ selection.Store = (*Store)(nil)

// Store keeps one set per session in memory.
type Store struct {
	mu   sync.RWMutex
	sets map[string]selection.Set
}

// New creates an empty store.
func New() *Store {
	return &Store{sets: make(map[string]selection.Set)}
}

// Load returns a copy of the session's set.
func (s *Store) Load(_ context.Context, session string) (selection.Set, error) {
	if err := selection.CheckSession(session); err != nil {
		return selection.Set{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sets[session].Clone(), nil
}

// Save stores a copy of set.
func (s *Store) Save(_ context.Context, session string, set selection.Set) error {
	if err := selection.CheckSession(session); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sets[session] = set.Clone()

	return nil
}

// Clear drops the session's set.
func (s *Store) Clear(_ context.Context, session string) error {
	if err := selection.CheckSession(session); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sets, session)

	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
