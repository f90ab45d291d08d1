package selection

import (
	"context"
	"errors"
)

// ErrInvalidSession is returned for an empty session id.
var ErrInvalidSession = errors.New("session id must not be empty")

// Store persists one Set per session. Implementations must return an empty
// set for unknown sessions.
type Store interface {
	// Load returns the session's set.
	Load(ctx context.Context, session string) (Set, error)
	// Save replaces the session's set.
	Save(ctx context.Context, session string, set Set) error
	// Clear empties the session's set.
	Clear(ctx context.Context, session string) error
	// Close releases resources held by the store.
	Close() error
}

// CheckSession validates a session id.
func CheckSession(session string) error {
	if session == "" {
		return ErrInvalidSession
	}

	return nil
}
