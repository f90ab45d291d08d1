package cycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/where2work/internal/filter"
	"github.com/hupe1980/where2work/internal/logging"
	"github.com/hupe1980/where2work/internal/selection"
)

// Service runs cycles for sessions whose shortlists live in a Store. Cycles
// of the same session are serialised; different sessions run independently.
type Service struct {
	engine *Engine
	store  selection.Store

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock serialises the cycles of one session. refs counts the
// holders and waiters; the entry is dropped when it reaches zero.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewService binds engine to store.
func NewService(engine *Engine, store selection.Store) *Service {
	return &Service{
		engine: engine,
		store:  store,
		locks:  make(map[string]*sessionLock),
	}
}

// WithEngine returns a Service that runs engine against the same store.
// Session locks are not shared with s.
func (s *Service) WithEngine(engine *Engine) *Service {
	return NewService(engine, s.store)
}

// Engine returns the underlying engine.
func (s *Service) Engine() *Engine {
	return s.engine
}

func (s *Service) lock(session string) func() {
	s.mu.Lock()

	l, ok := s.locks[session]
	if !ok {
		l = &sessionLock{}
		s.locks[session] = l
	}

	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		defer s.mu.Unlock()

		l.refs--
		if l.refs == 0 {
			delete(s.locks, session)
		}
	}
}

// Shortlist returns the session's current set.
func (s *Service) Shortlist(ctx context.Context, session string) (selection.Set, error) {
	set, err := s.store.Load(ctx, session)
	if err != nil {
		return selection.Set{}, fmt.Errorf("loading shortlist: %w", err)
	}

	return set, nil
}

// Render runs a cycle without a click.
func (s *Service) Render(ctx context.Context, session string, criteria filter.Criteria) (*Render, error) {
	ctx = logging.WithSession(ctx, session)

	defer s.lock(session)()

	set, err := s.Shortlist(ctx, session)
	if err != nil {
		return nil, err
	}

	return s.engine.Render(ctx, criteria, set)
}

// Click runs a cycle for click and persists the set when it changed.
func (s *Service) Click(ctx context.Context, session string, criteria filter.Criteria, click MarkerClick) (*Step, error) {
	ctx = logging.WithSession(ctx, session)

	defer s.lock(session)()

	set, err := s.Shortlist(ctx, session)
	if err != nil {
		return nil, err
	}

	step, err := s.engine.Cycle(ctx, criteria, set, &click)
	if err != nil {
		return nil, err
	}

	if step.Outcome.Changed() {
		if err := s.store.Save(ctx, session, step.Selection); err != nil {
			return nil, fmt.Errorf("saving shortlist: %w", err)
		}
	}

	return step, nil
}

// Clear empties the session's shortlist and renders the result.
func (s *Service) Clear(ctx context.Context, session string, criteria filter.Criteria) (*Render, error) {
	ctx = logging.WithSession(ctx, session)

	defer s.lock(session)()

	if err := s.store.Clear(ctx, session); err != nil {
		return nil, fmt.Errorf("clearing shortlist: %w", err)
	}

	return s.engine.Render(ctx, criteria, selection.New())
}
