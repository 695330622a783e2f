package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps the per-session chat turns and analysis history.
type Store interface {
	// AppendTurns records turns in order; all of them or none.
	AppendTurns(ctx context.Context, sessionID, app string, turns ...*Turn) error
	Turns(ctx context.Context, sessionID, app string) ([]Turn, error)
	AppendAnalysis(ctx context.Context, sessionID string, a *Analysis) error
	// Analyses returns the session's analyses, oldest first.
	Analyses(ctx context.Context, sessionID string) ([]Analysis, error)
	// Reset discards everything recorded for app in the session.
	Reset(ctx context.Context, sessionID, app string) error
	Close() error
}

// AnalysisApp is the app name analyses are reset under.
const AnalysisApp = "overthinking"

type sessionKey struct {
	session string
	app     string
}

// MemoryStore holds everything in process memory; it is the default.
type MemoryStore struct {
	mu       sync.RWMutex
	turns    map[sessionKey][]Turn
	analyses map[string][]Analysis
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		turns:    make(map[sessionKey][]Turn),
		analyses: make(map[string][]Analysis),
	}
}

func (s *MemoryStore) AppendTurns(_ context.Context, sessionID, app string, turns ...*Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey{session: sessionID, app: app}
	for _, t := range turns {
		stamp(t, sessionID, app)
		s.turns[key] = append(s.turns[key], *t)
	}
	return nil
}

func (s *MemoryStore) Turns(_ context.Context, sessionID, app string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.turns[sessionKey{session: sessionID, app: app}]
	out := make([]Turn, len(src))
	copy(out, src)
	return out, nil
}

func (s *MemoryStore) AppendAnalysis(_ context.Context, sessionID string, a *Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = uuid.NewString()
	a.SessionID = sessionID
	a.CreatedAt = time.Now()
	s.analyses[sessionID] = append(s.analyses[sessionID], *a)
	return nil
}

func (s *MemoryStore) Analyses(_ context.Context, sessionID string) ([]Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.analyses[sessionID]
	out := make([]Analysis, len(src))
	copy(out, src)
	return out, nil
}

func (s *MemoryStore) Reset(_ context.Context, sessionID, app string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if app == AnalysisApp {
		delete(s.analyses, sessionID)
	}
	delete(s.turns, sessionKey{session: sessionID, app: app})
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func stamp(t *Turn, sessionID, app string) {
	t.ID = uuid.NewString()
	t.SessionID = sessionID
	t.App = app
	t.CreatedAt = time.Now()
}
