package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
)

// DefaultTTL is how long an untouched session survives.
const DefaultTTL = time.Hour

type entry struct {
	state     *domain.DialogueState
	expiresAt time.Time
}

// Store implements ports.SessionStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]entry
	mu   sync.RWMutex
	ttl  time.Duration
	now  func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithTTL sets the session expiry. Zero or less disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a new in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		data: make(map[string]entry),
		ttl:  DefaultTTL,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save persists a copy of the state in memory.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.DialogueState) error {
	// Deep copy to ensure isolation, similar to serialization
	e := entry{state: state.Clone()}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = e
	return nil
}

// Load retrieves a copy of the state from memory.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.DialogueState, error) {
	s.mu.RLock()
	e, ok := s.data[sessionID]
	s.mu.RUnlock()

	if !ok || s.expired(e) {
		return nil, domain.ErrSessionNotFound
	}
	// Copy on read so the caller can't mutate store state through the pointer
	return e.state.Clone(), nil
}

// Delete removes the state.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns live sessions in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id, e := range s.data {
		if !s.expired(e) {
			sessions = append(sessions, id)
		}
	}
	sort.Strings(sessions)
	return sessions, nil
}

// Cleanup drops expired sessions.
func (s *Store) Cleanup(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.data {
		if s.expired(e) {
			delete(s.data, id)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}
