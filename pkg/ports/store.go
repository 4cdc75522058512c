package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// SessionStore defines the interface for persisting dialogue state.
// Implementations must not share memory with the caller: a loaded state may be
// mutated freely without affecting the stored copy.
type SessionStore interface {
	// Save persists the state for a given session ID.
	Save(ctx context.Context, sessionID string, state *domain.DialogueState) error

	// Load retrieves the state for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist or has expired.
	Load(ctx context.Context, sessionID string) (*domain.DialogueState, error)

	// Delete removes the state for a given session ID. Deleting an unknown
	// session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all live sessions.
	List(ctx context.Context) ([]string, error)
}

// Cleaner is implemented by stores that can purge expired sessions eagerly.
type Cleaner interface {
	// Cleanup removes expired sessions and returns how many were removed.
	Cleanup(ctx context.Context) (int, error)
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}
