package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/storage"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// SessionAdmin operates directly on the configured session store, without
// loading a graph.
type SessionAdmin struct {
	storage *storage.Storage
	out     io.Writer
}

// OpenSessionAdmin opens the store named by the configuration at configPath.
func OpenSessionAdmin(ctx context.Context, configPath string, out io.Writer) (*SessionAdmin, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := createLogger(cfg, false)
	if err != nil {
		logger = logging.NewNop()
	}
	st, err := storage.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	return &SessionAdmin{storage: st, out: out}, nil
}

// Close releases the store.
func (a *SessionAdmin) Close() error { return a.storage.Close() }

// List prints live session ids.
func (a *SessionAdmin) List(ctx context.Context) error {
	ids, err := a.storage.Store.List(ctx)
	if err != nil {
		return fmt.Errorf("error listing sessions: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(a.out, "No active sessions found.")
		return nil
	}
	fmt.Fprintf(a.out, "Active sessions (%s):\n", a.storage.Backend)
	for _, id := range ids {
		fmt.Fprintln(a.out, "- "+id)
	}
	return nil
}

// Inspect prints the stored state of sessionID as indented JSON.
func (a *SessionAdmin) Inspect(ctx context.Context, sessionID string) error {
	state, err := a.storage.Store.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("error loading session '%s': %w", sessionID, err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling state: %w", err)
	}
	fmt.Fprintln(a.out, string(data))
	return nil
}

// Remove deletes each session, reporting every failure.
func (a *SessionAdmin) Remove(ctx context.Context, ids ...string) error {
	var errs []error
	for _, id := range ids {
		if _, err := a.storage.Store.Load(ctx, id); errors.Is(err, domain.ErrSessionNotFound) {
			errs = append(errs, fmt.Errorf("session '%s' not found", id))
			continue
		}
		if err := a.storage.Store.Delete(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("error removing '%s': %w", id, err))
			continue
		}
		fmt.Fprintf(a.out, "Removed session '%s'\n", id)
	}
	return errors.Join(errs...)
}

// RemoveAll deletes every live session.
func (a *SessionAdmin) RemoveAll(ctx context.Context) error {
	ids, err := a.storage.Store.List(ctx)
	if err != nil {
		return fmt.Errorf("error listing sessions: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(a.out, "No active sessions found.")
		return nil
	}
	return a.Remove(ctx, ids...)
}

// Cleanup purges expired sessions when the backend supports it.
func (a *SessionAdmin) Cleanup(ctx context.Context) error {
	cleaner, ok := a.storage.Store.(ports.Cleaner)
	if !ok {
		fmt.Fprintf(a.out, "Backend %s expires sessions on its own.\n", a.storage.Backend)
		return nil
	}
	n, err := cleaner.Cleanup(ctx)
	if err != nil {
		return fmt.Errorf("error cleaning up sessions: %w", err)
	}
	fmt.Fprintf(a.out, "Removed %d expired session(s).\n", n)
	return nil
}
