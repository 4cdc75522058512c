package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
)

// DefaultTTL is how long an untouched session survives.
const DefaultTTL = time.Hour

const ext = ".json"

// record is the on-disk envelope of a session.
type record struct {
	ExpiresAt *time.Time            `json:"expires_at,omitempty"`
	State     *domain.DialogueState `json:"state"`
}

// Store implements ports.SessionStore using the local filesystem.
// It stores sessions as JSON files in a configured directory.
type Store struct {
	BasePath string
	ttl      time.Duration
	now      func() time.Time
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

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".arbor/sessions".
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = filepath.Join(".arbor", "sessions")
	}
	s := &Store{BasePath: basePath, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) path(sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("sessionID cannot be empty")
	}
	if sessionID == "." || sessionID == ".." || strings.ContainsAny(sessionID, `/\`) {
		return "", fmt.Errorf("invalid sessionID %q", sessionID)
	}
	return filepath.Join(s.BasePath, sessionID+ext), nil
}

// Save persists the session state to a JSON file atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.DialogueState) error {
	destPath, err := s.path(sessionID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	rec := record{State: state}
	if s.ttl > 0 {
		exp := s.now().Add(s.ttl).UTC()
		rec.ExpiresAt = &exp
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Same directory, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+sessionID+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to valid session: %w", err)
	}
	return nil
}

// Load retrieves the session state from a JSON file. Expired sessions are
// removed and reported as not found.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.DialogueState, error) {
	filePath, err := s.path(sessionID)
	if err != nil {
		return nil, err
	}
	rec, err := s.read(filePath)
	if err != nil {
		return nil, err
	}
	if s.expired(rec) {
		_ = os.Remove(filePath)
		return nil, domain.ErrSessionNotFound
	}
	return rec.State, nil
}

func (s *Store) read(filePath string) (*record, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session state: %w", err)
	}
	if rec.State == nil {
		return nil, fmt.Errorf("session file %s has no state", filepath.Base(filePath))
	}
	return &rec, nil
}

func (s *Store) expired(rec *record) bool {
	return rec.ExpiresAt != nil && !s.now().Before(*rec.ExpiresAt)
}

// Delete removes the session file.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	filePath, err := s.path(sessionID)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// List returns the IDs of live sessions, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	ids, err := s.ids()
	if err != nil {
		return nil, err
	}
	live := make([]string, 0, len(ids))
	for _, id := range ids {
		rec, err := s.read(filepath.Join(s.BasePath, id+ext))
		if err != nil || s.expired(rec) {
			continue
		}
		live = append(live, id)
	}
	return live, nil
}

// Cleanup removes expired session files.
func (s *Store) Cleanup(ctx context.Context) (int, error) {
	ids, err := s.ids()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		filePath := filepath.Join(s.BasePath, id+ext)
		rec, err := s.read(filePath)
		if err != nil || !s.expired(rec) {
			continue
		}
		if err := os.Remove(filePath); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (s *Store) ids() ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext || strings.HasPrefix(name, "tmp-") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	sort.Strings(ids)
	return ids, nil
}
