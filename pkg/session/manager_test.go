package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data map[string]*domain.DialogueState
	mu   sync.Mutex
}

func (s *SlowStore) Save(ctx context.Context, sessionID string, state *domain.DialogueState) error {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.DialogueState)
	}
	s.data[sessionID] = state.Clone()
	return nil
}

func (s *SlowStore) Load(ctx context.Context, sessionID string) (*domain.DialogueState, error) {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.data[sessionID]; ok {
		return state.Clone(), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *SlowStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestManager_UpdateSerializes(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	var wg sync.WaitGroup
	const writers = 10
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.Update(ctx, id, "start", func(_ context.Context, s *domain.DialogueState) (*domain.DialogueState, error) {
				s.TurnCount++
				return s, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Without the per-session lock, read-modify-write cycles would lose updates.
	state, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, writers, state.TurnCount)
}

func TestManager_UpdateFailureWritesNothing(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()

	_, err := manager.Start(ctx, "s", "start")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = manager.Update(ctx, "s", "start", func(_ context.Context, s *domain.DialogueState) (*domain.DialogueState, error) {
		s.CurrentNode = "elsewhere"
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	state, err := manager.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "start", state.CurrentNode)
}

func TestManager_StartReplacesStoredState(t *testing.T) {
	store := &SlowStore{}
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	manager := session.NewManager(store, session.WithClock(func() time.Time { return fixed }))
	ctx := context.Background()
	id := "restart"

	require.NoError(t, manager.Update(ctx, id, "start", func(_ context.Context, s *domain.DialogueState) (*domain.DialogueState, error) {
		s.CurrentNode = "middle"
		return s, nil
	}))

	state, err := manager.Start(ctx, id, "start")
	require.NoError(t, err)
	assert.Equal(t, "start", state.CurrentNode)

	stored, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "start", stored.CurrentNode)
	assert.Equal(t, fixed, stored.CreatedAt)

	ids, err := manager.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids)
}

func TestManager_DeleteAndCleanup(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	ctx := context.Background()

	_, err := manager.Start(ctx, "gone", "start")
	require.NoError(t, err)
	require.NoError(t, manager.Delete(ctx, "gone"))

	_, err = manager.Load(ctx, "gone")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// SlowStore is not a Cleaner.
	n, err := manager.Cleanup(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

type recordingLocker struct {
	mu       sync.Mutex
	locked   []string
	ttls     []time.Duration
	unlocked int
	fail     error
}

func (l *recordingLocker) Lock(_ context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return nil, l.fail
	}
	l.locked = append(l.locked, key)
	l.ttls = append(l.ttls, ttl)
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocked++
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &recordingLocker{}
	manager := session.NewManager(&SlowStore{}, session.WithLocker(locker), session.WithLockTTL(5*time.Second))
	ctx := context.Background()

	_, err := manager.Start(ctx, "s", "start")
	require.NoError(t, err)
	assert.Equal(t, []string{"s"}, locker.locked)
	assert.Equal(t, []time.Duration{5 * time.Second}, locker.ttls)
	assert.Equal(t, 1, locker.unlocked)

	locker.fail = errors.New("redis down")
	_, err = manager.Load(ctx, "s")
	assert.ErrorContains(t, err, "failed to acquire distributed lock")
}
