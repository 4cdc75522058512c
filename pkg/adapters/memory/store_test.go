package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunSessionStoreContract(t, store)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.NewStore(memory.WithTTL(time.Minute), memory.WithClock(c.Now))

	require.NoError(t, store.Save(ctx, "a", domain.NewDialogueState("a", "start", c.Now())))
	c.Advance(30 * time.Second)
	require.NoError(t, store.Save(ctx, "b", domain.NewDialogueState("b", "start", c.Now())))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	c.Advance(45 * time.Second)
	_, err = store.Load(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = store.Load(ctx, "b")
	assert.NoError(t, err)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)

	removed, err := store.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestMemoryStore_NoExpiry(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.NewStore(memory.WithTTL(0), memory.WithClock(c.Now))

	require.NoError(t, store.Save(ctx, "a", domain.NewDialogueState("a", "start", c.Now())))
	c.Advance(365 * 24 * time.Hour)
	_, err := store.Load(ctx, "a")
	assert.NoError(t, err)
}
