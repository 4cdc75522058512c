package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunSessionStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := redis.NewFromClient(client,
		redis.WithTTL(time.Second),
		redis.WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()
	state := domain.NewDialogueState("session-ttl", "start", now)

	require.NoError(t, store.Save(ctx, "session-ttl", state))

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, sessions, "session-ttl")
	assert.Equal(t, time.Second, mr.TTL("arbor:session:session-ttl"))

	// Key expiry is Redis' job; the index is pruned against our clock.
	mr.FastForward(2 * time.Second)
	now = now.Add(2 * time.Second)

	_, err = store.Load(ctx, "session-ttl")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	sessions, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRedisStore_Cleanup(t *testing.T) {
	_, client := newClient(t)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := redis.NewFromClient(client,
		redis.WithTTL(time.Minute),
		redis.WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "old", domain.NewDialogueState("old", "start", now)))
	now = now.Add(45 * time.Second)
	require.NoError(t, store.Save(ctx, "new", domain.NewDialogueState("new", "start", now)))
	now = now.Add(30 * time.Second)

	n, err := store.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, sessions)
}

func TestRedisStore_NoExpiry(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(0))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "forever", domain.NewDialogueState("forever", "start", time.Now())))
	assert.Zero(t, mr.TTL("arbor:session:forever"))

	mr.FastForward(24 * time.Hour)
	_, err := store.Load(ctx, "forever")
	assert.NoError(t, err)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "my-session", domain.NewDialogueState("my-session", "start", time.Now())))

	assert.True(t, mr.Exists("custom:app:my-session"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, list, "my-session")
}

func TestRedisStore_PingAndCorruptData(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	require.NoError(t, mr.Set("arbor:session:broken", "{not json"))
	_, err := store.Load(ctx, "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSessionNotFound)
}
