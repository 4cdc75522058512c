package storage_test

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/arbor/pkg/adapters/storage"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, s *storage.Storage) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Store.Save(ctx, "s", domain.NewDialogueState("s", "start", time.Now())))
	_, err := s.Store.Load(ctx, "s")
	require.NoError(t, err)
}

func TestOpen_Backends(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	tests := []struct {
		name string
		cfg  storage.Config
		want string
	}{
		{"default", storage.Config{}, storage.BackendMemory},
		{"memory", storage.Config{Backend: "Memory", TTL: time.Minute}, storage.BackendMemory},
		{"file", storage.Config{Backend: "file", File: storage.FileConfig{Dir: t.TempDir()}}, storage.BackendFile},
		{"sqlite", storage.Config{Backend: "sqlite", SQLite: storage.SQLiteConfig{Path: filepath.Join(t.TempDir(), "s.db")}}, storage.BackendSQLite},
		{"redis", storage.Config{Backend: "redis", Lock: true, Redis: storage.RedisConfig{Addr: mr.Addr()}}, storage.BackendRedis},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := storage.Open(ctx, tt.cfg, nil)
			require.NoError(t, err)
			defer s.Close()
			assert.Equal(t, tt.want, s.Backend)
			roundTrip(t, s)
			if tt.want == storage.BackendRedis {
				assert.NotNil(t, s.Locker)
			} else {
				assert.Nil(t, s.Locker)
			}
		})
	}
}

func TestOpen_RedisFallback(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	s, err := storage.Open(context.Background(), storage.Config{
		Backend: "redis",
		Lock:    true,
		Redis:   storage.RedisConfig{Addr: addr},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, storage.BackendMemory, s.Backend)
	assert.Nil(t, s.Locker)
	roundTrip(t, s)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := storage.Open(context.Background(), storage.Config{Backend: "cassandra"}, nil)
	assert.Error(t, err)
}

func TestOpen_Protected(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	key := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

	s, err := storage.Open(ctx, storage.Config{
		Backend:    "file",
		File:       storage.FileConfig{Dir: dir},
		Encryption: storage.EncryptionConfig{Key: key},
		Redact:     []string{"(?i)card"},
	}, nil)
	require.NoError(t, err)
	defer s.Close()

	now := time.Now()
	state := domain.NewDialogueState("s", "start", now)
	state.ApplySlotUpdates(map[string]domain.SlotUpdate{
		"card_number": {Value: "4111111111111111", Confidence: 1},
		"city":        {Value: "Lisbon", Confidence: 1},
	}, now)
	require.NoError(t, s.Store.Save(ctx, "s", state))

	raw, err := os.ReadFile(filepath.Join(dir, "s.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Lisbon")
	assert.NotContains(t, string(raw), "4111")

	loaded, err := s.Store.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", loaded.Slots["city"].Value)
	assert.Equal(t, "***", loaded.Slots["card_number"].Value)
}

func TestOpen_InvalidProtection(t *testing.T) {
	ctx := context.Background()
	_, err := storage.Open(ctx, storage.Config{Encryption: storage.EncryptionConfig{Key: "short"}}, nil)
	assert.Error(t, err)

	_, err = storage.Open(ctx, storage.Config{Redact: []string{"("}}, nil)
	assert.Error(t, err)
}
