// Package storage builds a session store from configuration, degrading to the
// in-memory store when the configured backend is unreachable.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/file"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/adapters/sqlite"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// DefaultPingTimeout bounds the reachability check of remote backends.
const DefaultPingTimeout = 3 * time.Second

// Config selects and configures a backend.
type Config struct {
	Backend string        `koanf:"backend"`
	TTL     time.Duration `koanf:"ttl"`
	// Lock enables the distributed per-session lock (redis only).
	Lock bool `koanf:"lock"`

	Redis  RedisConfig  `koanf:"redis"`
	File   FileConfig   `koanf:"file"`
	SQLite SQLiteConfig `koanf:"sqlite"`

	// Encryption seals stored states when Key is set.
	Encryption EncryptionConfig `koanf:"encryption"`
	// Redact holds regular expressions; matching slot and entity names are
	// masked before saving.
	Redact []string `koanf:"redact"`
}

// EncryptionConfig holds base64 (or raw 32-byte) AES-256 keys.
type EncryptionConfig struct {
	Key          string   `koanf:"key"`
	FallbackKeys []string `koanf:"fallback_keys"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

type FileConfig struct {
	Dir string `koanf:"dir"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// Storage is an opened backend.
type Storage struct {
	Store ports.SessionStore
	// Locker is nil unless a distributed lock was requested and available.
	Locker ports.DistributedLocker
	// Backend is the backend actually in use, after any fallback.
	Backend string
	closer  io.Closer
}

// Close releases the backend connection, if any.
func (s *Storage) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Open builds the configured store. Redis and SQLite backends that cannot be
// reached fall back to memory with a warning; unknown backends and invalid
// protection settings are an error.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	mws, err := middlewares(cfg)
	if err != nil {
		return nil, err
	}
	s, err := open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	s.Store = middleware.Chain(s.Store, mws...)
	return s, nil
}

func open(ctx context.Context, cfg Config, logger *slog.Logger) (*Storage, error) {
	ttl := cfg.TTL

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendMemory:
		return fallback(ttl), nil

	case BackendFile:
		return &Storage{Store: file.New(cfg.File.Dir, file.WithTTL(ttl)), Backend: BackendFile}, nil

	case BackendRedis:
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithTTL(ttl), redis.WithPrefix(cfg.Redis.Prefix))
		pctx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
		defer cancel()
		if err := store.Ping(pctx); err != nil {
			_ = store.Close()
			logger.Warn("Redis unavailable, falling back to in-memory sessions", "addr", cfg.Redis.Addr, "error", err)
			return fallback(ttl), nil
		}
		s := &Storage{Store: store, Backend: BackendRedis, closer: store}
		if cfg.Lock {
			s.Locker = redis.NewLocker(store.Client(), cfg.Redis.Prefix)
		}
		return s, nil

	case BackendSQLite:
		store, err := sqlite.Open(cfg.SQLite.Path, sqlite.WithTTL(ttl))
		if err != nil {
			logger.Warn("SQLite unavailable, falling back to in-memory sessions", "path", cfg.SQLite.Path, "error", err)
			return fallback(ttl), nil
		}
		return &Storage{Store: store, Backend: BackendSQLite, closer: store}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

// middlewares returns redaction (outermost) then encryption, so values are
// masked before they are sealed.
func middlewares(cfg Config) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.Redact) > 0 {
		mw, err := middleware.NewPIIMiddleware(cfg.Redact)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if cfg.Encryption.Key != "" {
		active, err := middleware.ParseKey(cfg.Encryption.Key)
		if err != nil {
			return nil, fmt.Errorf("store.encryption.key: %w", err)
		}
		enc := middleware.EncryptionConfig{ActiveKey: active}
		for i, k := range cfg.Encryption.FallbackKeys {
			key, err := middleware.ParseKey(k)
			if err != nil {
				return nil, fmt.Errorf("store.encryption.fallback_keys[%d]: %w", i, err)
			}
			enc.FallbackKeys = append(enc.FallbackKeys, key)
		}
		mw, err := middleware.NewEncryptionMiddleware(enc)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

func fallback(ttl time.Duration) *Storage {
	return &Storage{Store: memory.NewStore(memory.WithTTL(ttl)), Backend: BackendMemory}
}
