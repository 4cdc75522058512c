// Package config loads arbor settings: built-in defaults, then an optional
// YAML file, then ARBOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/openai"
	"github.com/aretw0/arbor/pkg/adapters/storage"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override: ARBOR_STORE_BACKEND sets
// store.backend.
const EnvPrefix = "ARBOR_"

// NLU providers.
const (
	ProviderNone   = "none"
	ProviderOpenAI = "openai"
)

// Config is the full application configuration.
type Config struct {
	Graph    GraphConfig    `koanf:"graph"`
	Dialogue DialogueConfig `koanf:"dialogue"`
	Store    storage.Config `koanf:"store"`
	NLU      NLUConfig      `koanf:"nlu"`
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
}

// GraphConfig locates the node configuration.
type GraphConfig struct {
	Path      string `koanf:"path"`
	StartNode string `koanf:"start_node"`
	// Classifier is "declared" (trust declared stages) or "rules".
	Classifier string `koanf:"classifier"`
}

// DialogueConfig tunes the turn engine.
type DialogueConfig struct {
	MaxTurns           int             `koanf:"max_turns"`
	OffTopicLimit      int             `koanf:"off_topic_limit"`
	OffTopicConfidence float64         `koanf:"off_topic_confidence"`
	ExternalTimeout    time.Duration   `koanf:"external_timeout"`
	Messages           domain.Messages `koanf:"messages"`
}

// NLUConfig selects the NLU/NLG collaborator.
type NLUConfig struct {
	Provider string        `koanf:"provider"`
	OpenAI   openai.Config `koanf:"openai"`
}

// ServerConfig configures arbor serve. An empty AllowedOrigins allows any
// origin.
type ServerConfig struct {
	Addr           string   `koanf:"addr"`
	AllowedOrigins []string `koanf:"allowed_origins"`
	Metrics        bool     `koanf:"metrics"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Graph: GraphConfig{Classifier: "declared"},
		Dialogue: DialogueConfig{
			OffTopicLimit:      3,
			OffTopicConfidence: 0.5,
			ExternalTimeout:    10 * time.Second,
		},
		Store: storage.Config{
			Backend: storage.BackendMemory,
			TTL:     time.Hour,
			Redis:   storage.RedisConfig{Addr: "localhost:6379", Prefix: "arbor:session:"},
			File:    storage.FileConfig{Dir: ".arbor/sessions"},
			SQLite:  storage.SQLiteConfig{Path: ".arbor/sessions.db"},
		},
		NLU: NLUConfig{
			Provider: ProviderNone,
			OpenAI:   openai.Config{Model: openai.DefaultModel, Temperature: 0.3, MaxTokens: openai.DefaultMaxTokens},
		},
		Server: ServerConfig{Addr: ":8080", Metrics: true},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the file at path (skipped when empty or missing) and applies
// environment overrides on top of DefaultConfig.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	known := keysOf(reflect.TypeOf(Config{}), "")
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return known[strings.ToLower(strings.TrimPrefix(s, EnvPrefix))]
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.Server.AllowedOrigins = splitList(cfg.Server.AllowedOrigins)
	cfg.Store.Encryption.FallbackKeys = splitList(cfg.Store.Encryption.FallbackKeys)
	if cfg.NLU.OpenAI.APIKey == "" {
		cfg.NLU.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg, nil
}

// keysOf maps the underscore form of every leaf key ("store_redis_addr") to
// its dotted koanf path ("store.redis.addr").
func keysOf(t reflect.Type, prefix string) map[string]string {
	out := make(map[string]string)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		path := tag
		if prefix != "" {
			path = prefix + "." + tag
		}
		if f.Type.Kind() == reflect.Struct && f.Type != reflect.TypeOf(time.Time{}) {
			for k, v := range keysOf(f.Type, path) {
				out[k] = v
			}
			continue
		}
		out[strings.ReplaceAll(path, ".", "_")] = path
	}
	return out
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

var validBackends = map[string]bool{
	storage.BackendMemory: true,
	storage.BackendRedis:  true,
	storage.BackendFile:   true,
	storage.BackendSQLite: true,
}

// Validate checks the configuration for values the engine cannot use.
func (c *Config) Validate() error {
	var errs []error

	if !validBackends[strings.ToLower(c.Store.Backend)] {
		errs = append(errs, fmt.Errorf("invalid store.backend %q: must be one of memory, redis, file, sqlite", c.Store.Backend))
	}
	if c.Store.TTL < 0 {
		errs = append(errs, errors.New("store.ttl must be non-negative"))
	}
	if key := c.Store.Encryption.Key; key != "" {
		if _, err := middleware.ParseKey(key); err != nil {
			errs = append(errs, fmt.Errorf("invalid store.encryption.key: %w", err))
		}
	}
	for _, p := range c.Store.Redact {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("invalid store.redact pattern %q: %w", p, err))
		}
	}
	if c.Dialogue.MaxTurns < 0 {
		errs = append(errs, errors.New("dialogue.max_turns must be non-negative"))
	}
	if c.Dialogue.OffTopicLimit < 0 {
		errs = append(errs, errors.New("dialogue.off_topic_limit must be non-negative"))
	}
	if c.Dialogue.OffTopicConfidence < 0 || c.Dialogue.OffTopicConfidence > 1 {
		errs = append(errs, errors.New("dialogue.off_topic_confidence must be within [0, 1]"))
	}
	switch c.NLU.Provider {
	case "", ProviderNone:
	case ProviderOpenAI:
		if c.NLU.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("nlu.openai.api_key is required (or set OPENAI_API_KEY)"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid nlu.provider %q: must be none or openai", c.NLU.Provider))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("invalid log.level: %w", err))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log.format %q: must be text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}
