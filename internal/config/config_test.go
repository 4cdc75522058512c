package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arbor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
graph:
  path: flows/booking.yaml
  start_node: welcome
dialogue:
  max_turns: 20
  external_timeout: 5s
  messages:
    failure: "Oops."
store:
  backend: redis
  ttl: 30m
  redis:
    addr: redis:6379
nlu:
  provider: openai
  openai:
    model: gpt-4o-mini
log:
  level: debug
`), 0644))

	t.Setenv("ARBOR_STORE_REDIS_DB", "2")
	t.Setenv("ARBOR_DIALOGUE_OFF_TOPIC_LIMIT", "5")
	t.Setenv("ARBOR_SERVER_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ARBOR_NOT_A_KEY", "ignored")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "flows/booking.yaml", cfg.Graph.Path)
	assert.Equal(t, "welcome", cfg.Graph.StartNode)
	assert.Equal(t, 20, cfg.Dialogue.MaxTurns)
	assert.Equal(t, 5, cfg.Dialogue.OffTopicLimit)
	assert.Equal(t, 5*time.Second, cfg.Dialogue.ExternalTimeout)
	assert.Equal(t, "Oops.", cfg.Dialogue.Messages.Failure)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Store.TTL)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 2, cfg.Store.Redis.DB)
	assert.Equal(t, "arbor:session:", cfg.Store.Redis.Prefix, "defaults survive partial overrides")
	assert.Equal(t, "gpt-4o-mini", cfg.NLU.OpenAI.Model)
	assert.Equal(t, "sk-env", cfg.NLU.OpenAI.APIKey)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvKeyWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arbor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nlu:\n  openai:\n    api_key: sk-file\n"), 0644))
	t.Setenv("ARBOR_NLU_OPENAI_API_KEY", "sk-arbor")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-arbor", cfg.NLU.OpenAI.APIKey)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arbor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("graph: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad backend", func(c *Config) { c.Store.Backend = "mongo" }, "store.backend"},
		{"negative ttl", func(c *Config) { c.Store.TTL = -time.Second }, "store.ttl"},
		{"negative max turns", func(c *Config) { c.Dialogue.MaxTurns = -1 }, "max_turns"},
		{"confidence out of range", func(c *Config) { c.Dialogue.OffTopicConfidence = 1.5 }, "off_topic_confidence"},
		{"openai without key", func(c *Config) { c.NLU.Provider = ProviderOpenAI }, "api_key"},
		{"unknown provider", func(c *Config) { c.NLU.Provider = "rasa" }, "nlu.provider"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad encryption key", func(c *Config) { c.Store.Encryption.Key = "short" }, "store.encryption.key"},
		{"bad redact pattern", func(c *Config) { c.Store.Redact = []string{"("} }, "store.redact"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestKeysOf(t *testing.T) {
	keys := keysOf(reflect.TypeOf(Config{}), "")
	assert.Equal(t, "store.redis.addr", keys["store_redis_addr"])
	assert.Equal(t, "nlu.openai.api_key", keys["nlu_openai_api_key"])
	assert.Equal(t, "dialogue.messages.off_topic_limit", keys["dialogue_messages_off_topic_limit"])
	assert.Equal(t, "dialogue.off_topic_limit", keys["dialogue_off_topic_limit"])
	assert.NotContains(t, keys, "store")
}
