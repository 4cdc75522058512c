package logging

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)

	lvl, err = ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	logger, err := NewFromConfig("info", "json")
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))

	_, err = NewFromConfig("nope", "text")
	assert.Error(t, err)
}

func TestReplaceAttr(t *testing.T) {
	a := replaceAttr(nil, slog.String("error", "boom"))
	assert.Equal(t, "err", a.Key)
	b := replaceAttr(nil, slog.String("node_id", "a"))
	assert.Equal(t, "node_id", b.Key)
}
