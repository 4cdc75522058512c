package domain_test

import (
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnContext_Apply(t *testing.T) {
	var c domain.TurnContext
	c.Extra = map[string]any{"keep": "me"}

	err := c.Apply(map[string]any{
		"last_intent":     "provide_name",
		"last_confidence": 0.9,
		"off_topic_count": "2",
		"session_ended":   true,
		"end_reason":      "completed",
		"favourite_color": "blue",
	})
	require.NoError(t, err)

	assert.Equal(t, "provide_name", c.LastIntent)
	conf, ok := c.Confidence()
	assert.True(t, ok)
	assert.InDelta(t, 0.9, conf, 1e-9)
	assert.Equal(t, 2, c.OffTopicCount)
	assert.True(t, c.SessionEnded)
	assert.Equal(t, "blue", c.Extra["favourite_color"])
	assert.Equal(t, "me", c.Extra["keep"], "existing extras survive")
}

func TestTurnContext_ApplyReplacesEntities(t *testing.T) {
	c := domain.TurnContext{LastEntities: map[string]any{"name": "Kim"}}
	require.NoError(t, c.Apply(map[string]any{"last_entities": map[string]any{"city": "Seoul"}}))

	assert.Equal(t, map[string]any{"city": "Seoul"}, c.LastEntities)
}

func TestTurnContext_ApplyNilRemovesExtra(t *testing.T) {
	c := domain.TurnContext{Extra: map[string]any{"flag": true}}
	require.NoError(t, c.Apply(map[string]any{"flag": nil}))

	assert.NotContains(t, c.Extra, "flag")
}

func TestTurnContext_AsMapMissingKeys(t *testing.T) {
	var c domain.TurnContext
	m := c.AsMap()

	assert.NotContains(t, m, domain.KeyLastIntent)
	assert.Equal(t, false, m[domain.KeyAllSlotsFilled])
	assert.Equal(t, 0, m[domain.KeyNodeTurns])
}

func TestTurnContext_OffTopic(t *testing.T) {
	assert.True(t, (&domain.TurnContext{LastIntent: domain.IntentOffTopic}).OffTopic())
	assert.True(t, (&domain.TurnContext{LastStage: domain.StageGeneralChat}).OffTopic())
	assert.False(t, (&domain.TurnContext{LastIntent: "provide_name"}).OffTopic())
}
