package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	sessionID := "contract-test-session-" + now.Format("20060102150405")

	newState := func(id string) *domain.DialogueState {
		return domain.NewDialogueState(id, "start", now)
	}

	t.Run("Save and Load", func(t *testing.T) {
		state := newState(sessionID)
		state.CurrentNode = "collect"
		state.PreviousNode = "start"
		state.TurnCount = 2
		state.ApplySlotUpdates(map[string]domain.SlotUpdate{
			"name": {Value: "Kim", Confidence: 0.9, Source: domain.SourceNLU},
		}, now)
		require.NoError(t, state.Context.Apply(map[string]any{
			domain.KeyLastIntent:   "provide_name",
			domain.KeyVisitedNodes: []string{"start"},
			"custom":               "bar",
		}))

		require.NoError(t, store.Save(ctx, sessionID, state), "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "collect", loaded.CurrentNode)
		assert.Equal(t, "start", loaded.PreviousNode)
		assert.Equal(t, 2, loaded.TurnCount)
		assert.Equal(t, "Kim", loaded.Slots["name"].Value)
		assert.Equal(t, 0.9, loaded.Slots["name"].Confidence)
		assert.Equal(t, "provide_name", loaded.Context.LastIntent)
		assert.Equal(t, []string{"start"}, loaded.Context.VisitedNodes)
		assert.Equal(t, "bar", loaded.Context.Extra["custom"])
		assert.True(t, state.CreatedAt.Equal(loaded.CreatedAt))
	})

	t.Run("Load Is Isolated", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.CurrentNode = "mutated"
		loaded.Slots["name"] = domain.Slot{Value: "Lee"}

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "collect", again.CurrentNode)
		assert.Equal(t, "Kim", again.Slots["name"].Value)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, newState(sessionID)))
		require.NoError(t, store.Delete(ctx, sessionID), "Delete should not return error")

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "Delete of a missing session should be a no-op")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, newState(id1)))
		require.NoError(t, store.Save(ctx, id2, newState(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
