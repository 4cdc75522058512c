package middleware_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_Contract(t *testing.T) {
	mw, err := middleware.NewPIIMiddleware([]string{"password", "ssn"})
	require.NoError(t, err)
	ports.RunSessionStoreContract(t, mw(memory.NewStore()))
}

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware([]string{"password", "^ssn", "email"})
	require.NoError(t, err)
	secure := mw(underlying)
	ctx := context.Background()

	now := time.Now().UTC()
	state := domain.NewDialogueState("pii", "collect", now)
	state.ApplySlotUpdates(map[string]domain.SlotUpdate{
		"username":      {Value: "jdoe"},
		"user_password": {Value: "secret123"},
		"email":         {Value: ""},
	}, now)
	state.Context.LastEntities = map[string]any{
		"ssn_number": "999-99-9999",
		"details":    map[string]any{"home_email": "j@example.com", "city": "Porto"},
	}

	require.NoError(t, secure.Save(ctx, "pii", state))
	assert.Equal(t, "secret123", state.Slots["user_password"].Value, "caller state is untouched")
	assert.Equal(t, "999-99-9999", state.Context.LastEntities["ssn_number"])

	stored, err := underlying.Load(ctx, "pii")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", stored.Slots["username"].Value)
	assert.Equal(t, middleware.Mask, stored.Slots["user_password"].Value)
	assert.Equal(t, "", stored.Slots["email"].Value, "unfilled slots stay unfilled")
	assert.Equal(t, middleware.Mask, stored.Context.LastEntities["ssn_number"])
	details := stored.Context.LastEntities["details"].(map[string]any)
	assert.Equal(t, middleware.Mask, details["home_email"])
	assert.Equal(t, "Porto", details["city"])
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.ErrorContains(t, err, "invalid redaction pattern")
}

func TestChain(t *testing.T) {
	underlying := memory.NewStore()
	pii, err := middleware.NewPIIMiddleware([]string{"password"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	store := middleware.Chain(underlying, pii, enc)
	ctx := context.Background()

	now := time.Now().UTC()
	state := domain.NewDialogueState("c", "start", now)
	state.ApplySlotUpdates(map[string]domain.SlotUpdate{"password": {Value: "hunter2"}}, now)
	require.NoError(t, store.Save(ctx, "c", state))

	loaded, err := store.Load(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.Slots["password"].Value, "masked before sealing")

	raw, err := underlying.Load(ctx, "c")
	require.NoError(t, err)
	assert.Contains(t, raw.Slots, middleware.EnvelopeSlot)

	n, err := store.(ports.Cleaner).Cleanup(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
