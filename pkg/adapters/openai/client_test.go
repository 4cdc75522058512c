package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/openai"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.Understander = (*openai.Client)(nil)

type capturedRequest struct {
	Model          string `json:"model"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// fakeAPI answers every chat completion with content and records requests.
func fakeAPI(t *testing.T, status int, content string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var seen []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req capturedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		seen = append(seen, req)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func newClient(t *testing.T, srv *httptest.Server) *openai.Client {
	t.Helper()
	c, err := openai.New(openai.Config{APIKey: "test-key", BaseURL: srv.URL + "/v1", Model: "test-model"})
	require.NoError(t, err)
	return c
}

func TestClient_ExtractIntent(t *testing.T) {
	srv, seen := fakeAPI(t, http.StatusOK,
		`{"intent":"provide_name","stage":"info_collection","entities":{"name":"Kim"},"missing_slots":[],"all_slots_filled":true,"confidence":0.92}`)
	c := newClient(t, srv)

	node := &domain.Node{ID: "collect", Description: "Ask for a name", Params: map[string]any{"required_slots": []any{"name"}}}
	res, err := c.ExtractIntent(context.Background(), "I'm Kim", node, map[string]any{"turn_count": 1})
	require.NoError(t, err)

	assert.Equal(t, "provide_name", res.Intent)
	assert.Equal(t, string(domain.StageSlotFilling), res.Stage)
	assert.Equal(t, map[string]any{"name": "Kim"}, res.Entities)
	assert.Equal(t, 0.92, res.Confidence)
	assert.True(t, res.AllSlotsFilled)

	require.Len(t, *seen, 1)
	req := (*seen)[0]
	assert.Equal(t, "test-model", req.Model)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, "json_object", req.ResponseFormat.Type)
	require.Len(t, req.Messages, 2)
	assert.Contains(t, req.Messages[1].Content, "I'm Kim")
	assert.Contains(t, req.Messages[1].Content, `"required_slots"`)
}

func TestClient_ExtractIntentInvalidJSON(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusOK, "not json at all")
	_, err := newClient(t, srv).ExtractIntent(context.Background(), "hi", nil, nil)
	assert.Error(t, err)
}

func TestClient_GenerateResponse(t *testing.T) {
	srv, seen := fakeAPI(t, http.StatusOK, "  Could you share your name?  ")
	c := newClient(t, srv)

	text, err := c.GenerateResponse(context.Background(), domain.GenerationRequest{
		Node:         &domain.Node{ID: "collect", Description: "Ask for a name"},
		Message:      "hello",
		Scenario:     domain.ScenarioMissingSlots,
		MissingSlots: []string{"name"},
		Fallback:     "What is your name?",
	})
	require.NoError(t, err)
	assert.Equal(t, "Could you share your name?", text)

	require.Len(t, *seen, 1)
	assert.Nil(t, (*seen)[0].ResponseFormat)
	prompt := (*seen)[0].Messages[1].Content
	assert.Contains(t, prompt, "Still needed: name")
	assert.Contains(t, prompt, "What is your name?")
}

func TestClient_APIError(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusInternalServerError, "")
	c := newClient(t, srv)

	_, err := c.GenerateResponse(context.Background(), domain.GenerationRequest{Message: "hi"})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "response generation:"))
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := openai.New(openai.Config{})
	assert.Error(t, err)

	_, err = openai.New(openai.Config{APIKey: "k", AzureEndpoint: "https://example.openai.azure.com"})
	assert.NoError(t, err)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want domain.IntentResult
	}{
		{
			name: "defaults",
			raw:  map[string]any{},
			want: domain.IntentResult{Intent: domain.IntentUnknown, Entities: map[string]any{}, Confidence: 0.5},
		},
		{
			name: "coerces shapes",
			raw: map[string]any{
				"intent":        "order",
				"entities":      "oops",
				"confidence":    "0.8",
				"missing_slots": []any{"date", 3},
				"stage":         "fallback",
			},
			want: domain.IntentResult{
				Intent: "order", Entities: map[string]any{}, Confidence: 0.8,
				MissingSlots: []string{"date"}, Stage: "general_chat",
			},
		},
		{
			name: "clamps and keeps unknown stage",
			raw:  map[string]any{"intent": "x", "confidence": 7.0, "stage": "Payment", "missing_slots": []any{}},
			want: domain.IntentResult{Intent: "x", Entities: map[string]any{}, Confidence: 1, Stage: "payment", AllSlotsFilled: true},
		},
		{
			name: "off topic",
			raw:  map[string]any{"intent": "Small_Talk", "stage": "slot_filling", "confidence": 0.9, "entities": map[string]any{"x": "", "y": "z"}},
			want: domain.IntentResult{Intent: domain.IntentOffTopic, Entities: map[string]any{"y": "z"}, Confidence: 0.9, Stage: "general_chat"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, *openai.Normalize(tt.raw))
		})
	}
}
