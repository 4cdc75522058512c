package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/graph"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pizzaYAML = `
hello:
  next_nodes: [order]
order:
  params:
    required_slots: [size]
  next_nodes: [bye]
bye:
  responses:
    default: "Enjoy!"
`

func newEngine(t *testing.T, opts ...arbor.Option) *arbor.Engine {
	t.Helper()
	g, err := graph.Parse([]byte(pizzaYAML))
	require.NoError(t, err)
	eng, err := arbor.New("pizza.yaml", append([]arbor.Option{arbor.WithGraph(g)}, opts...)...)
	require.NoError(t, err)
	return eng
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) domain.TurnResult {
	t.Helper()
	var res domain.TurnResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return res
}

func TestServer_Conversation(t *testing.T) {
	h := NewHandler(newEngine(t))

	w := do(t, h, http.MethodPost, "/sessions", `{"session_id":"s1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "hello", decode(t, w).CurrentNode)

	w = do(t, h, http.MethodPost, "/sessions/s1/messages", `{"message":"hi there"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode(t, w)
	assert.Equal(t, "s1", res.SessionID)
	assert.Equal(t, "order", res.CurrentNode)
	assert.Equal(t, 1, res.TurnCount)

	w = do(t, h, http.MethodGet, "/sessions/s1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "order", decode(t, w).CurrentNode)

	w = do(t, h, http.MethodDelete, "/sessions/s1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/sessions/s1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "session not found")
}

func TestServer_StartWithoutBody(t *testing.T) {
	h := NewHandler(newEngine(t))

	w := do(t, h, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, decode(t, w).SessionID)
}

func TestServer_BadRequests(t *testing.T) {
	h := NewHandler(newEngine(t))

	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"message":`, "invalid request body"},
		{"id mismatch", `{"session_id":"other","message":"hi"}`, "does not match"},
		{"empty message", `{"message":"   "}`, "message is required"},
		{"oversized message", `{"message":"` + strings.Repeat("a", 5000) + `"}`, "exceeds maximum"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/sessions/s1/messages", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestServer_GraphAndHealth(t *testing.T) {
	h := NewHandler(newEngine(t))

	w := do(t, h, http.MethodGet, "/graph", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info graph.Info
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, 3, info.NodeCount)
	assert.Equal(t, []string{"hello"}, info.StartNodes)

	w = do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code, "metrics are opt-in")
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	h := NewHandler(newEngine(t, arbor.WithLifecycleHooks(m.Hooks())), WithMetrics(reg))

	do(t, h, http.MethodPost, "/sessions/m1/messages", `{"message":"hi"}`)

	w := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "arbor_turns_total")
}

func TestServer_CORS(t *testing.T) {
	h := NewHandler(newEngine(t), WithAllowedOrigins("https://app.example"))

	req := httptest.NewRequest(http.MethodOptions, "/sessions", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_SubscribeEvents(t *testing.T) {
	srv := httptest.NewServer(NewHandler(newEngine(t)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sessions/live/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	buf := make([]byte, 4096)
	n, err := resp.Body.Read(buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:n]), "event: ping")

	post, err := http.Post(srv.URL+"/sessions/live/messages", "application/json", bytes.NewBufferString(`{"message":"hi"}`))
	require.NoError(t, err)
	post.Body.Close()
	require.Equal(t, http.StatusOK, post.StatusCode)

	var got strings.Builder
	for !strings.Contains(got.String(), `"current_node":"order"`) {
		n, err := resp.Body.Read(buf)
		require.NoError(t, err)
		got.Write(buf[:n])
	}
	assert.Contains(t, got.String(), "event: turn")
}

func TestStreamManager(t *testing.T) {
	sm := NewStreamManager()
	ch, cancel := sm.Subscribe("a")
	assert.Equal(t, 1, sm.Subscribers("a"))

	sm.Broadcast("a", "one")
	sm.Broadcast("b", "ignored")
	assert.Equal(t, "one", <-ch)

	for i := 0; i < 20; i++ {
		sm.Broadcast("a", "flood")
	}
	assert.Len(t, ch, 10, "slow subscribers drop overflow")

	cancel()
	cancel()
	assert.Equal(t, 0, sm.Subscribers("a"))
}
