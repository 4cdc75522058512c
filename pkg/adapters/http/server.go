// Package http exposes the arbor turn API over HTTP using chi.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/graph"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MaxMessageBytes bounds the request body of a turn.
const MaxMessageBytes = 64 << 10

// Service is the turn API the server drives. *arbor.Engine satisfies it.
type Service interface {
	StartSession(ctx context.Context, sessionID string) (*domain.TurnResult, error)
	ProcessTurn(ctx context.Context, sessionID, message string) (*domain.TurnResult, error)
	SessionInfo(ctx context.Context, sessionID string) (*domain.TurnResult, error)
	ResetSession(ctx context.Context, sessionID string) error
	Info() graph.Info
}

var _ Service = (*arbor.Engine)(nil)

// Server handles the HTTP routes.
type Server struct {
	Service Service
	Streams *StreamManager

	logger         *slog.Logger
	allowedOrigins []string
	gatherer       prometheus.Gatherer
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithAllowedOrigins restricts CORS. Empty allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.allowedOrigins = origins }
}

// WithMetrics mounts /metrics served from g.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// NewHandler creates the HTTP handler for svc.
func NewHandler(svc Service, opts ...Option) http.Handler {
	s := &Server{
		Service: svc,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	origins := s.allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.GetHealth)
	r.Get("/graph", s.GetGraph)
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.StartSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Post("/messages", s.PostMessage)
			r.Get("/events", s.SubscribeEvents)
		})
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

type startRequest struct {
	SessionID string `json:"session_id"`
}

type messageRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// StartSession handles POST /sessions. The body is optional.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body startRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxMessageBytes)).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			s.logger.Warn("StartSession: invalid request body", "err", err)
			return
		}
	}

	res, err := s.Service.StartSession(r.Context(), strings.TrimSpace(body.SessionID))
	if err != nil {
		s.fail(w, "StartSession", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, res)
}

// PostMessage handles POST /sessions/{id}/messages.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body messageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxMessageBytes)).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		s.logger.Warn("PostMessage: invalid request body", "err", err, "session_id", id)
		return
	}
	if body.SessionID != "" && body.SessionID != id {
		s.writeError(w, http.StatusBadRequest, "session_id in body does not match path")
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	message, err := arbor.SanitizeInput(body.Message)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.Service.ProcessTurn(r.Context(), id, message)
	if res != nil {
		if data, mErr := json.Marshal(res); mErr == nil {
			s.Streams.Broadcast(id, string(data))
		}
	}
	if err != nil && !errors.Is(err, domain.ErrTurnFailed) {
		s.fail(w, "PostMessage", err)
		return
	}
	if err != nil {
		// The generic failure response is still a valid turn result.
		s.logger.Error("PostMessage: turn failed", "err", err, "session_id", id)
		s.writeJSON(w, http.StatusInternalServerError, res)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	res, err := s.Service.SessionInfo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "GetSession", err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Service.ResetSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, "DeleteSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetGraph handles GET /graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Service.Info())
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": strings.TrimSpace(arbor.Version),
	})
}

// SubscribeEvents handles GET /sessions/{id}/events (SSE). Every turn result
// of the session is pushed as one data frame.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	id := chi.URLParam(r, "id")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE: subscribed", "session_id", id)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE: client disconnected", "session_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: turn\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrSessionComplete):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error(op+" failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

// StreamManager fans turn results out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{} // session id -> channels
	logger      *slog.Logger
}

// NewStreamManager returns an empty StreamManager.
func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan string]struct{}),
		logger:      logging.NewNop(),
	}
}

// Subscribe registers a channel for sessionID. The returned func unregisters
// and closes it.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[sessionID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, sessionID)
				}
			}
		})
	}
}

// Subscribers returns the number of live subscriptions for sessionID.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}

// Broadcast sends msg to every subscriber of sessionID. Slow clients drop it.
func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: client buffer full, dropping message", "session_id", sessionID)
		}
	}
}
