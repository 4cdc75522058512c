package arbor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/graph"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/google/uuid"
)

// Engine is the high-level entry point for the Arbor library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime     *runtime.Engine
	graph       *graph.Graph
	store       ports.SessionStore
	locker      ports.DistributedLocker
	runtimeOpts []runtime.EngineOption
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	Name        string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithGraph injects an already built graph, bypassing file loading.
func WithGraph(g *graph.Graph) Option {
	return func(e *Engine) {
		e.graph = g
	}
}

// WithStore sets the session store (default: in-memory with a one hour TTL).
func WithStore(store ports.SessionStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker enables distributed per-session locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls add up.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithIntentExtractor sets the NLU collaborator.
func WithIntentExtractor(nlu ports.IntentExtractor) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithIntentExtractor(nlu))
	}
}

// WithResponseGenerator sets the NLG collaborator.
func WithResponseGenerator(gen ports.ResponseGenerator) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithResponseGenerator(gen))
	}
}

// WithUnderstander sets NLU and NLG from one service.
func WithUnderstander(u ports.Understander) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithUnderstander(u))
	}
}

// WithStartNode overrides the node new sessions begin at.
func WithStartNode(nodeID string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithStartNode(nodeID))
	}
}

// WithMaxTurns ends every session after n turns. Zero disables the cap.
func WithMaxTurns(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxTurns(n))
	}
}

// WithMessages overrides the fixed user-facing texts.
func WithMessages(m domain.Messages) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMessages(m))
	}
}

// WithOffTopicPolicy sets the consecutive off-topic limit and the confidence
// threshold below which a turn counts as off-topic.
func WithOffTopicPolicy(limit int, confidence float64) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithOffTopicPolicy(limit, confidence))
	}
}

// WithExternalTimeout bounds every NLU and NLG call.
func WithExternalTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithExternalTimeout(d))
	}
}

// WithRuntimeOptions passes options straight to the runtime engine.
func WithRuntimeOptions(opts ...runtime.EngineOption) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, opts...)
	}
}

// New initializes a new Arbor Engine.
// By default, it loads the node configuration (JSON or YAML) at graphPath.
// If WithGraph is provided, graphPath can be empty and is only used as a label.
func New(graphPath string, opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if graphPath != "" {
		eng.Name = strings.TrimSuffix(filepath.Base(graphPath), filepath.Ext(graphPath))
		eng.logger = eng.logger.With("graph", eng.Name)
	}

	if eng.graph == nil {
		if graphPath == "" {
			return nil, errors.New("graphPath is required when no graph is provided")
		}
		g, err := graph.LoadFile(graphPath, graph.WithLogger(eng.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to load graph: %w", err)
		}
		eng.graph = g
	}

	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	sessOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(eng.locker))
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)

	rt, err := runtime.NewEngine(eng.graph, session.NewManager(eng.store, sessOpts...), runtimeOpts...)
	if err != nil {
		return nil, err
	}
	eng.runtime = rt
	return eng, nil
}

// StartSession creates a session at the start node. An empty id gets a
// random UUID. The returned snapshot carries the id.
func (e *Engine) StartSession(ctx context.Context, sessionID string) (*domain.TurnResult, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return e.runtime.StartSession(ctx, sessionID)
}

// ProcessTurn runs one user message through the session's current node.
// Unknown sessions are created at the start node.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID, message string) (*domain.TurnResult, error) {
	return e.runtime.ProcessTurn(ctx, sessionID, message)
}

// SessionInfo returns the session snapshot without changing it.
func (e *Engine) SessionInfo(ctx context.Context, sessionID string) (*domain.TurnResult, error) {
	return e.runtime.SessionInfo(ctx, sessionID)
}

// ResetSession deletes the session.
func (e *Engine) ResetSession(ctx context.Context, sessionID string) error {
	return e.runtime.ResetSession(ctx, sessionID)
}

// ListSessions returns the stored session ids.
func (e *Engine) ListSessions(ctx context.Context) ([]string, error) {
	return e.runtime.ListSessions(ctx)
}

// CleanupSessions purges expired sessions when the store supports it.
func (e *Engine) CleanupSessions(ctx context.Context) (int, error) {
	return e.runtime.Sessions().Cleanup(ctx)
}

// Graph returns the loaded graph.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// Info summarizes the graph with the stage of every node.
func (e *Engine) Info() graph.Info {
	return e.runtime.Info()
}

// StartNode returns the node new sessions begin at.
func (e *Engine) StartNode() string {
	return e.runtime.StartNode()
}

// Store returns the session store.
func (e *Engine) Store() ports.SessionStore {
	return e.store
}
