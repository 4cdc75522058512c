package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/executor"
	"github.com/aretw0/arbor/pkg/graph"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/aretw0/arbor/pkg/stage"
)

// DefaultExternalTimeout bounds each NLU call.
const DefaultExternalTimeout = 10 * time.Second

// Engine processes dialogue turns over a graph. It is safe for concurrent use
// by many sessions.
type Engine struct {
	graph      *graph.Graph
	sessions   *session.Manager
	classifier *stage.Classifier
	registry   *executor.Registry
	start      string

	nlu       ports.IntentExtractor
	generator ports.ResponseGenerator

	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	messages domain.Messages

	maxTurns        int
	externalTimeout time.Duration
	offTopicLimit   int
	offTopicConf    float64
	now             func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithIntentExtractor sets the NLU collaborator.
func WithIntentExtractor(nlu ports.IntentExtractor) EngineOption {
	return func(e *Engine) {
		e.nlu = nlu
	}
}

// WithResponseGenerator sets the NLG collaborator used by built-in handlers.
func WithResponseGenerator(gen ports.ResponseGenerator) EngineOption {
	return func(e *Engine) {
		e.generator = gen
	}
}

// WithUnderstander sets both NLU and NLG from one service.
func WithUnderstander(u ports.Understander) EngineOption {
	return func(e *Engine) {
		e.nlu = u
		e.generator = u
	}
}

// WithClassifier replaces the default stage classifier.
func WithClassifier(c *stage.Classifier) EngineOption {
	return func(e *Engine) {
		e.classifier = c
	}
}

// WithRegistry replaces the default handler registry.
func WithRegistry(r *executor.Registry) EngineOption {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithMessages overrides the fixed user-facing texts.
func WithMessages(m domain.Messages) EngineOption {
	return func(e *Engine) {
		e.messages = m.WithDefaults()
	}
}

// WithMaxTurns ends every session after n turns. Zero disables the cap.
func WithMaxTurns(n int) EngineOption {
	return func(e *Engine) {
		e.maxTurns = n
	}
}

// WithExternalTimeout bounds each NLU and NLG call.
func WithExternalTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.externalTimeout = d
		}
	}
}

// WithOffTopicPolicy sets how many consecutive off-topic turns end a session
// and the NLU confidence below which a turn counts as off-topic.
func WithOffTopicPolicy(limit int, confidence float64) EngineOption {
	return func(e *Engine) {
		e.offTopicLimit = limit
		e.offTopicConf = confidence
	}
}

// WithStartNode overrides the node new sessions begin at.
func WithStartNode(id string) EngineOption {
	return func(e *Engine) {
		e.start = id
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine validates g and builds an engine persisting through sessions.
func NewEngine(g *graph.Graph, sessions *session.Manager, opts ...EngineOption) (*Engine, error) {
	if g == nil || g.Len() == 0 {
		return nil, domain.ErrEmptyGraph
	}
	if sessions == nil {
		return nil, errors.New("runtime: session manager is required")
	}

	e := &Engine{
		graph:           g,
		sessions:        sessions,
		logger:          logging.NewNop(),
		messages:        domain.DefaultMessages(),
		externalTimeout: DefaultExternalTimeout,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	report := g.Validate()
	if err := report.Err(); err != nil {
		return nil, err
	}
	for _, w := range report.Warnings {
		e.logger.Warn("Graph warning", "rule", w.Rule, "node_id", w.NodeID, "message", w.Message)
	}

	if e.start == "" {
		start, err := g.StartNode()
		if err != nil {
			return nil, err
		}
		e.start = start
	} else if !g.Has(e.start) {
		return nil, fmt.Errorf("%w: start node %q", domain.ErrUnknownNode, e.start)
	}

	if e.classifier == nil {
		e.classifier = stage.NewClassifier(g)
	}
	if e.registry == nil {
		e.registry = executor.NewRegistry(&executor.Env{
			Generator:          e.generator,
			Logger:             e.logger,
			Messages:           e.messages,
			OffTopicLimit:      e.offTopicLimit,
			OffTopicConfidence: e.offTopicConf,
			GenerationTimeout:  e.externalTimeout,
			OnExternalError:    e.reportExternalError,
		})
	}
	return e, nil
}

// Graph returns the loaded graph.
func (e *Engine) Graph() *graph.Graph { return e.graph }

// Classifier returns the stage classifier.
func (e *Engine) Classifier() *stage.Classifier { return e.classifier }

// Registry returns the handler registry.
func (e *Engine) Registry() *executor.Registry { return e.registry }

// Sessions returns the session manager.
func (e *Engine) Sessions() *session.Manager { return e.sessions }

// StartNode returns the node new sessions begin at.
func (e *Engine) StartNode() string { return e.start }

// Info summarizes the graph with classified stages.
func (e *Engine) Info() graph.Info {
	return e.graph.Info(e.stageOf)
}

// stageOf is the stage a node is routed as: declared, else classified.
func (e *Engine) stageOf(n *domain.Node) domain.Stage {
	if n.Stage != "" {
		return n.Stage
	}
	return e.classifier.StageOf(n)
}

// StartSession creates a session at the start node, replacing any state
// stored under the same id.
func (e *Engine) StartSession(ctx context.Context, sessionID string) (*domain.TurnResult, error) {
	state, err := e.sessions.Start(ctx, sessionID, e.start)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("Session started", "session_id", sessionID, "node_id", e.start)
	e.emitNode(ctx, domain.EventNodeEnter, sessionID, e.start)
	return e.snapshot(state, ""), nil
}

// SessionInfo returns the current snapshot of a session without changing it.
func (e *Engine) SessionInfo(ctx context.Context, sessionID string) (*domain.TurnResult, error) {
	state, err := e.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return e.snapshot(state, ""), nil
}

// ResetSession deletes a session.
func (e *Engine) ResetSession(ctx context.Context, sessionID string) error {
	return e.sessions.Delete(ctx, sessionID)
}

// ListSessions returns the ids of stored sessions.
func (e *Engine) ListSessions(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}
