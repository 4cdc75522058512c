package executor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/condition"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Defaults for Env.
const (
	DefaultOffTopicLimit      = 3
	DefaultOffTopicConfidence = 0.5
	DefaultGenerationTimeout  = 10 * time.Second
)

// Env holds the collaborators shared by every handler.
type Env struct {
	// Generator phrases replies. Nil means templates only.
	Generator  ports.ResponseGenerator
	Conditions *condition.Evaluator
	Logger     *slog.Logger
	Messages   domain.Messages

	// OffTopicLimit is the number of consecutive off-topic turns that ends
	// a session. Nodes override it with the max_off_topic_turns param.
	OffTopicLimit int
	// OffTopicConfidence is the NLU confidence below which a turn that
	// filled no slot counts as off-topic.
	OffTopicConfidence float64
	GenerationTimeout  time.Duration

	// OnExternalError is told about recovered generation failures.
	OnExternalError func(ctx context.Context, op, nodeID string, err error)
}

func (e *Env) withDefaults() *Env {
	out := *e
	if out.Logger == nil {
		out.Logger = logging.NewNop()
	}
	if out.Conditions == nil {
		out.Conditions = condition.New(condition.WithLogger(out.Logger))
	}
	if out.OffTopicLimit <= 0 {
		out.OffTopicLimit = DefaultOffTopicLimit
	}
	if out.OffTopicConfidence <= 0 {
		out.OffTopicConfidence = DefaultOffTopicConfidence
	}
	if out.GenerationTimeout <= 0 {
		out.GenerationTimeout = DefaultGenerationTimeout
	}
	out.Messages = out.Messages.WithDefaults()
	return &out
}

// reply describes a response to produce.
type reply struct {
	scenario string
	keys     []string
	builtin  string
	intent   string
	missing  []string
	vars     map[string]any
}

// respond produces a reply: generator first, then the node template, then the
// built-in text, then the fixed apology.
func (e *Env) respond(ctx context.Context, req *Request, r reply) string {
	vars := Vars(req, r.vars)
	if len(r.missing) > 0 {
		vars["missing_slots"] = strings.Join(r.missing, ", ")
	}

	fallback := r.builtin
	if t, ok := req.Node.FirstTemplate(r.keys...); ok {
		fallback = t
	}
	fallback = Render(fallback, vars)

	if e.Generator != nil {
		intent := r.intent
		if intent == "" {
			intent = req.State.Context.LastIntent
		}
		gctx, cancel := context.WithTimeout(ctx, e.GenerationTimeout)
		text, err := e.Generator.GenerateResponse(gctx, domain.GenerationRequest{
			Node:         req.Node,
			Context:      req.State.Context.AsMap(),
			Slots:        req.State.FilledSlots(),
			Message:      req.Message,
			Intent:       intent,
			Scenario:     r.scenario,
			MissingSlots: r.missing,
			Fallback:     fallback,
		})
		cancel()
		switch {
		case err != nil:
			e.Logger.Warn("response generation failed",
				"session_id", req.State.SessionID, "node_id", req.Node.ID, "op", "generate", "error", err)
			if e.OnExternalError != nil {
				e.OnExternalError(ctx, "generate", req.Node.ID, err)
			}
		case strings.TrimSpace(text) != "":
			return text
		}
	}

	if strings.TrimSpace(fallback) == "" {
		return e.Messages.Apology
	}
	return fallback
}

// conditionContext is the view node conditions are evaluated against: the
// turn context, filled slots at top level and under "slots", and the message.
func conditionContext(req *Request) map[string]any {
	ctx := req.State.Context.AsMap()
	slots := req.State.FilledSlots()
	for k, v := range slots {
		ctx[k] = v
	}
	ctx["slots"] = slots
	ctx["message"] = req.Message
	ctx["user_message"] = req.Message
	ctx["turn_count"] = req.State.TurnCount
	return ctx
}

// route evaluates the node conditions, deferring when none match.
func (e *Env) route(req *Request, extra map[string]any) Next {
	if len(req.Node.Conditions) == 0 {
		return Next{}
	}
	ctx := conditionContext(req)
	for k, v := range extra {
		ctx[k] = v
	}
	if target, ok := e.Conditions.Evaluate(req.Node.Conditions, ctx); ok && target != "" {
		return GoTo(target)
	}
	return Next{}
}
