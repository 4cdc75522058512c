package executor

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// DefaultGreetingTurns caps the turns spent on a greeting node.
const DefaultGreetingTurns = 5

// Greeting welcomes the user and lets routing move on.
type Greeting struct {
	env *Env
}

// NewGreeting is the Factory for greeting nodes.
func NewGreeting(env *Env) Executor { return &Greeting{env: env} }

func (h *Greeting) Execute(ctx context.Context, req *Request) (*Result, error) {
	if turnCapExceeded(req, DefaultGreetingTurns) {
		return endResult(h.env.respondFixed(req, []string{"goodbye", "turn_limit"}, h.env.Messages.TurnLimit), domain.EndReasonTurnLimit), nil
	}

	keys := []string{"default", "initial"}
	if req.State.Context.NodeTurns > 1 {
		keys = []string{"returning_user", "default"}
	}
	response := h.env.respond(ctx, req, reply{
		scenario: domain.ScenarioDefault,
		keys:     keys,
		builtin:  "Hello! How can I help you today?",
		intent:   "greeting",
	})

	return &Result{
		Response: response,
		Next:     h.env.route(req, nil),
		ContextUpdates: map[string]any{
			domain.KeyGreeted:         true,
			domain.KeyLastUserMessage: req.Message,
		},
	}, nil
}
