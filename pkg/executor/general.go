package executor

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// DefaultGeneralTurns caps the turns spent on a node handled by General.
const DefaultGeneralTurns = 8

// General is the default handler for stages without a dedicated one.
type General struct {
	env *Env
}

// NewGeneral is the default Factory.
func NewGeneral(env *Env) Executor { return &General{env: env} }

func (h *General) Execute(ctx context.Context, req *Request) (*Result, error) {
	if turnCapExceeded(req, DefaultGeneralTurns) {
		return endResult(h.env.respondFixed(req, []string{"turn_limit"}, h.env.Messages.TurnLimit), domain.EndReasonTurnLimit), nil
	}

	missing := req.State.MissingSlots(req.Node.RequiredSlots())
	if len(missing) > 0 && h.env.offTopic(&req.State.Context) {
		return h.env.guardOffTopic(ctx, req, missing), nil
	}

	scenario := domain.ScenarioDefault
	if len(missing) > 0 {
		scenario = domain.ScenarioMissingSlots
	}
	if req.State.Context.OffTopic() {
		scenario = domain.ScenarioOffTopic
	}

	return &Result{
		Response: h.env.respond(ctx, req, reply{
			scenario: scenario,
			keys:     []string{"default"},
			builtin:  generalBuiltin(req.Stage, missing),
			missing:  missing,
		}),
		Next: h.env.route(req, nil),
		ContextUpdates: map[string]any{
			domain.KeyMissingSlots:    missing,
			domain.KeyAllSlotsFilled:  len(missing) == 0,
			domain.KeyOffTopicCount:   0,
			domain.KeyLastUserMessage: req.Message,
		},
	}, nil
}

func generalBuiltin(s domain.Stage, missing []string) string {
	switch {
	case len(missing) > 0:
		return "I still need your {missing_slots}."
	case s == domain.StageProcessing:
		return "Working on it."
	case s == domain.StageError:
		return "Something went wrong on my side. Let's try that again."
	}
	return "I see. What else can I help you with?"
}
