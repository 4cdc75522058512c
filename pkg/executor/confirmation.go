package executor

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/stage"
)

// Values recorded under confirmation_result.
const (
	ConfirmationConfirmed = "confirmed"
	ConfirmationCancelled = "cancelled"
	ConfirmationModify    = "modify"
)

// Confirmation asks the user to approve the collected slots.
type Confirmation struct {
	env *Env
}

// NewConfirmation is the Factory for confirmation nodes.
func NewConfirmation(env *Env) Executor { return &Confirmation{env: env} }

func (h *Confirmation) Execute(ctx context.Context, req *Request) (*Result, error) {
	slots := req.State.FilledSlots()
	vars := map[string]any{"summary": Summary(slots)}

	var (
		result  string
		keys    []string
		builtin string
	)
	switch stage.Answer(req.Message, req.State.Context.LastIntent) {
	case stage.AnswerYes:
		result, keys, builtin = ConfirmationConfirmed, []string{"confirmed"}, "Confirmed. Let me take care of that."
	case stage.AnswerNo:
		result, keys, builtin = ConfirmationCancelled, []string{"cancelled"}, "No problem, let's go over it again."
	case stage.AnswerModify:
		result, keys, builtin = ConfirmationModify, []string{"modify", "cancelled"}, "Sure, let's change it."
	default:
		return &Result{
			Response: h.env.respond(ctx, req, reply{
				scenario: domain.ScenarioConfirmation,
				keys:     []string{"options", "confirmation_request", "default"},
				builtin:  "Please check the details:\n{summary}\n\nReply yes to confirm or no to make changes.",
				vars:     vars,
			}),
			Next: StayHere(),
			ContextUpdates: map[string]any{
				domain.KeyConfirmationResult: nil,
				domain.KeyLastUserMessage:    req.Message,
			},
		}, nil
	}

	vars[domain.KeyConfirmationResult] = result
	res := &Result{
		Response: h.env.respond(ctx, req, reply{
			scenario: domain.ScenarioConfirmation,
			keys:     keys,
			builtin:  builtin,
			vars:     vars,
		}),
		Next: h.env.route(req, vars),
		ContextUpdates: map[string]any{
			domain.KeyConfirmationResult: result,
			domain.KeyLastUserMessage:    req.Message,
		},
	}

	// Without a matching condition a rejection returns to the node that
	// collected the data.
	if result != ConfirmationConfirmed && res.Next.Directive == Defer && req.State.PreviousNode != "" {
		res.Next = GoTo(req.State.PreviousNode)
	}
	return res, nil
}
