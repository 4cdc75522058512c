package executor

import (
	"context"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/schema"
)

// Validation checks collected slots against the node's validation_rules.
type Validation struct {
	env *Env
}

// NewValidation is the Factory for validation nodes.
func NewValidation(env *Env) Executor { return &Validation{env: env} }

func (h *Validation) Execute(ctx context.Context, req *Request) (*Result, error) {
	raw, _ := req.Node.Param("validation_rules")
	rules, err := schema.ParseRules(raw)
	if err != nil {
		h.env.Logger.Warn("Ignoring invalid validation rules", "node_id", req.Node.ID, "error", err)
		rules = schema.Rules{}
	}

	names := req.Node.StringsParam("validate_slots")
	if len(names) == 0 {
		names = rules.Slots()
	}

	verr := rules.Validate(names, req.State.FilledSlots())
	if verr == nil {
		return &Result{
			Response: h.env.respond(ctx, req, reply{
				scenario: domain.ScenarioDefault,
				keys:     []string{"valid", "default"},
				builtin:  "Thanks, everything checks out.",
			}),
			Next: h.env.route(req, map[string]any{domain.KeyLastValidationSuccess: true}),
			ContextUpdates: map[string]any{
				domain.KeyLastValidationSuccess: true,
				domain.KeyLastValidationErrors:  nil,
				domain.KeyLastUserMessage:       req.Message,
			},
		}, nil
	}

	reasons := schema.Reasons(verr)
	lines := make([]string, 0, len(reasons))
	invalid := make([]string, 0, len(reasons))
	slotUpdates := make(map[string]domain.SlotUpdate, len(reasons))
	for _, name := range names {
		r, ok := reasons[name]
		if !ok {
			continue
		}
		lines = append(lines, name+": "+strings.Join(r, "; "))
		invalid = append(invalid, name)
		// Clearing the slot makes slot filling ask for it again.
		slotUpdates[name] = domain.SlotUpdate{Value: nil, Source: domain.SourceHandler}
	}

	res := &Result{
		Response: h.env.respond(ctx, req, reply{
			scenario: domain.ScenarioMissingSlots,
			keys:     []string{"invalid", "default"},
			builtin:  "Some details need another look:\n{errors}",
			missing:  invalid,
			vars:     map[string]any{"errors": strings.Join(lines, "\n")},
		}),
		Next:        h.env.route(req, map[string]any{domain.KeyLastValidationSuccess: false}),
		SlotUpdates: slotUpdates,
		ContextUpdates: map[string]any{
			domain.KeyLastValidationSuccess: false,
			domain.KeyLastValidationErrors:  reasons,
			domain.KeyLastUserMessage:       req.Message,
		},
	}
	if res.Next.Directive == Defer {
		res.Next = StayHere()
		if req.State.PreviousNode != "" {
			res.Next = GoTo(req.State.PreviousNode)
		}
	}
	return res, nil
}
