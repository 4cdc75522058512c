package executor

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// Slot filling defaults.
const (
	DefaultSlotFillingTurns = 15
	DefaultEntityConfidence = 0.8
)

// SlotFilling collects the node's required slots from extracted entities.
type SlotFilling struct {
	env *Env
}

// NewSlotFilling is the Factory for slot-filling nodes.
func NewSlotFilling(env *Env) Executor { return &SlotFilling{env: env} }

func (h *SlotFilling) Execute(ctx context.Context, req *Request) (*Result, error) {
	if turnCapExceeded(req, DefaultSlotFillingTurns) {
		return endResult(h.env.respondFixed(req, []string{"turn_limit"}, h.env.Messages.TurnLimit), domain.EndReasonTurnLimit), nil
	}

	tc := &req.State.Context
	required := req.Node.RequiredSlots()
	updates := ExtractSlots(req.State, required)

	missing := make([]string, 0, len(required))
	for _, name := range required {
		if _, ok := updates[name]; !ok && !req.State.SlotFilled(name) {
			missing = append(missing, name)
		}
	}

	if len(updates) == 0 && h.env.offTopic(tc) {
		return h.env.guardOffTopic(ctx, req, missing), nil
	}

	res := &Result{
		SlotUpdates: updates,
		ContextUpdates: map[string]any{
			domain.KeyMissingSlots:    missing,
			domain.KeyAllSlotsFilled:  len(missing) == 0,
			domain.KeyOffTopicCount:   0,
			domain.KeyLastUserMessage: req.Message,
		},
	}
	// A correction consumes the rejected confirmation.
	if len(updates) > 0 && correcting(req.State) {
		res.ContextUpdates[domain.KeyConfirmationResult] = nil
	}

	// Templates should see the values collected this turn.
	filled := make(map[string]any, len(updates))
	for name, u := range updates {
		filled[name] = u.Value
	}

	if len(missing) > 0 {
		res.Response = h.env.respond(ctx, req, reply{
			scenario: domain.ScenarioMissingSlots,
			keys:     []string{"initial", "default"},
			builtin:  "Could you tell me your {missing_slots}?",
			missing:  missing,
			vars:     filled,
		})
		res.Next = StayHere()
		return res, nil
	}

	summarySlots := req.State.FilledSlots()
	for k, v := range filled {
		summarySlots[k] = v
	}
	filled["summary"] = Summary(summarySlots)
	res.Response = h.env.respond(ctx, req, reply{
		scenario: domain.ScenarioAllSlotsFilled,
		keys:     []string{"confirmation", "complete", "default"},
		builtin:  "Thanks, I have everything I need:\n{summary}",
		vars:     filled,
	})
	res.Next = h.env.route(req, filled)
	return res, nil
}

// ExtractSlots turns the last extracted entities into updates for required
// slots that are still missing. After the user rejected or asked to modify a
// confirmation, filled slots may be overwritten as well. Entity confidence
// defaults to the turn's NLU confidence, or DefaultEntityConfidence when none
// was recorded.
func ExtractSlots(state *domain.DialogueState, required []string) map[string]domain.SlotUpdate {
	entities := state.Context.LastEntities
	if len(entities) == 0 || len(required) == 0 {
		return nil
	}
	conf, ok := state.Context.Confidence()
	if !ok {
		conf = DefaultEntityConfidence
	}

	overwrite := correcting(state)
	updates := make(map[string]domain.SlotUpdate)
	for _, name := range required {
		if !overwrite && state.SlotFilled(name) {
			continue
		}
		v, ok := entities[name]
		if !ok || !domain.IsFilledValue(v) {
			continue
		}
		updates[name] = domain.SlotUpdate{Value: v, Confidence: conf, Source: domain.SourceNLU}
	}
	if len(updates) == 0 {
		return nil
	}
	return updates
}

// correcting reports whether the last confirmation was turned down.
func correcting(state *domain.DialogueState) bool {
	switch state.Context.ConfirmationResult {
	case ConfirmationCancelled, ConfirmationModify:
		return true
	}
	return false
}
