package executor

import (
	"context"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// Final closes the conversation on completion and final nodes.
type Final struct {
	env *Env
}

// NewFinal is the Factory for completion and final nodes.
func NewFinal(env *Env) Executor { return &Final{env: env} }

func (h *Final) Execute(ctx context.Context, req *Request) (*Result, error) {
	key, reason := finalKind(req.Node.ID)
	slots := req.State.FilledSlots()

	response := h.env.respond(ctx, req, reply{
		scenario: domain.ScenarioCompletion,
		keys:     []string{key, "default"},
		builtin:  "Thank you. We're all done here.",
		vars:     map[string]any{"summary": Summary(slots)},
	})

	res := endResult(response, reason)
	res.ContextUpdates[domain.KeyLastUserMessage] = req.Message
	if len(slots) > 0 {
		res.ContextUpdates["completion_summary"] = slots
	}
	return res, nil
}

// finalKind picks the response key and end reason from the node id.
func finalKind(id string) (key, reason string) {
	id = strings.ToLower(id)
	switch {
	case strings.Contains(id, "cancel"):
		return "cancelled", domain.EndReasonCancelled
	case strings.Contains(id, "error"), strings.Contains(id, "fail"):
		return "error", domain.EndReasonCompleted
	case strings.Contains(id, "complete"), strings.Contains(id, "success"):
		return "success", domain.EndReasonCompleted
	}
	return "default", domain.EndReasonCompleted
}

// ClosingText renders the closing template of a terminal node without calling
// the generator. It returns "" when the node declares none.
func ClosingText(req *Request) string {
	key, _ := finalKind(req.Node.ID)
	t, ok := req.Node.FirstTemplate(key, "default")
	if !ok {
		return ""
	}
	return Render(t, Vars(req, map[string]any{"summary": Summary(req.State.FilledSlots())}))
}
