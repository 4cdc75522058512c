package executor

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// offTopic reports whether the turn drifted away from the node's purpose. A
// turn without a recorded confidence is only off-topic when the intent says so.
func (e *Env) offTopic(tc *domain.TurnContext) bool {
	if tc.OffTopic() {
		return true
	}
	conf, ok := tc.Confidence()
	return ok && conf < e.OffTopicConfidence
}

// guardOffTopic keeps the session on the node and counts consecutive off-topic
// turns, ending the session once the limit is reached.
func (e *Env) guardOffTopic(ctx context.Context, req *Request, missing []string) *Result {
	limit := req.Node.IntParam("max_off_topic_turns", e.OffTopicLimit)
	count := req.State.Context.OffTopicCount + 1

	if count >= limit {
		res := endResult(e.respondFixed(req, []string{"off_topic_limit"}, e.Messages.OffTopicLimit), domain.EndReasonTooManyOffTopic)
		res.ContextUpdates[domain.KeyOffTopicCount] = count
		res.ContextUpdates[domain.KeyLastOffTopicMessage] = req.Message
		return res
	}

	return &Result{
		Response: e.respond(ctx, req, reply{
			scenario: domain.ScenarioOffTopic,
			keys:     []string{"off_topic"},
			builtin:  e.Messages.OffTopic,
			intent:   domain.IntentOffTopic,
			missing:  missing,
		}),
		Next: StayHere(),
		ContextUpdates: map[string]any{
			domain.KeyOffTopicCount:       count,
			domain.KeyLastOffTopicMessage: req.Message,
			domain.KeyLastUserMessage:     req.Message,
			domain.KeyMissingSlots:        missing,
		},
	}
}

// respondFixed renders a node template or a fixed message without calling the
// generator. Used for texts that end a session.
func (e *Env) respondFixed(req *Request, keys []string, builtin string) string {
	text := builtin
	if t, ok := req.Node.FirstTemplate(keys...); ok {
		text = t
	}
	if text == "" {
		return e.Messages.Apology
	}
	return Render(text, Vars(req, nil))
}

// turnCapExceeded reports whether the current turn reaches the node's
// max_turns (or def). NodeTurns counts the current turn, so max_turns 5 ends
// the session on the fifth consecutive turn at the node.
func turnCapExceeded(req *Request, def int) bool {
	return req.State.Context.NodeTurns >= req.Node.IntParam("max_turns", def)
}
