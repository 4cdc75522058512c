package runtime

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// snapshot builds the caller-facing view of state.
func (e *Engine) snapshot(state *domain.DialogueState, response string) *domain.TurnResult {
	summary := domain.NodeSummary{
		Current:    state.CurrentNode,
		Previous:   state.PreviousNode,
		Successors: e.graph.Successors(state.CurrentNode),
		StartNode:  e.start,
	}
	if n, ok := e.graph.Node(state.CurrentNode); ok {
		summary.Stage = e.stageOf(n)
	}
	return domain.NewTurnResult(state, response, summary)
}

// failure builds the generic error result, describing the last persisted
// state when it can still be read.
func (e *Engine) failure(ctx context.Context, sessionID string) *domain.TurnResult {
	state, err := e.sessions.Store().Load(ctx, sessionID)
	if err != nil {
		return &domain.TurnResult{
			Response:  e.messages.Failure,
			SessionID: sessionID,
			Slots:     map[string]any{},
			Error:     true,
			Data: domain.SessionData{
				Message: e.messages.Failure,
				Session: domain.SessionSummary{ID: sessionID},
				Node:    domain.NodeSummary{StartNode: e.start, Successors: []string{}},
				Slots:   []domain.SlotView{},
			},
		}
	}
	res := e.snapshot(state, e.messages.Failure)
	res.Error = true
	return res
}
