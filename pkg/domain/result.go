package domain

import "time"

// TurnResult is returned by every turn-level operation: the response text plus
// a structured snapshot of the session after the turn.
type TurnResult struct {
	Response        string         `json:"response"`
	SessionID       string         `json:"session_id"`
	CurrentNode     string         `json:"current_node"`
	TurnCount       int            `json:"turn_count"`
	SessionComplete bool           `json:"session_complete"`
	Slots           map[string]any `json:"slots"`
	Context         TurnContext    `json:"context"`
	Error           bool           `json:"error,omitempty"`
	Data            SessionData    `json:"data"`
}

// SessionData is the API-shaped view of a session.
type SessionData struct {
	Message string         `json:"message"`
	Session SessionSummary `json:"session"`
	Node    NodeSummary    `json:"node"`
	Slots   []SlotView     `json:"slots"`
	Context ContextSummary `json:"context"`
}

// SessionSummary describes lifecycle facts of a session.
type SessionSummary struct {
	ID          string    `json:"id"`
	IsComplete  bool      `json:"is_complete"`
	EndReason   string    `json:"end_reason,omitempty"`
	TurnCount   int       `json:"turn_count"`
	StartedAt   time.Time `json:"started_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// NodeSummary describes where the session stands in the graph.
type NodeSummary struct {
	Current    string   `json:"current"`
	Previous   string   `json:"previous,omitempty"`
	Stage      Stage    `json:"stage"`
	Successors []string `json:"successors"`
	StartNode  string   `json:"start_node"`
}

// SlotView is a flattened slot for presentation.
type SlotView struct {
	Name       string  `json:"name"`
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// ContextSummary surfaces the most useful last-turn signals.
type ContextSummary struct {
	LastIntent     string   `json:"last_intent,omitempty"`
	LastStage      Stage    `json:"last_stage,omitempty"`
	LastConfidence *float64 `json:"last_confidence,omitempty"`
	NodeTurns      int      `json:"node_turns"`
	TotalTurns     int      `json:"total_turns"`
	VisitedNodes   []string `json:"visited_nodes"`
}

// NewTurnResult builds a snapshot of state. Successive calls with the same
// state produce identical results.
func NewTurnResult(state *DialogueState, response string, node NodeSummary) *TurnResult {
	slots := make([]SlotView, 0, len(state.Slots))
	for _, name := range state.SlotNames() {
		s := state.Slots[name]
		if !s.Filled() {
			continue
		}
		slots = append(slots, SlotView{Name: name, Value: s.Value, Confidence: s.Confidence, Source: s.Source})
	}

	visited := state.Context.VisitedNodes
	if visited == nil {
		visited = []string{}
	}
	if node.Successors == nil {
		node.Successors = []string{}
	}

	ctx := state.Context.Clone()
	return &TurnResult{
		Response:        response,
		SessionID:       state.SessionID,
		CurrentNode:     state.CurrentNode,
		TurnCount:       state.TurnCount,
		SessionComplete: state.Complete,
		Slots:           state.FilledSlots(),
		Context:         ctx,
		Data: SessionData{
			Message: response,
			Session: SessionSummary{
				ID:          state.SessionID,
				IsComplete:  state.Complete,
				EndReason:   state.Context.EndReason,
				TurnCount:   state.TurnCount,
				StartedAt:   state.CreatedAt,
				LastUpdated: state.UpdatedAt,
			},
			Node:  node,
			Slots: slots,
			Context: ContextSummary{
				LastIntent:     ctx.LastIntent,
				LastStage:      ctx.LastStage,
				LastConfidence: ctx.LastConfidence,
				NodeTurns:      ctx.NodeTurns,
				TotalTurns:     ctx.TotalTurns,
				VisitedNodes:   copyStrings(visited),
			},
		},
	}
}
