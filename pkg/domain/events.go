package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTurnStart       EventType = "turn_start"
	EventTurnEnd         EventType = "turn_end"
	EventNodeEnter       EventType = "node_enter"
	EventNodeLeave       EventType = "node_leave"
	EventSessionComplete EventType = "session_complete"
	EventExternalError   EventType = "external_error"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// TurnEvent is emitted around each processed turn.
type TurnEvent struct {
	EventBase
	NodeID   string        `json:"node_id"`
	Stage    Stage         `json:"stage,omitempty"`
	Message  string        `json:"message,omitempty"`
	Response string        `json:"response,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Failed   bool          `json:"failed,omitempty"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID string `json:"node_id"`
	Stage  Stage  `json:"stage,omitempty"`
}

// SessionEvent is emitted once when a session completes.
type SessionEvent struct {
	EventBase
	NodeID    string `json:"node_id"`
	EndReason string `json:"end_reason"`
	Turns     int    `json:"turns"`
}

// ExternalErrorEvent reports a recovered NLU/NLG failure.
type ExternalErrorEvent struct {
	EventBase
	NodeID string `json:"node_id"`
	Op     string `json:"op"`
	Err    error  `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Any hook may be nil.
type LifecycleHooks struct {
	OnTurnStart       func(context.Context, *TurnEvent)
	OnTurnEnd         func(context.Context, *TurnEvent)
	OnNodeEnter       func(context.Context, *NodeEvent)
	OnNodeLeave       func(context.Context, *NodeEvent)
	OnSessionComplete func(context.Context, *SessionEvent)
	OnExternalError   func(context.Context, *ExternalErrorEvent)
}

// Merge combines two hook sets so both are invoked, h first.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTurnStart:       chain(h.OnTurnStart, other.OnTurnStart),
		OnTurnEnd:         chain(h.OnTurnEnd, other.OnTurnEnd),
		OnNodeEnter:       chain(h.OnNodeEnter, other.OnNodeEnter),
		OnNodeLeave:       chain(h.OnNodeLeave, other.OnNodeLeave),
		OnSessionComplete: chain(h.OnSessionComplete, other.OnSessionComplete),
		OnExternalError:   chain(h.OnExternalError, other.OnExternalError),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
