package runtime

import (
	"context"
	"runtime/debug"

	"github.com/aretw0/arbor/pkg/domain"
)

type sessionKey struct{}

func withSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

func sessionFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

func (e *Engine) base(t domain.EventType, sessionID string) domain.EventBase {
	return domain.EventBase{Timestamp: e.now(), Type: t, SessionID: sessionID}
}

// callHook runs a lifecycle hook. A panicking hook is logged and never
// reaches the caller or changes the turn's outcome.
func (e *Engine) callHook(t domain.EventType, sessionID string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Recovered panic in lifecycle hook",
				"session_id", sessionID, "event", t, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}

func (e *Engine) emitTurn(ctx context.Context, t domain.EventType, ev *domain.TurnEvent, sessionID string) {
	ev.EventBase = e.base(t, sessionID)
	switch t {
	case domain.EventTurnStart:
		if e.hooks.OnTurnStart != nil {
			e.callHook(t, sessionID, func() { e.hooks.OnTurnStart(ctx, ev) })
		}
	case domain.EventTurnEnd:
		if e.hooks.OnTurnEnd != nil {
			e.callHook(t, sessionID, func() { e.hooks.OnTurnEnd(ctx, ev) })
		}
	}
}

func (e *Engine) emitNode(ctx context.Context, t domain.EventType, sessionID, nodeID string) {
	ev := &domain.NodeEvent{EventBase: e.base(t, sessionID), NodeID: nodeID}
	if n, ok := e.graph.Node(nodeID); ok {
		ev.Stage = e.stageOf(n)
	}
	switch t {
	case domain.EventNodeEnter:
		if e.hooks.OnNodeEnter != nil {
			e.callHook(t, sessionID, func() { e.hooks.OnNodeEnter(ctx, ev) })
		}
	case domain.EventNodeLeave:
		if e.hooks.OnNodeLeave != nil {
			e.callHook(t, sessionID, func() { e.hooks.OnNodeLeave(ctx, ev) })
		}
	}
}

func (e *Engine) emitComplete(ctx context.Context, state *domain.DialogueState) {
	e.logger.Info("Session complete",
		"session_id", state.SessionID, "node_id", state.CurrentNode,
		"end_reason", state.Context.EndReason, "turns", state.TurnCount)
	if e.hooks.OnSessionComplete == nil {
		return
	}
	ev := &domain.SessionEvent{
		EventBase: e.base(domain.EventSessionComplete, state.SessionID),
		NodeID:    state.CurrentNode,
		EndReason: state.Context.EndReason,
		Turns:     state.TurnCount,
	}
	e.callHook(domain.EventSessionComplete, state.SessionID, func() { e.hooks.OnSessionComplete(ctx, ev) })
}

// reportExternalError forwards recovered NLU/NLG failures to the hooks.
func (e *Engine) reportExternalError(ctx context.Context, op, nodeID string, err error) {
	if e.hooks.OnExternalError == nil {
		return
	}
	sessionID := sessionFrom(ctx)
	ev := &domain.ExternalErrorEvent{
		EventBase: e.base(domain.EventExternalError, sessionID),
		NodeID:    nodeID,
		Op:        op,
		Err:       err,
	}
	e.callHook(domain.EventExternalError, sessionID, func() { e.hooks.OnExternalError(ctx, ev) })
}
