package runtime

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/executor"
)

// turn is the outcome of one successful pipeline run.
type turn struct {
	state    *domain.DialogueState
	response string
	stage    domain.Stage
	from     string
	ended    bool
}

// ProcessTurn runs one user message through the pipeline. Internal failures
// never escape as panics: the caller gets a populated failure result with
// Error set, an error wrapping domain.ErrTurnFailed, and the session keeps its
// last persisted state.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID, message string) (*domain.TurnResult, error) {
	started := e.now()
	ctx = withSession(ctx, sessionID)
	e.emitTurn(ctx, domain.EventTurnStart, &domain.TurnEvent{Message: message}, sessionID)

	var (
		out      *turn
		snapshot *domain.TurnResult
	)
	err := e.sessions.Update(ctx, sessionID, e.start, func(ctx context.Context, stored *domain.DialogueState) (*domain.DialogueState, error) {
		if stored.Complete {
			snapshot = e.snapshot(stored, e.messages.SessionComplete)
			return nil, nil
		}
		var err error
		out, err = e.safeRun(ctx, stored.Clone(), message)
		if err != nil {
			return nil, err
		}
		return out.state, nil
	})

	if err != nil {
		e.logger.Error("Turn failed", "session_id", sessionID, "error", err)
		res := e.failure(ctx, sessionID)
		e.emitTurn(ctx, domain.EventTurnEnd, &domain.TurnEvent{
			NodeID:   res.CurrentNode,
			Message:  message,
			Response: res.Response,
			Duration: e.now().Sub(started),
			Failed:   true,
		}, sessionID)
		return res, fmt.Errorf("%w: %w", domain.ErrTurnFailed, err)
	}

	if snapshot != nil {
		e.emitTurn(ctx, domain.EventTurnEnd, &domain.TurnEvent{
			NodeID:   snapshot.CurrentNode,
			Message:  message,
			Response: snapshot.Response,
			Duration: e.now().Sub(started),
		}, sessionID)
		return snapshot, nil
	}

	// Events describe persisted transitions only.
	if out.from != out.state.CurrentNode {
		e.emitNode(ctx, domain.EventNodeLeave, sessionID, out.from)
		e.emitNode(ctx, domain.EventNodeEnter, sessionID, out.state.CurrentNode)
	}
	if out.ended {
		e.emitComplete(ctx, out.state)
	}
	res := e.snapshot(out.state, out.response)
	e.emitTurn(ctx, domain.EventTurnEnd, &domain.TurnEvent{
		NodeID:   out.state.CurrentNode,
		Stage:    out.stage,
		Message:  message,
		Response: out.response,
		Duration: e.now().Sub(started),
	}, sessionID)
	return res, nil
}

// safeRun converts panics inside the pipeline into errors.
func (e *Engine) safeRun(ctx context.Context, state *domain.DialogueState, message string) (out *turn, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Recovered panic in turn pipeline",
				"session_id", state.SessionID, "panic", r, "stack", string(debug.Stack()))
			out, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return e.run(ctx, state, message)
}

func (e *Engine) run(ctx context.Context, state *domain.DialogueState, message string) (*turn, error) {
	now := e.now().UTC()

	// 1. Current node.
	if state.CurrentNode == "" {
		state.CurrentNode = e.start
	}
	current := state.CurrentNode
	node, ok := e.graph.Node(current)
	if !ok {
		return nil, fmt.Errorf("%w: current node %q", domain.ErrUnknownNode, current)
	}

	// 2. Counters.
	state.TurnCount++
	state.Context.TotalTurns = state.TurnCount
	if state.Context.NodeTurns < 1 {
		state.Context.NodeTurns = 1
	}
	state.UpdatedAt = now

	// 3. NLU annotation.
	e.annotate(ctx, state, node, message)

	// 4. Dispatch stage.
	dispatch := e.dispatchStage(state, node)
	e.logger.Debug("Dispatching turn",
		"session_id", state.SessionID, "node_id", current, "stage", dispatch,
		"intent", state.Context.LastIntent)

	// 5. Handler.
	res, err := e.registry.For(dispatch).Execute(ctx, &executor.Request{
		Node:       node,
		State:      state,
		Message:    message,
		Stage:      dispatch,
		Successors: e.graph.Successors(current),
	})
	if err != nil {
		return nil, fmt.Errorf("handler %s failed on node %q: %w", dispatch, current, err)
	}
	if res == nil {
		return nil, fmt.Errorf("handler %s returned no result on node %q", dispatch, current)
	}

	// 6. Merge.
	if err := state.Context.Apply(res.ContextUpdates); err != nil {
		return nil, err
	}
	state.ApplySlotUpdates(res.SlotUpdates, now)

	out := &turn{state: state, response: res.Response, stage: dispatch, from: current}

	if state.Context.SessionEnded {
		reason := state.Context.EndReason
		if reason == "" {
			reason = domain.EndReasonCompleted
		}
		state.End(reason)
		state.Context.NodeTurns++
		out.ended = true
		return out, nil
	}
	if e.maxTurns > 0 && state.TurnCount >= e.maxTurns {
		state.End(domain.EndReasonMaxTurns)
		state.Context.NodeTurns++
		out.response = joinResponse(out.response, e.messages.TurnLimit)
		out.ended = true
		return out, nil
	}

	// 7. Routing.
	next := e.resolveNext(state, node, res.Next, message)

	// 8. Per-node counter and history.
	if next == current {
		state.Context.NodeTurns++
		return out, nil
	}
	state.Context.NodeTurns = 1
	if !state.Context.Visited(current) {
		state.Context.VisitedNodes = append(state.Context.VisitedNodes, current)
	}
	state.PreviousNode = current
	state.CurrentNode = next
	e.logger.Debug("Node transition", "session_id", state.SessionID, "from", current, "to", next)

	if e.graph.Terminal(next) {
		nextNode, _ := e.graph.Node(next)
		closing := executor.ClosingText(&executor.Request{Node: nextNode, State: state, Message: message})
		out.response = joinResponse(out.response, closing)
		state.End(domain.EndReasonReachedEnd)
		out.ended = true
	}
	return out, nil
}

// annotate records the NLU reading of the message. Signals from the previous
// turn are cleared first so a failed extraction leaves them unset.
func (e *Engine) annotate(ctx context.Context, state *domain.DialogueState, node *domain.Node, message string) {
	tc := &state.Context
	tc.LastIntent = ""
	tc.LastEntities = nil
	tc.LastConfidence = nil
	tc.LastStage = ""
	tc.LastMissingSlots = nil
	tc.LastAllSlotsFilled = false
	tc.LastUserMessage = message

	if e.nlu == nil {
		return
	}

	nctx, cancel := context.WithTimeout(ctx, e.externalTimeout)
	defer cancel()
	result, err := e.nlu.ExtractIntent(nctx, message, node, tc.AsMap())
	if err == nil && result == nil {
		err = errors.New("empty extraction result")
	}
	if err != nil {
		e.logger.Warn("Intent extraction failed",
			"session_id", state.SessionID, "node_id", node.ID, "op", "extract", "error", err)
		e.reportExternalError(ctx, "extract", node.ID, err)
		return
	}

	tc.LastIntent = result.Intent
	tc.LastEntities = result.Entities
	tc.SetConfidence(result.Confidence)
	tc.LastStage = domain.ParseStage(result.Stage)
	tc.LastMissingSlots = result.MissingSlots
	tc.LastAllSlotsFilled = result.AllSlotsFilled
}

// dispatchStage picks the handler stage: NLU-reported, declared, classified,
// then default.
func (e *Engine) dispatchStage(state *domain.DialogueState, node *domain.Node) domain.Stage {
	if s := state.Context.LastStage; s != "" {
		return s
	}
	if node.Stage != "" {
		return node.Stage
	}
	if s := e.classifier.StageOf(node); s != "" {
		return s
	}
	return domain.StageDefault
}

func joinResponse(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
