package runtime

import (
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/executor"
	"github.com/aretw0/arbor/pkg/stage"
)

// resolveNext applies the routing precedence:
//
//  1. the handler's directive
//  2. stay while the user is off-topic
//  3. a successor declaring the NLU-reported stage
//  4. a successor in the stage the transition table wants next
//  5. the first successor
//  6. a node of the wanted stage anywhere in the graph
//  7. the current node
func (e *Engine) resolveNext(state *domain.DialogueState, node *domain.Node, directive executor.Next, message string) string {
	current := node.ID
	tc := &state.Context

	switch directive.Directive {
	case executor.Stay:
		return current
	case executor.Jump:
		if e.graph.Has(directive.Node) {
			return directive.Node
		}
		e.logger.Warn("Handler routed to unknown node, falling back to graph routing",
			"session_id", state.SessionID, "node_id", current, "target", directive.Node)
	}

	if tc.OffTopic() {
		return current
	}

	successors := e.graph.Successors(current)

	if reported := tc.LastStage; reported != "" {
		for _, id := range successors {
			if n, ok := e.graph.Node(id); ok && n.Stage == reported {
				return id
			}
		}
	}

	desired := stage.NextStage(e.stageOf(node), stage.Signals{
		AllSlotsFilled:    tc.AllSlotsFilled || tc.LastAllSlotsFilled,
		Intent:            tc.LastIntent,
		Message:           message,
		ValidationSuccess: tc.LastValidationSuccess,
	})

	for _, id := range successors {
		if n, ok := e.graph.Node(id); ok && e.stageOf(n) == desired {
			return id
		}
	}
	if len(successors) > 0 {
		return successors[0]
	}

	var candidates []string
	for _, id := range e.graph.IDs() {
		if id == current {
			continue
		}
		if n, _ := e.graph.Node(id); e.stageOf(n) == desired {
			candidates = append(candidates, id)
		}
	}
	if picked := stage.SelectNode(candidates, successors, tc.Visited); picked != "" {
		return picked
	}
	return current
}
