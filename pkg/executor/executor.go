package executor

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// Directive tells the runtime how to route after a handler ran.
type Directive int

const (
	// Defer leaves the decision to graph and stage based routing.
	Defer Directive = iota
	// Stay keeps the session on the current node.
	Stay
	// Jump moves the session to Next.Node.
	Jump
)

func (d Directive) String() string {
	switch d {
	case Stay:
		return "stay"
	case Jump:
		return "goto"
	default:
		return "defer"
	}
}

// Next is a routing directive. The zero value defers.
type Next struct {
	Directive Directive
	Node      string
}

// StayHere keeps the session on the current node.
func StayHere() Next { return Next{Directive: Stay} }

// GoTo moves the session to the given node.
func GoTo(nodeID string) Next { return Next{Directive: Jump, Node: nodeID} }

// Request is the input of a handler. State must be treated as read-only.
type Request struct {
	Node       *domain.Node
	State      *domain.DialogueState
	Message    string
	Stage      domain.Stage
	Successors []string
}

// Result is a handler's reply plus its proposed mutations.
type Result struct {
	Response       string
	Next           Next
	ContextUpdates map[string]any
	SlotUpdates    map[string]domain.SlotUpdate
}

// Ends reports whether the result asks to end the session.
func (r *Result) Ends() bool {
	if r == nil || r.ContextUpdates == nil {
		return false
	}
	ended, _ := r.ContextUpdates[domain.KeySessionEnded].(bool)
	return ended
}

// Executor handles one turn for a stage.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Result, error)
}

// Func adapts a function to the Executor interface.
type Func func(ctx context.Context, req *Request) (*Result, error)

// Execute calls f.
func (f Func) Execute(ctx context.Context, req *Request) (*Result, error) {
	return f(ctx, req)
}

func endResult(response, reason string) *Result {
	return &Result{
		Response: response,
		Next:     StayHere(),
		ContextUpdates: map[string]any{
			domain.KeySessionEnded: true,
			domain.KeyEndReason:    reason,
		},
	}
}
