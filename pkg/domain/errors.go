package domain

import (
	"errors"
	"strings"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionComplete is returned when a turn is submitted to a finished session.
var ErrSessionComplete = errors.New("session already complete")

// ErrNoStartNode is returned when a graph has no node without incoming edges.
var ErrNoStartNode = errors.New("graph has no start node")

// ErrEmptyGraph is returned when a node configuration contains no nodes.
var ErrEmptyGraph = errors.New("graph has no nodes")

// ErrUnknownNode is returned when a node id is not part of the loaded graph.
var ErrUnknownNode = errors.New("unknown node")

// ErrTurnFailed wraps any internal failure caught at the turn boundary.
var ErrTurnFailed = errors.New("turn failed")

// StructuralError reports a graph that cannot be used to drive a conversation.
type StructuralError struct {
	Errors []string
}

func (e *StructuralError) Error() string {
	if len(e.Errors) == 0 {
		return "structural error"
	}
	return "structural error: " + strings.Join(e.Errors, "; ")
}

// Unwrap allows errors.Is(err, ErrNoStartNode).
func (e *StructuralError) Unwrap() error {
	return ErrNoStartNode
}
