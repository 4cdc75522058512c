package dsl

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/graph"
)

// Builder manages the graph construction. Nodes keep the order in which they
// were first added.
type Builder struct {
	nodes map[string]*NodeBuilder
	order []string
	start string
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{id: id, fields: make(map[string]any)}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Start declares the start node, overriding topological detection.
func (b *Builder) Start(id string) *Builder {
	b.start = id
	return b
}

// Nodes returns the node records in declaration order.
func (b *Builder) Nodes() []graph.RawNode {
	raw := make([]graph.RawNode, 0, len(b.order))
	for _, id := range b.order {
		raw = append(raw, graph.RawNode{ID: id, Fields: b.nodes[id].Build()})
	}
	return raw
}

// Build compiles the declared nodes into a graph.
func (b *Builder) Build(opts ...graph.Option) (*graph.Graph, error) {
	if b.start != "" {
		opts = append([]graph.Option{graph.WithStartNode(b.start)}, opts...)
	}
	g, err := graph.Build(b.Nodes(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	return g, nil
}
