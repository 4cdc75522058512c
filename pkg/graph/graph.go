package graph

import (
	"log/slog"
	"sort"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
)

// Edge is a directed transition between two nodes.
type Edge struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Context string `json:"context,omitempty"`
}

// RawNode is one entry of a node-configuration map, kept in declaration order.
// Fields is usually a map[string]any; anything else is coerced to an empty record.
type RawNode struct {
	ID     string
	Fields any
}

// Graph is an immutable dialogue graph. It is safe for concurrent reads.
type Graph struct {
	nodes map[string]*domain.Node
	order []string
	out   map[string][]Edge
	in    map[string][]Edge
	edges int

	start string
	// Ids declared more than once; the first declaration is kept.
	duplicates []string
}

// Option configures graph construction.
type Option func(*builder)

// WithLogger routes build warnings to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithStartNode records a preferred start node, typically declared by the
// configuration file.
func WithStartNode(id string) Option {
	return func(b *builder) {
		b.start = id
	}
}

type builder struct {
	logger *slog.Logger
	start  string
}

// Build normalizes raw node records into a Graph. Malformed records are
// coerced to empty nodes and repeated ids are left for Validate to report; only
// an empty configuration fails.
func Build(raw []RawNode, opts ...Option) (*Graph, error) {
	b := &builder{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(b)
	}

	if len(raw) == 0 {
		return nil, domain.ErrEmptyGraph
	}

	g := &Graph{
		nodes: make(map[string]*domain.Node, len(raw)),
		order: make([]string, 0, len(raw)),
		out:   make(map[string][]Edge),
		in:    make(map[string][]Edge),
	}

	declared := make(map[string]*record, len(raw))
	for _, r := range raw {
		if r.ID == "" {
			b.logger.Warn("Skipping node with empty id")
			continue
		}
		if _, dup := g.nodes[r.ID]; dup {
			b.logger.Warn("Ignoring repeated node declaration", "node_id", r.ID)
			g.duplicates = append(g.duplicates, r.ID)
			continue
		}
		rec, err := decodeRecord(r.Fields)
		if err != nil {
			b.logger.Warn("Coercing malformed node record to empty", "node_id", r.ID, "err", err)
			rec = &record{}
		}
		declared[r.ID] = rec
		g.nodes[r.ID] = rec.node(r.ID)
		g.order = append(g.order, r.ID)
	}
	if len(g.order) == 0 {
		return nil, domain.ErrEmptyGraph
	}

	seen := make(map[Edge]bool)
	for _, id := range g.order {
		rec := declared[id]
		for _, l := range rec.prev {
			b.addEdge(g, seen, Edge{From: l.Node, To: id, Context: l.Context})
		}
		for _, l := range rec.next {
			b.addEdge(g, seen, Edge{From: id, To: l.Node, Context: l.Context})
		}
	}

	// Expose resolved adjacency on the nodes themselves.
	for _, id := range g.order {
		n := g.nodes[id]
		n.Predecessors = linksOf(g.in[id], true)
		n.Successors = linksOf(g.out[id], false)
	}

	if b.start != "" {
		if _, ok := g.nodes[b.start]; ok {
			g.start = b.start
		} else {
			b.logger.Warn("Declared start node does not exist", "node_id", b.start)
		}
	}
	return g, nil
}

// BuildMap builds a graph from an unordered map. Node order is the sorted key
// order so results stay deterministic.
func BuildMap(m map[string]any, opts ...Option) (*Graph, error) {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	raw := make([]RawNode, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, RawNode{ID: id, Fields: m[id]})
	}
	return Build(raw, opts...)
}

func (b *builder) addEdge(g *Graph, seen map[Edge]bool, e Edge) {
	if e.From == "" || e.To == "" {
		return
	}
	if e.From == e.To {
		b.logger.Info("Dropping self-referential edge", "node_id", e.From)
		return
	}
	if _, ok := g.nodes[e.From]; !ok {
		b.logger.Warn("Dropping edge from unknown node", "from", e.From, "to", e.To)
		return
	}
	if _, ok := g.nodes[e.To]; !ok {
		b.logger.Warn("Dropping edge to unknown node", "from", e.From, "to", e.To)
		return
	}
	if seen[e] {
		return
	}
	seen[e] = true
	g.out[e.From] = append(g.out[e.From], e)
	g.in[e.To] = append(g.in[e.To], e)
	g.edges++
}

func linksOf(edges []Edge, incoming bool) []domain.Link {
	if len(edges) == 0 {
		return nil
	}
	links := make([]domain.Link, 0, len(edges))
	for _, e := range edges {
		id := e.To
		if incoming {
			id = e.From
		}
		links = append(links, domain.Link{Node: id, Context: e.Context})
	}
	return links
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*domain.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// IDs returns node ids in declaration order.
func (g *Graph) IDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Nodes returns nodes in declaration order.
func (g *Graph) Nodes() []*domain.Node {
	out := make([]*domain.Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Len returns the node count.
func (g *Graph) Len() int { return len(g.order) }

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int { return g.edges }

// Edges returns every edge grouped by source in declaration order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.edges)
	for _, id := range g.order {
		out = append(out, g.out[id]...)
	}
	return out
}

// OutEdges returns the outgoing edges of id, or nil for an unknown node.
func (g *Graph) OutEdges(id string) []Edge {
	return append([]Edge(nil), g.out[id]...)
}

// Successors returns the distinct successor ids of id in edge order.
// Unknown ids yield an empty slice.
func (g *Graph) Successors(id string) []string {
	return endpoints(g.out[id], false)
}

// Predecessors returns the distinct predecessor ids of id in edge order.
// Unknown ids yield an empty slice.
func (g *Graph) Predecessors(id string) []string {
	return endpoints(g.in[id], true)
}

// InDegree returns the number of incoming edges.
func (g *Graph) InDegree(id string) int { return len(g.in[id]) }

// OutDegree returns the number of outgoing edges.
func (g *Graph) OutDegree(id string) int { return len(g.out[id]) }

// Terminal reports whether id is a known node without successors.
func (g *Graph) Terminal(id string) bool {
	return g.Has(id) && len(g.out[id]) == 0
}

// DeclaredStart returns the start node named by configuration, if any.
func (g *Graph) DeclaredStart() string { return g.start }

// StartNode returns the node a new session should begin at: the declared start
// node if present, otherwise the first start node found by Validate.
func (g *Graph) StartNode() (string, error) {
	if g.start != "" {
		return g.start, nil
	}
	r := g.Validate()
	if len(r.StartNodes) == 0 {
		return "", r.Err()
	}
	return r.StartNodes[0], nil
}

func endpoints(edges []Edge, incoming bool) []string {
	out := make([]string, 0, len(edges))
	seen := make(map[string]bool, len(edges))
	for _, e := range edges {
		id := e.To
		if incoming {
			id = e.From
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
