package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// Severity levels for validation diagnostics.
type Severity int

const (
	// SeverityError prevents the graph from driving a conversation.
	SeverityError Severity = iota
	// SeverityWarning is reported but never blocks graph use.
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityWarning:
		return "WARNING"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// UnmarshalText parses a severity name as written by MarshalText.
func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Diagnostic is a single validation finding.
type Diagnostic struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	NodeID   string   `json:"node_id,omitempty"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Rule, d.Message)
}

// Report summarizes the structural health of a graph.
type Report struct {
	OK               bool         `json:"ok"`
	Errors           []Diagnostic `json:"errors"`
	Warnings         []Diagnostic `json:"warnings"`
	StartNodes       []string     `json:"start_nodes"`
	EndNodes         []string     `json:"end_nodes"`
	IsolatedNodes    []string     `json:"isolated_nodes"`
	UnreachableNodes []string     `json:"unreachable_nodes"`
}

// Err returns a *domain.StructuralError when the report has errors.
func (r Report) Err() error {
	if r.OK {
		return nil
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, d := range r.Errors {
		msgs = append(msgs, d.Message)
	}
	return &domain.StructuralError{Errors: msgs}
}

// Validate checks the graph. Errors are a repeated node id and the absence of
// a node without incoming edges; missing end nodes, isolated nodes and nodes unreachable from
// the first start node are warnings.
func (g *Graph) Validate() Report {
	topo := g.Toposort()
	r := Report{
		Errors:           []Diagnostic{},
		Warnings:         []Diagnostic{},
		StartNodes:       topo.StartNodes,
		EndNodes:         topo.EndNodes,
		IsolatedNodes:    []string{},
		UnreachableNodes: []string{},
	}

	for _, id := range g.duplicates {
		r.Errors = append(r.Errors, Diagnostic{
			Rule:     "duplicate_node",
			Severity: SeverityError,
			Message:  fmt.Sprintf("node %q is declared more than once", id),
			NodeID:   id,
		})
	}

	for _, id := range g.order {
		if len(g.in[id]) == 0 && len(g.out[id]) == 0 {
			r.IsolatedNodes = append(r.IsolatedNodes, id)
		}
	}

	// A lone node with nothing pointing at it can still open a conversation.
	if len(r.StartNodes) == 0 && len(r.IsolatedNodes) > 0 {
		r.StartNodes = []string{r.IsolatedNodes[0]}
	}

	if len(r.StartNodes) == 0 {
		r.Errors = append(r.Errors, Diagnostic{
			Rule:     "start_node",
			Severity: SeverityError,
			Message:  "no start node: every node has at least one incoming edge",
		})
	}
	if len(r.EndNodes) == 0 {
		r.Warnings = append(r.Warnings, Diagnostic{
			Rule:     "end_node",
			Severity: SeverityWarning,
			Message:  "no end node: every node with incoming edges also has outgoing edges",
		})
	}
	for _, id := range r.IsolatedNodes {
		if len(r.StartNodes) > 0 && id == r.StartNodes[0] {
			continue
		}
		r.Warnings = append(r.Warnings, Diagnostic{
			Rule:     "isolated_node",
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("node %q has no edges", id),
			NodeID:   id,
		})
	}

	if len(r.StartNodes) > 0 {
		reached := g.reachable(r.StartNodes[0])
		isolated := make(map[string]bool, len(r.IsolatedNodes))
		for _, id := range r.IsolatedNodes {
			isolated[id] = true
		}
		for _, id := range g.order {
			if reached[id] || isolated[id] {
				continue
			}
			r.UnreachableNodes = append(r.UnreachableNodes, id)
			r.Warnings = append(r.Warnings, Diagnostic{
				Rule:     "reachability",
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("node %q is unreachable from start node %q", id, r.StartNodes[0]),
				NodeID:   id,
			})
		}
	}

	r.OK = len(r.Errors) == 0
	return r
}

// reachable runs an iterative depth-first traversal from start.
func (g *Graph) reachable(start string) map[string]bool {
	seen := map[string]bool{start: true}
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.out[id] {
			if !seen[e.To] {
				seen[e.To] = true
				stack = append(stack, e.To)
			}
		}
	}
	return seen
}
