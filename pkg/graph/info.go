package graph

import "github.com/aretw0/arbor/pkg/domain"

// Info is an exportable summary of the graph.
type Info struct {
	NodeCount   int                       `json:"node_count"`
	EdgeCount   int                       `json:"edge_count"`
	IsDAG       bool                      `json:"is_dag"`
	StartNodes  []string                  `json:"start_nodes"`
	EndNodes    []string                  `json:"end_nodes"`
	Order       []string                  `json:"topological_order"`
	CyclicNodes []string                  `json:"cyclic_nodes"`
	StageGroups map[domain.Stage][]string `json:"stage_groups"`
	Edges       []Edge                    `json:"edges"`
}

// Info summarizes the graph. stageOf assigns each node its stage; when nil the
// declared stage is used and undeclared nodes are grouped under default.
func (g *Graph) Info(stageOf func(*domain.Node) domain.Stage) Info {
	topo := g.Toposort()
	groups := make(map[domain.Stage][]string)
	for _, n := range g.Nodes() {
		var s domain.Stage
		if stageOf != nil {
			s = stageOf(n)
		} else {
			s = n.Stage
		}
		if s == "" {
			s = domain.StageDefault
		}
		groups[s] = append(groups[s], n.ID)
	}
	return Info{
		NodeCount:   g.Len(),
		EdgeCount:   g.EdgeCount(),
		IsDAG:       topo.Success,
		StartNodes:  topo.StartNodes,
		EndNodes:    topo.EndNodes,
		Order:       topo.Order,
		CyclicNodes: topo.CyclicNodes,
		StageGroups: groups,
		Edges:       g.Edges(),
	}
}
