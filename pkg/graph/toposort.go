package graph

// TopoResult is the outcome of Kahn's algorithm over the graph.
type TopoResult struct {
	Order       []string `json:"order"`
	Success     bool     `json:"success"`
	CyclicNodes []string `json:"cyclic_nodes"`
	StartNodes  []string `json:"start_nodes"`
	EndNodes    []string `json:"end_nodes"`
}

// Toposort orders nodes topologically. Start candidates have in-degree 0 and at
// least one outgoing edge; end candidates have out-degree 0 and at least one
// incoming edge. Nodes whose in-degree never drops to zero are cyclic.
func (g *Graph) Toposort() TopoResult {
	indeg := make(map[string]int, len(g.order))
	for _, id := range g.order {
		indeg[id] = len(g.in[id])
	}

	res := TopoResult{
		Order:       make([]string, 0, len(g.order)),
		CyclicNodes: []string{},
		StartNodes:  []string{},
		EndNodes:    []string{},
	}

	queue := make([]string, 0, len(g.order))
	for _, id := range g.order {
		if indeg[id] == 0 {
			queue = append(queue, id)
		}
		switch {
		case len(g.in[id]) == 0 && len(g.out[id]) > 0:
			res.StartNodes = append(res.StartNodes, id)
		case len(g.out[id]) == 0 && len(g.in[id]) > 0:
			res.EndNodes = append(res.EndNodes, id)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		res.Order = append(res.Order, id)
		for _, e := range g.out[id] {
			indeg[e.To]--
			if indeg[e.To] == 0 {
				queue = append(queue, e.To)
			}
		}
	}

	res.Success = len(res.Order) == len(g.order)
	if !res.Success {
		for _, id := range g.order {
			if indeg[id] > 0 {
				res.CyclicNodes = append(res.CyclicNodes, id)
			}
		}
	}
	return res
}

// IsDAG reports whether the graph has no cycles.
func (g *Graph) IsDAG() bool {
	return g.Toposort().Success
}
