/*
Package graph builds and inspects the directed dialogue graph.

Nodes come from a node-configuration map (node id to a loose record). Edges are
derived from either prev_nodes declarations (predecessor to this node) or
next_nodes declarations (this node to successor); both shapes may be mixed in
one file. Self-loops and edges that point at unknown nodes are dropped with a
warning.

The package answers structural questions only: Toposort runs Kahn's algorithm,
Validate reports start/end/isolated/unreachable nodes, and Successors and
Predecessors give adjacency lookups. Stage semantics live in package stage.
*/
package graph
