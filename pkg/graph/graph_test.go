package graph_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linear() []graph.RawNode {
	return []graph.RawNode{
		{ID: "greet", Fields: map[string]any{"stage": "greeting"}},
		{ID: "collect", Fields: map[string]any{
			"prev_nodes": []any{"greet"},
			"params":     map[string]any{"required_slots": []any{"name"}},
		}},
		{ID: "confirm", Fields: map[string]any{"prev_nodes": []any{map[string]any{"name": "collect", "context": "all_slots_filled"}}}},
		{ID: "done", Fields: map[string]any{"prev_nodes": "confirm"}},
	}
}

func TestBuild_PrevNodes(t *testing.T) {
	g, err := graph.Build(linear())
	require.NoError(t, err)

	assert.Equal(t, 4, g.Len())
	assert.Equal(t, 3, g.EdgeCount())
	assert.Equal(t, []string{"collect"}, g.Successors("greet"))
	assert.Equal(t, []string{"collect"}, g.Predecessors("confirm"))
	assert.Equal(t, "all_slots_filled", g.OutEdges("collect")[0].Context)
	assert.True(t, g.Terminal("done"))

	collect, ok := g.Node("collect")
	require.True(t, ok)
	assert.Equal(t, []string{"name"}, collect.RequiredSlots())
	assert.Equal(t, []domain.Link{{Node: "confirm", Context: "all_slots_filled"}}, collect.Successors)
}

func TestBuild_NextNodesAndMixedShapes(t *testing.T) {
	g, err := graph.Build([]graph.RawNode{
		{ID: "a", Fields: map[string]any{"next_nodes": []any{"b", "c"}}},
		{ID: "b", Fields: map[string]any{}},
		{ID: "c", Fields: map[string]any{"prev_nodes": []any{"b"}}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "c"}, g.Successors("a"))
	assert.Equal(t, []string{"a", "b"}, g.Predecessors("c"))
}

func TestBuild_DropsSelfLoopsAndDanglingEdges(t *testing.T) {
	g, err := graph.Build([]graph.RawNode{
		{ID: "a", Fields: map[string]any{"next_nodes": []any{"a", "ghost", "b"}}},
		{ID: "b", Fields: map[string]any{"prev_nodes": []any{"b"}}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, []string{"b"}, g.Successors("a"))
	assert.Empty(t, g.Successors("b"))
}

func TestBuild_CoercesMalformedRecords(t *testing.T) {
	g, err := graph.Build([]graph.RawNode{
		{ID: "a", Fields: "not a record"},
		{ID: "b", Fields: nil},
		{ID: "c", Fields: map[string]any{"prev_nodes": []any{"a"}}},
	})
	require.NoError(t, err)

	a, ok := g.Node("a")
	require.True(t, ok)
	assert.Empty(t, a.Params)
	assert.True(t, a.Visible)
	assert.Equal(t, []string{"c"}, g.Successors("a"))
}

func TestBuild_Empty(t *testing.T) {
	_, err := graph.Build(nil)
	assert.ErrorIs(t, err, domain.ErrEmptyGraph)
}

func TestLookups_UnknownNode(t *testing.T) {
	g, err := graph.Build(linear())
	require.NoError(t, err)

	assert.NotNil(t, g.Successors("missing"))
	assert.Empty(t, g.Successors("missing"))
	assert.Empty(t, g.Predecessors("missing"))
}

func TestToposort_Acyclic(t *testing.T) {
	g, err := graph.Build(linear())
	require.NoError(t, err)

	res := g.Toposort()
	assert.True(t, res.Success)
	assert.Equal(t, []string{"greet", "collect", "confirm", "done"}, res.Order)
	assert.Equal(t, []string{"greet"}, res.StartNodes)
	assert.Equal(t, []string{"done"}, res.EndNodes)
	assert.Empty(t, res.CyclicNodes)
}

func TestToposort_Cycle(t *testing.T) {
	g, err := graph.Build([]graph.RawNode{
		{ID: "start", Fields: map[string]any{"next_nodes": []any{"a"}}},
		{ID: "a", Fields: map[string]any{"next_nodes": []any{"b"}}},
		{ID: "b", Fields: map[string]any{"next_nodes": []any{"c"}}},
		{ID: "c", Fields: map[string]any{"next_nodes": []any{"a", "end"}}},
		{ID: "end", Fields: map[string]any{}},
	})
	require.NoError(t, err)

	res := g.Toposort()
	assert.False(t, res.Success)
	// Nodes downstream of the cycle never reach in-degree zero either.
	assert.ElementsMatch(t, []string{"a", "b", "c", "end"}, res.CyclicNodes)
	assert.Equal(t, []string{"start"}, res.Order)
	assert.False(t, g.IsDAG())
}

func TestValidate_OK(t *testing.T) {
	g, err := graph.Build(linear())
	require.NoError(t, err)

	r := g.Validate()
	assert.True(t, r.OK)
	assert.Empty(t, r.Errors)
	assert.Equal(t, []string{"greet"}, r.StartNodes)
	assert.NoError(t, r.Err())
}

func TestValidate_SingleNode(t *testing.T) {
	g, err := graph.Build([]graph.RawNode{{ID: "only", Fields: map[string]any{}}})
	require.NoError(t, err)

	r := g.Validate()
	assert.True(t, r.OK)
	assert.Equal(t, []string{"only"}, r.StartNodes)

	start, err := g.StartNode()
	require.NoError(t, err)
	assert.Equal(t, "only", start)
}

func TestValidate_NoStartNode(t *testing.T) {
	g, err := graph.Build([]graph.RawNode{
		{ID: "a", Fields: map[string]any{"next_nodes": []any{"b"}}},
		{ID: "b", Fields: map[string]any{"next_nodes": []any{"a"}}},
	})
	require.NoError(t, err)

	r := g.Validate()
	assert.False(t, r.OK)
	assert.NotEmpty(t, r.Errors)

	err = r.Err()
	var structural *domain.StructuralError
	assert.True(t, errors.As(err, &structural))
	assert.ErrorIs(t, err, domain.ErrNoStartNode)

	_, err = g.StartNode()
	assert.ErrorIs(t, err, domain.ErrNoStartNode)
}

func TestValidate_Warnings(t *testing.T) {
	g, err := graph.Build([]graph.RawNode{
		{ID: "start", Fields: map[string]any{"next_nodes": []any{"mid"}}},
		{ID: "mid", Fields: map[string]any{"next_nodes": []any{"start"}}},
		{ID: "orphan_root", Fields: map[string]any{"next_nodes": []any{"island"}}},
		{ID: "island", Fields: map[string]any{}},
		{ID: "lonely", Fields: map[string]any{}},
	})
	require.NoError(t, err)

	r := g.Validate()
	assert.True(t, r.OK, "warnings never block")
	assert.Equal(t, []string{"orphan_root"}, r.StartNodes)
	assert.Equal(t, []string{"lonely"}, r.IsolatedNodes)
	assert.ElementsMatch(t, []string{"start", "mid"}, r.UnreachableNodes)
	assert.NotEmpty(t, r.Warnings)
}

func TestValidate_DuplicateNodeIDs(t *testing.T) {
	g, err := graph.Build([]graph.RawNode{
		{ID: "start", Fields: map[string]any{"next_nodes": []any{"end"}}},
		{ID: "end", Fields: map[string]any{"description": "first"}},
		{ID: "end", Fields: map[string]any{"description": "second"}},
		{ID: "lonely", Fields: map[string]any{}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, g.Len())

	n, ok := g.Node("end")
	require.True(t, ok)
	assert.Equal(t, "first", n.Description)

	r := g.Validate()
	assert.False(t, r.OK)
	require.Len(t, r.Errors, 1)
	assert.Equal(t, "duplicate_node", r.Errors[0].Rule)
	assert.Equal(t, "end", r.Errors[0].NodeID)
	// Other findings are still reported alongside.
	assert.Equal(t, []string{"lonely"}, r.IsolatedNodes)
	assert.NotEmpty(t, r.Warnings)
}

func TestReport_JSONRoundTrip(t *testing.T) {
	g, err := graph.Build([]graph.RawNode{
		{ID: "start", Fields: map[string]any{"next_nodes": []any{"mid"}}},
		{ID: "mid", Fields: map[string]any{"next_nodes": []any{"start"}}},
	})
	require.NoError(t, err)

	want := g.Validate()
	require.NotEmpty(t, want.Errors)
	require.NotEmpty(t, want.Warnings)

	data, err := json.Marshal(want)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"severity":"error"`)
	assert.Contains(t, string(data), `"severity":"warning"`)

	var got graph.Report
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, want, got)

	var s graph.Severity
	assert.Error(t, s.UnmarshalText([]byte("fatal")))
	require.NoError(t, s.UnmarshalText([]byte("WARNING")))
	assert.Equal(t, graph.SeverityWarning, s)
}

func TestInfo(t *testing.T) {
	g, err := graph.Build(linear())
	require.NoError(t, err)

	info := g.Info(nil)
	assert.Equal(t, 4, info.NodeCount)
	assert.Equal(t, 3, info.EdgeCount)
	assert.True(t, info.IsDAG)
	assert.Equal(t, []string{"greet"}, info.StageGroups[domain.StageGreeting])
	assert.Len(t, info.StageGroups[domain.StageDefault], 3)
}
