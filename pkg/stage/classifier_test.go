package stage_test

import (
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/graph"
	"github.com/aretw0/arbor/pkg/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flow(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.Build([]graph.RawNode{
		{ID: "greet", Fields: map[string]any{
			"next_nodes": []any{"collect"},
			"responses":  map[string]any{"default": "Hello! Welcome."},
		}},
		{ID: "collect", Fields: map[string]any{
			"next_nodes": []any{"confirm"},
			"params":     map[string]any{"required_slots": []any{"name"}},
			"responses":  map[string]any{"initial": "What is your name?"},
		}},
		{ID: "confirm", Fields: map[string]any{
			"next_nodes": []any{"done"},
			"responses":  map[string]any{"default": "Is that right, {name}?"},
		}},
		{ID: "done", Fields: map[string]any{"responses": map[string]any{"default": "All set."}}},
	})
	require.NoError(t, err)
	return g
}

func TestClassifier_InfersStages(t *testing.T) {
	c := stage.NewClassifier(flow(t))

	cases := map[string]domain.Stage{
		"greet":   domain.StageGreeting,
		"collect": domain.StageSlotFilling,
		"confirm": domain.StageConfirmation,
		"done":    domain.StageCompletion,
	}
	for id, want := range cases {
		r := c.Classify(id)
		assert.Equal(t, want, r.Stage, id)
		assert.Greater(t, r.Confidence, 0.0, id)
		assert.LessOrEqual(t, r.Confidence, 1.0, id)
		assert.NotEmpty(t, r.Reasons, id)
	}
}

func TestClassifier_DeclaredStagePolicy(t *testing.T) {
	g, err := graph.Build([]graph.RawNode{
		{ID: "greet", Fields: map[string]any{"stage": "confirmation", "next_nodes": []any{"end"}}},
		{ID: "end", Fields: map[string]any{}},
	})
	require.NoError(t, err)

	declared := stage.NewClassifier(g)
	r := declared.Classify("greet")
	assert.Equal(t, domain.StageConfirmation, r.Stage)
	assert.Equal(t, 1.0, r.Confidence)

	inferred := stage.NewClassifier(g, stage.WithPolicy(stage.PolicyRulesOnly))
	assert.Equal(t, domain.StageGreeting, inferred.Classify("greet").Stage)
}

func TestClassifier_NoRuleMatches(t *testing.T) {
	g, err := graph.Build([]graph.RawNode{{ID: "xyz", Fields: map[string]any{}}})
	require.NoError(t, err)

	r := stage.NewClassifier(g).Classify("xyz")
	assert.Equal(t, domain.StageDefault, r.Stage)
	assert.InDelta(t, 0.1, r.Confidence, 1e-9)
}

func TestClassifier_Cache(t *testing.T) {
	c := stage.NewClassifier(flow(t))

	c.Classify("greet")
	c.Classify("greet")
	c.Classify("missing")
	assert.Equal(t, 1, c.Cached())

	c.Clear()
	assert.Equal(t, 0, c.Cached())

	c.Classify("collect")
	c.Load(flow(t))
	assert.Equal(t, 0, c.Cached())
}

func TestClassifier_NodesInStage(t *testing.T) {
	c := stage.NewClassifier(flow(t))
	assert.Equal(t, []string{"confirm"}, c.NodesInStage(domain.StageConfirmation))
	assert.Empty(t, c.NodesInStage(domain.StageError))
}

func TestPick_TieBreak(t *testing.T) {
	m, ok := stage.Pick(map[domain.Stage]*stage.Match{
		domain.StageCompletion:   {Stage: domain.StageCompletion, Score: 4},
		domain.StageConfirmation: {Stage: domain.StageConfirmation, Score: 4},
	})
	require.True(t, ok)
	assert.Equal(t, domain.StageConfirmation, m.Stage)

	m, _ = stage.Pick(map[domain.Stage]*stage.Match{
		domain.StageProcessing: {Stage: domain.StageProcessing, Score: 4},
		domain.StageError:      {Stage: domain.StageError, Score: 4},
		domain.StageGreeting:   {Stage: domain.StageGreeting, Score: 3},
	})
	assert.Equal(t, domain.StageError, m.Stage)

	_, ok = stage.Pick(nil)
	assert.False(t, ok)
}

func TestScore_Accumulates(t *testing.T) {
	rules := []stage.Rule{
		{Name: "a", Stage: domain.StageGreeting, Weight: 2, Match: func(stage.Features) bool { return true }},
		{Name: "b", Stage: domain.StageGreeting, Weight: 3, Match: func(stage.Features) bool { return true }},
		{Name: "c", Stage: domain.StageFinal, Weight: 9, Match: func(stage.Features) bool { return false }},
	}
	scores := stage.Score(rules, stage.Features{})
	require.Contains(t, scores, domain.StageGreeting)
	assert.Equal(t, 5, scores[domain.StageGreeting].Score)
	assert.Equal(t, []string{"a", "b"}, scores[domain.StageGreeting].Reasons)
	assert.NotContains(t, scores, domain.StageFinal)
}

func TestConfidence(t *testing.T) {
	assert.InDelta(t, 0.5, stage.Confidence(6, 12), 1e-9)
	assert.Equal(t, 1.0, stage.Confidence(40, 12))
	assert.Equal(t, 0.0, stage.Confidence(0, 12))
}
