package stage

import (
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/graph"
)

// DefaultCeiling is the score treated as full confidence.
const DefaultCeiling = 12

// fallbackConfidence is reported when no rule matches.
const fallbackConfidence = 0.1

// Policy selects how declared stages are treated.
type Policy int

const (
	// PolicyDeclaredFirst trusts a node's explicit stage and scores the rest.
	PolicyDeclaredFirst Policy = iota
	// PolicyRulesOnly ignores declared stages and always scores.
	PolicyRulesOnly
)

// ParsePolicy maps a configuration string to a Policy.
func ParsePolicy(s string) Policy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rules", "rules_only", "inferred":
		return PolicyRulesOnly
	default:
		return PolicyDeclaredFirst
	}
}

// Result is the classification of one node.
type Result struct {
	Stage      domain.Stage `json:"stage"`
	Confidence float64      `json:"confidence"`
	Reasons    []string     `json:"reasons"`
}

// Classifier assigns stages to the nodes of one graph and caches results per
// node id. It is safe for concurrent use.
type Classifier struct {
	rules   []Rule
	policy  Policy
	ceiling int

	mu    sync.RWMutex
	g     *graph.Graph
	cache map[string]Result
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithRules replaces the rule table.
func WithRules(rules []Rule) Option {
	return func(c *Classifier) { c.rules = rules }
}

// WithPolicy sets the declared-stage policy.
func WithPolicy(p Policy) Option {
	return func(c *Classifier) { c.policy = p }
}

// WithCeiling sets the score treated as full confidence.
func WithCeiling(ceiling int) Option {
	return func(c *Classifier) {
		if ceiling > 0 {
			c.ceiling = ceiling
		}
	}
}

// NewClassifier creates a classifier bound to g.
func NewClassifier(g *graph.Graph, opts ...Option) *Classifier {
	c := &Classifier{
		rules:   DefaultRules(),
		ceiling: DefaultCeiling,
		g:       g,
		cache:   make(map[string]Result),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load binds a new graph and drops every cached result.
func (c *Classifier) Load(g *graph.Graph) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.g = g
	c.cache = make(map[string]Result)
}

// Clear drops every cached result.
func (c *Classifier) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]Result)
}

// Cached returns the number of cached results.
func (c *Classifier) Cached() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Classify returns the stage of the node with the given id. Unknown ids
// classify as default with zero confidence and are not cached.
func (c *Classifier) Classify(nodeID string) Result {
	c.mu.RLock()
	if r, ok := c.cache[nodeID]; ok {
		c.mu.RUnlock()
		return r
	}
	g := c.g
	c.mu.RUnlock()

	n, ok := g.Node(nodeID)
	if !ok {
		return Result{Stage: domain.StageDefault, Reasons: []string{"unknown node"}}
	}
	r := c.classify(g, n)

	c.mu.Lock()
	if c.g == g {
		c.cache[nodeID] = r
	}
	c.mu.Unlock()
	return r
}

// StageOf is a convenience returning only the stage.
func (c *Classifier) StageOf(n *domain.Node) domain.Stage {
	return c.Classify(n.ID).Stage
}

// NodesInStage returns the ids of nodes classified into s, in graph order.
func (c *Classifier) NodesInStage(s domain.Stage) []string {
	c.mu.RLock()
	g := c.g
	c.mu.RUnlock()

	var out []string
	for _, id := range g.IDs() {
		if c.Classify(id).Stage == s {
			out = append(out, id)
		}
	}
	return out
}

func (c *Classifier) classify(g *graph.Graph, n *domain.Node) Result {
	if c.policy == PolicyDeclaredFirst && n.Stage != "" {
		return Result{Stage: n.Stage, Confidence: 1, Reasons: []string{"declared stage"}}
	}

	f := FeaturesOf(g, n)
	best, ok := Pick(Score(c.rules, f))
	if !ok {
		return Result{Stage: domain.StageDefault, Confidence: fallbackConfidence, Reasons: []string{"no rule matched"}}
	}
	return Result{Stage: best.Stage, Confidence: Confidence(best.Score, c.ceiling), Reasons: best.Reasons}
}

// FeaturesOf extracts the classification surface of n within g.
func FeaturesOf(g *graph.Graph, n *domain.Node) Features {
	parts := []string{n.ID, n.Description, n.DisplayName}

	keys := make([]string, 0, len(n.Responses))
	for k := range n.Responses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k, n.Responses[k])
	}
	parts = append(parts, n.Actions...)
	parts = append(parts, g.Successors(n.ID)...)

	_, hasRules := n.Param("validation_rules")
	_, hasValidate := n.Param("validate_slots")

	return Features{
		ID:            normalize(n.ID),
		Text:          normalize(parts...),
		Actions:       normalize(n.Actions...),
		RequiredSlots: len(n.RequiredSlots()) > 0,
		Validation:    hasRules || hasValidate,
		InDegree:      g.InDegree(n.ID),
		OutDegree:     g.OutDegree(n.ID),
	}
}
