package dsl

import (
	"maps"

	"github.com/aretw0/arbor/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a node. Fields use the
// same keys as the YAML node configuration.
type NodeBuilder struct {
	id     string
	fields map[string]any
}

// Stage sets the conversational stage of the node.
func (n *NodeBuilder) Stage(stage domain.Stage) *NodeBuilder {
	n.fields["stage"] = string(stage)
	return n
}

// Describe sets the node description, used by generative replies.
func (n *NodeBuilder) Describe(text string) *NodeBuilder {
	n.fields["description"] = text
	return n
}

// DisplayName sets a presentation label.
func (n *NodeBuilder) DisplayName(name string) *NodeBuilder {
	n.fields["display_name"] = name
	return n
}

// Hidden marks the node as not visible to end users.
func (n *NodeBuilder) Hidden() *NodeBuilder {
	n.fields["visible"] = false
	return n
}

// Param sets a node parameter.
func (n *NodeBuilder) Param(key string, value any) *NodeBuilder {
	params, _ := n.fields["params"].(map[string]any)
	if params == nil {
		params = make(map[string]any)
		n.fields["params"] = params
	}
	params[key] = value
	return n
}

// Require lists slots that must be filled before leaving the node.
func (n *NodeBuilder) Require(slots ...string) *NodeBuilder {
	return n.Param("required_slots", append([]string(nil), slots...))
}

// MaxTurns caps the turns spent on this node before advancing.
func (n *NodeBuilder) MaxTurns(turns int) *NodeBuilder {
	return n.Param("max_turns", turns)
}

// Respond sets a keyed response template.
func (n *NodeBuilder) Respond(key, text string) *NodeBuilder {
	responses, _ := n.fields["responses"].(map[string]any)
	if responses == nil {
		responses = make(map[string]any)
		n.fields["responses"] = responses
	}
	responses[key] = text
	return n
}

// Say sets the default response.
func (n *NodeBuilder) Say(text string) *NodeBuilder {
	return n.Respond("default", text)
}

// Action appends a named action to run on entering the node.
func (n *NodeBuilder) Action(name string) *NodeBuilder {
	actions, _ := n.fields["actions"].([]any)
	n.fields["actions"] = append(actions, name)
	return n
}

// Go adds a successor edge.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	return n.link(target, "")
}

// GoWhen adds a successor edge disambiguated by a context key.
func (n *NodeBuilder) GoWhen(target, contextKey string) *NodeBuilder {
	return n.link(target, contextKey)
}

func (n *NodeBuilder) link(target, contextKey string) *NodeBuilder {
	next, _ := n.fields["next_nodes"].([]any)
	var entry any = target
	if contextKey != "" {
		entry = map[string]any{"name": target, "context": contextKey}
	}
	n.fields["next_nodes"] = append(next, entry)
	return n
}

// Branch appends a routing condition. Conditions are evaluated in the order
// they were added; a matching rule routes to target.
func (n *NodeBuilder) Branch(target string, rule any) *NodeBuilder {
	conds, _ := n.fields["conditions"].([]domain.Condition)
	n.fields["conditions"] = append(conds, domain.Condition{Name: target, Rule: rule})
	return n
}

// Terminal removes every successor declared so far.
func (n *NodeBuilder) Terminal() *NodeBuilder {
	delete(n.fields, "next_nodes")
	return n
}

// Build returns a copy of the node record.
func (n *NodeBuilder) Build() map[string]any {
	out := maps.Clone(n.fields)
	if p, ok := out["params"].(map[string]any); ok {
		out["params"] = maps.Clone(p)
	}
	if r, ok := out["responses"].(map[string]any); ok {
		out["responses"] = maps.Clone(r)
	}
	return out
}

// Field builds a comparison rule on a dotted context path.
func Field(path, operator string, value any) map[string]any {
	return map[string]any{"field": path, "operator": operator, "value": value}
}

// All matches when every rule matches.
func All(rules ...any) map[string]any {
	return map[string]any{"and": rules}
}

// AnyOf matches when at least one rule matches.
func AnyOf(rules ...any) map[string]any {
	return map[string]any{"or": rules}
}

// Not negates a rule.
func Not(rule any) map[string]any {
	return map[string]any{"not": rule}
}
