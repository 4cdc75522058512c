package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Link is a declared edge endpoint. Context optionally names the context key
// that disambiguates several edges between the same pair of nodes.
type Link struct {
	Node    string `json:"name" yaml:"name"`
	Context string `json:"context,omitempty" yaml:"context,omitempty"`
}

// Condition is a named routing rule. The Name doubles as the target node id
// unless the rule itself is a bare string.
type Condition struct {
	Name string `json:"name" yaml:"name"`
	Rule any    `json:"rule" yaml:"rule"`
}

// Node represents a single dialogue stage in the conversation graph.
// Nodes are built once per graph load and must be treated as read-only.
type Node struct {
	ID          string `json:"id" yaml:"id"`
	Stage       Stage  `json:"stage,omitempty" yaml:"stage,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// DisplayName is an optional localized label (ko_name in legacy configs).
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Visible     bool   `json:"visible" yaml:"visible"`

	Predecessors []Link `json:"prev_nodes,omitempty" yaml:"prev_nodes,omitempty"`
	Successors   []Link `json:"next_nodes,omitempty" yaml:"next_nodes,omitempty"`

	Params     map[string]any    `json:"params,omitempty" yaml:"params,omitempty"`
	Responses  map[string]string `json:"responses,omitempty" yaml:"responses,omitempty"`
	Actions    []string          `json:"actions,omitempty" yaml:"actions,omitempty"`
	Conditions []Condition       `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// Param returns a raw parameter value.
func (n *Node) Param(key string) (any, bool) {
	if n == nil || n.Params == nil {
		return nil, false
	}
	v, ok := n.Params[key]
	return v, ok
}

// IntParam reads an integer parameter, accepting numeric and string encodings.
func (n *Node) IntParam(key string, def int) int {
	v, ok := n.Param(key)
	if !ok || v == nil {
		return def
	}
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return i
		}
	}
	return def
}

// StringsParam reads a list parameter. A single string is split on commas.
func (n *Node) StringsParam(key string) []string {
	v, ok := n.Param(key)
	if !ok {
		return nil
	}
	return toStrings(v)
}

// RequiredSlots returns the slot names the node needs before it can advance.
func (n *Node) RequiredSlots() []string {
	return n.StringsParam("required_slots")
}

// Template returns the response template for a scenario key.
func (n *Node) Template(key string) (string, bool) {
	if n == nil || n.Responses == nil {
		return "", false
	}
	t, ok := n.Responses[key]
	if !ok || strings.TrimSpace(t) == "" {
		return "", false
	}
	return t, true
}

// FirstTemplate returns the first template found among keys.
func (n *Node) FirstTemplate(keys ...string) (string, bool) {
	for _, k := range keys {
		if t, ok := n.Template(k); ok {
			return t, true
		}
	}
	return "", false
}

func toStrings(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, 0, len(x))
		for _, s := range x {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if item == nil {
				continue
			}
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		return toStrings(strings.Split(x, ","))
	default:
		return []string{fmt.Sprint(x)}
	}
}
