package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// rawRecord mirrors the loose node configuration accepted from files.
type rawRecord struct {
	Stage         string         `mapstructure:"stage"`
	Description   string         `mapstructure:"description"`
	Name          string         `mapstructure:"name"`
	DisplayName   string         `mapstructure:"display_name"`
	KoName        string         `mapstructure:"ko_name"`
	Visible       *bool          `mapstructure:"visible"`
	PrevNodes     []any          `mapstructure:"prev_nodes"`
	NextNodes     []any          `mapstructure:"next_nodes"`
	Params        map[string]any `mapstructure:"params"`
	Responses     map[string]any `mapstructure:"responses"`
	Actions       []any          `mapstructure:"actions"`
	Conditions    any            `mapstructure:"conditions"`
	RequiredSlots any            `mapstructure:"required_slots"`
	MaxTurns      any            `mapstructure:"max_turns"`
}

// record is a decoded node plus its declared edges.
type record struct {
	raw  rawRecord
	prev []domain.Link
	next []domain.Link
}

func decodeRecord(fields any) (*record, error) {
	if fields == nil {
		return &record{}, nil
	}
	m, ok := fields.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("node record must be an object, got %T", fields)
	}

	var raw rawRecord
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &raw,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(m); err != nil {
		return nil, err
	}

	return &record{
		raw:  raw,
		prev: parseLinks(raw.PrevNodes),
		next: parseLinks(raw.NextNodes),
	}, nil
}

func (r *record) node(id string) *domain.Node {
	raw := r.raw
	n := &domain.Node{
		ID:          id,
		Stage:       domain.ParseStage(raw.Stage),
		Description: raw.Description,
		DisplayName: firstNonEmpty(raw.DisplayName, raw.KoName, raw.Name),
		Visible:     raw.Visible == nil || *raw.Visible,
		Params:      make(map[string]any, len(raw.Params)+2),
		Responses:   make(map[string]string, len(raw.Responses)),
		Actions:     parseActions(raw.Actions),
		Conditions:  parseConditions(raw.Conditions),
	}
	for k, v := range raw.Params {
		n.Params[k] = v
	}
	// Legacy configs put these next to the params block.
	if _, ok := n.Params["required_slots"]; !ok && raw.RequiredSlots != nil {
		n.Params["required_slots"] = raw.RequiredSlots
	}
	if _, ok := n.Params["max_turns"]; !ok && raw.MaxTurns != nil {
		n.Params["max_turns"] = raw.MaxTurns
	}
	for k, v := range raw.Responses {
		switch t := v.(type) {
		case string:
			n.Responses[k] = t
		case nil:
		default:
			n.Responses[k] = fmt.Sprint(t)
		}
	}
	return n
}

// parseLinks accepts entries shaped as "id" or {name|node|id, context}.
func parseLinks(entries []any) []domain.Link {
	links := make([]domain.Link, 0, len(entries))
	for _, e := range entries {
		switch v := e.(type) {
		case string:
			if id := strings.TrimSpace(v); id != "" {
				links = append(links, domain.Link{Node: id})
			}
		case map[string]any:
			id := firstNonEmpty(str(v["name"]), str(v["node"]), str(v["id"]))
			if id == "" {
				continue
			}
			links = append(links, domain.Link{Node: id, Context: str(v["context"])})
		}
	}
	return links
}

func parseActions(entries []any) []string {
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		switch v := e.(type) {
		case string:
			if v != "" {
				actions = append(actions, v)
			}
		case map[string]any:
			if name := firstNonEmpty(str(v["name"]), str(v["type"]), str(v["action"])); name != "" {
				actions = append(actions, name)
			}
		}
	}
	return actions
}

// parseConditions keeps declaration order when the loader supplied an ordered
// list. A plain map has no order, so its keys are sorted.
func parseConditions(v any) []domain.Condition {
	switch c := v.(type) {
	case nil:
		return nil
	case []domain.Condition:
		return append([]domain.Condition(nil), c...)
	case map[string]any:
		names := make([]string, 0, len(c))
		for name := range c {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]domain.Condition, 0, len(names))
		for _, name := range names {
			out = append(out, domain.Condition{Name: name, Rule: c[name]})
		}
		return out
	case []any:
		out := make([]domain.Condition, 0, len(c))
		for _, item := range c {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name := firstNonEmpty(str(m["name"]), str(m["target"]))
			if name == "" {
				continue
			}
			out = append(out, domain.Condition{Name: name, Rule: m["rule"]})
		}
		return out
	}
	return nil
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
