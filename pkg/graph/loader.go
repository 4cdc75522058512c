package graph

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/arbor/pkg/domain"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a JSON or YAML node-configuration file and builds the graph.
func LoadFile(path string, opts ...Option) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}
	g, err := Parse(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Load builds a graph from a reader.
func Load(r io.Reader, opts ...Option) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph: %w", err)
	}
	return Parse(data, opts...)
}

// Parse decodes a node-configuration document. The document is either a map of
// node id to record, or an object with a "nodes" map and an optional
// "start_node". Key order is preserved, which makes condition order and the
// choice of the first start node deterministic. JSON is accepted as YAML.
func Parse(data []byte, opts ...Option) (*Graph, error) {
	raw, start, err := ParseNodes(data)
	if err != nil {
		return nil, err
	}
	if start != "" {
		opts = append([]Option{WithStartNode(start)}, opts...)
	}
	return Build(raw, opts...)
}

// ParseNodes decodes a document into ordered raw nodes without building.
func ParseNodes(data []byte) ([]RawNode, string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, "", domain.ErrEmptyGraph
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, "", fmt.Errorf("failed to parse graph document: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, "", domain.ErrEmptyGraph
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, "", errors.New("graph document must be a mapping of node ids")
	}

	var start string
	nodes := root
	if wrapped := mappingValue(root, "nodes"); wrapped != nil && wrapped.Kind == yaml.MappingNode {
		nodes = wrapped
		if s := mappingValue(root, "start_node"); s != nil && s.Kind == yaml.ScalarNode {
			start = s.Value
		}
	}

	raw := make([]RawNode, 0, len(nodes.Content)/2)
	for i := 0; i+1 < len(nodes.Content); i += 2 {
		key, val := nodes.Content[i], nodes.Content[i+1]
		fields, err := nodeFields(val)
		if err != nil {
			return nil, "", fmt.Errorf("node %q: %w", key.Value, err)
		}
		raw = append(raw, RawNode{ID: key.Value, Fields: fields})
	}
	return raw, start, nil
}

// nodeFields decodes one node record. Non-mapping values are returned as-is so
// Build can coerce them; "conditions" mappings become ordered conditions.
func nodeFields(val *yaml.Node) (any, error) {
	if val.Kind != yaml.MappingNode {
		var v any
		if err := val.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}

	fields := make(map[string]any, len(val.Content)/2)
	for i := 0; i+1 < len(val.Content); i += 2 {
		key, v := val.Content[i].Value, val.Content[i+1]
		if key == "conditions" && v.Kind == yaml.MappingNode {
			conds, err := orderedConditions(v)
			if err != nil {
				return nil, err
			}
			fields[key] = conds
			continue
		}
		var decoded any
		if err := v.Decode(&decoded); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		fields[key] = decoded
	}
	return fields, nil
}

func orderedConditions(m *yaml.Node) ([]domain.Condition, error) {
	conds := make([]domain.Condition, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		var rule any
		if err := m.Content[i+1].Decode(&rule); err != nil {
			return nil, fmt.Errorf("condition %q: %w", m.Content[i].Value, err)
		}
		conds = append(conds, domain.Condition{Name: m.Content[i].Value, Rule: rule})
	}
	return conds, nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
