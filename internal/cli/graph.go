package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/graph"
	"github.com/aretw0/arbor/pkg/stage"
)

// Validate loads the graph at path and prints its report. It returns the
// structural error when the graph cannot drive a conversation.
func Validate(path string, out io.Writer, asJSON bool) error {
	g, err := graph.LoadFile(path)
	if err != nil {
		return err
	}
	report := g.Validate()

	if asJSON {
		if err := writeJSON(out, report); err != nil {
			return err
		}
		return report.Err()
	}

	for _, d := range report.Errors {
		fmt.Fprintln(out, d.String())
	}
	for _, d := range report.Warnings {
		fmt.Fprintln(out, d.String())
	}
	if !report.OK {
		return report.Err()
	}
	fmt.Fprintf(out, "Graph is valid! %d nodes, start: %s\n", g.Len(), strings.Join(report.StartNodes, ", "))
	return nil
}

// PrintInfo loads the graph at path and prints its summary, classifying
// stages under policy.
func PrintInfo(path, policy string, out io.Writer, asJSON bool) error {
	g, err := graph.LoadFile(path)
	if err != nil {
		return err
	}
	c := stage.NewClassifier(g, stage.WithPolicy(stage.ParsePolicy(policy)))
	info := g.Info(c.StageOf)

	if asJSON {
		return writeJSON(out, info)
	}

	fmt.Fprintf(out, "Nodes: %d  Edges: %d  DAG: %t\n", info.NodeCount, info.EdgeCount, info.IsDAG)
	fmt.Fprintf(out, "Start: %s\n", strings.Join(info.StartNodes, ", "))
	fmt.Fprintf(out, "End:   %s\n", strings.Join(info.EndNodes, ", "))
	if info.IsDAG {
		fmt.Fprintf(out, "Order: %s\n", strings.Join(info.Order, " -> "))
	} else {
		fmt.Fprintf(out, "Cycle: %s\n", strings.Join(info.CyclicNodes, ", "))
	}

	stages := make([]string, 0, len(info.StageGroups))
	for s := range info.StageGroups {
		stages = append(stages, string(s))
	}
	sort.Strings(stages)
	fmt.Fprintln(out, "Stages:")
	for _, s := range stages {
		fmt.Fprintf(out, "  %-13s %s\n", s, strings.Join(info.StageGroups[domain.Stage(s)], ", "))
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
