package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "arbor version ")
}

func TestValidateAndGraphCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("start:\n  next_nodes: [end]\nend: {}\n"), 0644))

	out, err := run(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Graph is valid!")

	out, err = run(t, "graph", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Order: start -> end")
}

func TestSessionRm_RequiresTarget(t *testing.T) {
	_, err := run(t, "session", "rm")
	assert.ErrorContains(t, err, "pass session ids or --all")
}
