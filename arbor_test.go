package arbor_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bookingYAML = `
welcome:
  description: Greet the guest
  next_nodes: [collect_party]
collect_party:
  description: Ask how many people are coming
  params:
    required_slots: [party_size]
  next_nodes: [done]
done:
  responses:
    default: "See you soon."
`

func writeGraph(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "booking.yaml")
	require.NoError(t, os.WriteFile(path, []byte(bookingYAML), 0644))
	return path
}

func TestFacade_Integration(t *testing.T) {
	eng, err := arbor.New(writeGraph(t))
	require.NoError(t, err)
	assert.Equal(t, "booking", eng.Name)
	assert.Equal(t, "welcome", eng.StartNode())

	ctx := context.Background()
	started, err := eng.StartSession(ctx, "")
	require.NoError(t, err)
	_, err = uuid.Parse(started.SessionID)
	assert.NoError(t, err, "empty ids get a generated UUID")
	assert.Equal(t, "welcome", started.CurrentNode)

	res, err := eng.ProcessTurn(ctx, started.SessionID, "hello")
	require.NoError(t, err)
	assert.Equal(t, "collect_party", res.CurrentNode)

	ids, err := eng.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{started.SessionID}, ids)

	info := eng.Info()
	assert.Equal(t, 3, info.NodeCount)
	assert.True(t, info.IsDAG)

	require.NoError(t, eng.ResetSession(ctx, started.SessionID))
	_, err = eng.SessionInfo(ctx, started.SessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	n, err := eng.CleanupSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFacade_Errors(t *testing.T) {
	_, err := arbor.New("")
	assert.Error(t, err)

	_, err = arbor.New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunner_Headless(t *testing.T) {
	eng, err := arbor.New(writeGraph(t))
	require.NoError(t, err)

	var out bytes.Buffer
	r := arbor.NewRunner(strings.NewReader("hi\n\nexit\n"), &out)
	r.Headless = true
	r.Renderer = func(s string) (string, error) { return "[" + s + "]", nil }

	id, err := r.Run(context.Background(), eng, "cli")
	require.NoError(t, err)
	assert.Equal(t, "cli", id)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "["))
	assert.Equal(t, "Bye!", lines[1])

	res, err := eng.SessionInfo(context.Background(), "cli")
	require.NoError(t, err)
	assert.Equal(t, 1, res.TurnCount)
}

func TestRunner_StopsWhenComplete(t *testing.T) {
	eng, err := arbor.New(writeGraph(t), arbor.WithMaxTurns(1))
	require.NoError(t, err)

	var out bytes.Buffer
	r := arbor.NewRunner(strings.NewReader("hi\nstill there?\n"), &out)
	r.Headless = true

	_, err = r.Run(context.Background(), eng, "")
	require.NoError(t, err)
	assert.Contains(t, out.String(), domain.DefaultMessages().TurnLimit)
	assert.NotContains(t, out.String(), "Bye!")
}

func TestRunner_RejectsOversizedInput(t *testing.T) {
	t.Setenv(arbor.EnvMaxInputSize, "16")
	eng, err := arbor.New(writeGraph(t))
	require.NoError(t, err)

	var out bytes.Buffer
	r := arbor.NewRunner(strings.NewReader(strings.Repeat("x", 32)+"\nexit\n"), &out)
	r.Headless = true

	id, err := r.Run(context.Background(), eng, "big")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "input rejected")

	res, err := eng.SessionInfo(context.Background(), id)
	require.NoError(t, err)
	assert.Zero(t, res.TurnCount)
}
