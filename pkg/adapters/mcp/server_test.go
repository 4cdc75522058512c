package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/graph"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quizYAML = `
intro:
  next_nodes: [question]
question:
  params:
    required_slots: [answer]
  next_nodes: [outro]
outro:
  responses:
    default: "Thanks for playing."
`

func newServer(t *testing.T) *Server {
	t.Helper()
	g, err := graph.Parse([]byte(quizYAML))
	require.NoError(t, err)
	eng, err := arbor.New("quiz.yaml", arbor.WithGraph(g))
	require.NoError(t, err)
	return NewServer(eng)
}

func TestTools_Conversation(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	started, err := s.handleStartSession(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "q1"})
	require.NoError(t, err)
	assert.Equal(t, "intro", started.CurrentNode)

	turn, err := s.handleSendMessage(ctx, mcp.CallToolRequest{}, MessageArgs{SessionID: "q1", Message: "ready"})
	require.NoError(t, err)
	assert.Equal(t, "question", turn.CurrentNode)
	assert.Equal(t, 1, turn.TurnCount)

	info, err := s.handleGetSession(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "q1"})
	require.NoError(t, err)
	assert.Equal(t, turn.CurrentNode, info.CurrentNode)

	reset, err := s.handleResetSession(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "q1"})
	require.NoError(t, err)
	assert.True(t, reset.Reset)

	_, err = s.handleGetSession(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "q1"})
	assert.Error(t, err)
}

func TestTools_InputErrors(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	_, err := s.handleSendMessage(ctx, mcp.CallToolRequest{}, MessageArgs{Message: "hi"})
	assert.ErrorContains(t, err, "session_id")

	_, err = s.handleSendMessage(ctx, mcp.CallToolRequest{}, MessageArgs{SessionID: "x", Message: " "})
	assert.ErrorContains(t, err, "message")

	_, err = s.handleSendMessage(ctx, mcp.CallToolRequest{}, MessageArgs{SessionID: "x", Message: "bad \xff"})
	assert.ErrorIs(t, err, arbor.ErrInvalidUTF8)

	_, err = s.handleResetSession(ctx, mcp.CallToolRequest{}, SessionArgs{})
	assert.Error(t, err)
}

func TestTools_MissingSessionIsToolError(t *testing.T) {
	s := newServer(t)

	req := mcp.CallToolRequest{}
	req.Params.Name = "get_session"
	req.Params.Arguments = map[string]any{"session_id": "nope"}

	res, err := mcp.NewStructuredToolHandler(s.handleGetSession)(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestTools_ValidateGraph(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	loaded, err := s.handleValidateGraph(ctx, mcp.CallToolRequest{}, GraphArgs{})
	require.NoError(t, err)
	assert.True(t, loaded.OK)
	assert.Equal(t, 3, loaded.Info.NodeCount)

	path := filepath.Join(t.TempDir(), "loop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a:\n  next_nodes: [b]\nb:\n  next_nodes: [a]\n"), 0644))
	other, err := s.handleValidateGraph(ctx, mcp.CallToolRequest{}, GraphArgs{Path: path})
	require.NoError(t, err)
	assert.False(t, other.OK)
	assert.NotEmpty(t, other.Errors)
	assert.False(t, other.Info.IsDAG)

	_, err = s.handleValidateGraph(ctx, mcp.CallToolRequest{}, GraphArgs{Path: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
