// Package mcp exposes arbor sessions as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/graph"
	"github.com/go-chi/cors"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GraphURI is the resource holding the graph summary.
const GraphURI = "arbor://graph"

// Engine is the turn API the tools drive. *arbor.Engine satisfies it.
type Engine interface {
	StartSession(ctx context.Context, sessionID string) (*domain.TurnResult, error)
	ProcessTurn(ctx context.Context, sessionID, message string) (*domain.TurnResult, error)
	SessionInfo(ctx context.Context, sessionID string) (*domain.TurnResult, error)
	ResetSession(ctx context.Context, sessionID string) error
	Graph() *graph.Graph
	Info() graph.Info
}

var _ Engine = (*arbor.Engine)(nil)

// TurnResponse is the structured output of the session tools.
type TurnResponse struct {
	Response        string         `json:"response" jsonschema_description:"Text to show the user"`
	SessionID       string         `json:"session_id" jsonschema_description:"Session identifier"`
	CurrentNode     string         `json:"current_node" jsonschema_description:"Node the session is at"`
	TurnCount       int            `json:"turn_count" jsonschema_description:"Turns processed so far"`
	SessionComplete bool           `json:"session_complete" jsonschema_description:"Whether the conversation has ended"`
	Slots           map[string]any `json:"slots" jsonschema_description:"Filled slot values"`
	Error           bool           `json:"error,omitempty" jsonschema_description:"Set when the turn failed internally"`
}

// ResetResponse is the output of reset_session.
type ResetResponse struct {
	SessionID string `json:"session_id"`
	Reset     bool   `json:"reset"`
}

// ValidationResponse is the output of validate_graph.
type ValidationResponse struct {
	graph.Report
	Info graph.Info `json:"info"`
}

// SessionArgs selects a session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// MessageArgs carries one user message.
type MessageArgs struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// GraphArgs optionally points validate_graph at another file.
type GraphArgs struct {
	Path string `json:"path"`
}

// Server wraps the engine and exposes it as an MCP server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a new MCP server around engine.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("arbor-mcp", strings.TrimSpace(arbor.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio serves on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))
	withCORS := cors.AllowAll().Handler

	mux := http.NewServeMux()
	mux.Handle("/sse", withCORS(sseServer.SSEHandler()))
	mux.Handle("/message", withCORS(sseServer.MessageHandler()))

	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start (or resume) a conversation. A new id is generated when session_id is omitted."),
		mcp.WithString("session_id", mcp.Description("Session identifier (optional)")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleStartSession))

	s.mcpServer.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Send one user message to a session and get the reply."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithString("message", mcp.Required(), mcp.Description("User message")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleSendMessage))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Inspect a session without processing a turn."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleGetSession))

	s.mcpServer.AddTool(mcp.NewTool("reset_session",
		mcp.WithDescription("Delete a session's state."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithOutputSchema[ResetResponse](),
	), mcp.NewStructuredToolHandler(s.handleResetSession))

	s.mcpServer.AddTool(mcp.NewTool("validate_graph",
		mcp.WithDescription("Validate the loaded graph, or another graph file when path is given."),
		mcp.WithString("path", mcp.Description("Path to a JSON or YAML graph file (optional)")),
		mcp.WithOutputSchema[ValidationResponse](),
	), mcp.NewStructuredToolHandler(s.handleValidateGraph))
}

func (s *Server) handleStartSession(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (TurnResponse, error) {
	res, err := s.engine.StartSession(ctx, strings.TrimSpace(args.SessionID))
	if err != nil {
		return TurnResponse{}, fmt.Errorf("start failed: %w", err)
	}
	return toResponse(res), nil
}

func (s *Server) handleSendMessage(ctx context.Context, _ mcp.CallToolRequest, args MessageArgs) (TurnResponse, error) {
	if args.SessionID == "" {
		return TurnResponse{}, errors.New("session_id is required")
	}
	if strings.TrimSpace(args.Message) == "" {
		return TurnResponse{}, errors.New("message is required")
	}
	message, err := arbor.SanitizeInput(args.Message)
	if err != nil {
		return TurnResponse{}, err
	}
	res, err := s.engine.ProcessTurn(ctx, args.SessionID, message)
	if err != nil {
		s.logger.Error("MCP send_message failed", "err", err, "session_id", args.SessionID)
		if res == nil || !errors.Is(err, domain.ErrTurnFailed) {
			return TurnResponse{}, fmt.Errorf("turn failed: %w", err)
		}
	}
	return toResponse(res), nil
}

func (s *Server) handleGetSession(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (TurnResponse, error) {
	res, err := s.engine.SessionInfo(ctx, args.SessionID)
	if err != nil {
		return TurnResponse{}, err
	}
	return toResponse(res), nil
}

func (s *Server) handleResetSession(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (ResetResponse, error) {
	if args.SessionID == "" {
		return ResetResponse{}, errors.New("session_id is required")
	}
	if err := s.engine.ResetSession(ctx, args.SessionID); err != nil {
		return ResetResponse{}, fmt.Errorf("reset failed: %w", err)
	}
	return ResetResponse{SessionID: args.SessionID, Reset: true}, nil
}

func (s *Server) handleValidateGraph(_ context.Context, _ mcp.CallToolRequest, args GraphArgs) (ValidationResponse, error) {
	if args.Path == "" {
		return ValidationResponse{Report: s.engine.Graph().Validate(), Info: s.engine.Info()}, nil
	}
	g, err := graph.LoadFile(args.Path, graph.WithLogger(s.logger))
	if err != nil {
		return ValidationResponse{}, fmt.Errorf("load failed: %w", err)
	}
	return ValidationResponse{Report: g.Validate(), Info: g.Info(nil)}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Graph summary",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.engine.Info())
		if err != nil {
			return nil, fmt.Errorf("failed to encode graph: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

func toResponse(res *domain.TurnResult) TurnResponse {
	return TurnResponse{
		Response:        res.Response,
		SessionID:       res.SessionID,
		CurrentNode:     res.CurrentNode,
		TurnCount:       res.TurnCount,
		SessionComplete: res.SessionComplete,
		Slots:           res.Slots,
		Error:           res.Error,
	}
}
