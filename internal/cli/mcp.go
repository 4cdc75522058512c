package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/mcp"
)

// MCPOptions configures the MCP server.
type MCPOptions struct {
	ConfigPath string
	GraphPath  string
	// Transport is "stdio" or "sse".
	Transport string
	Addr      string
	BaseURL   string
	Debug     bool
}

// RunMCP serves the session tools over the chosen transport.
func RunMCP(opts MCPOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if opts.Debug {
		level = slog.LevelDebug
	}
	// Stdout carries JSON-RPC on stdio, so logs always go to stderr.
	logger := logging.New(level)

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	setup, err := createEngine(sigCtx, cfg, EngineOptions{GraphPath: opts.GraphPath, Debug: opts.Debug}, logger)
	if err != nil {
		return err
	}
	defer setup.Close()

	srv := mcp.NewServer(setup.Engine, mcp.WithLogger(logger))

	switch opts.Transport {
	case "", "stdio":
		logger.Info("Starting arbor MCP server (stdio)", "graph", setup.Engine.Name)
		return srv.ServeStdio()
	case "sse":
		baseURL := opts.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost" + opts.Addr
		}
		if err := srv.ServeSSE(sigCtx, opts.Addr, baseURL); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.Info("MCP server stopped gracefully")
		return nil
	default:
		return fmt.Errorf("unknown transport %q: supported are stdio and sse", opts.Transport)
	}
}
