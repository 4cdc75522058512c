package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/presentation/tui"
)

// ChatOptions configures an interactive conversation.
type ChatOptions struct {
	ConfigPath string
	GraphPath  string
	SessionID  string
	// Fresh deletes any stored state for SessionID before starting.
	Fresh    bool
	Headless bool
	// Style names the markdown style for terminal output.
	Style string
	Debug bool
	In    io.Reader
	Out   io.Writer
}

// RunChat loads the configuration and talks to the graph over In/Out until
// the session completes, input ends, or the process is interrupted.
func RunChat(opts ChatOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	logger, err := createLogger(cfg, opts.Debug)
	if err != nil {
		return err
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	setup, err := createEngine(sigCtx, cfg, EngineOptions{GraphPath: opts.GraphPath, Debug: opts.Debug}, logger)
	if err != nil {
		return err
	}
	defer setup.Close()

	if opts.Fresh && opts.SessionID != "" {
		if err := setup.Engine.ResetSession(sigCtx, opts.SessionID); err != nil {
			return fmt.Errorf("failed to reset session: %w", err)
		}
	}

	if !opts.Headless {
		tui.PrintBanner(opts.Out, arbor.Version)
	}

	r := arbor.NewRunner(NewInterruptibleReader(opts.In, sigCtx.Done()), opts.Out)
	r.Headless = opts.Headless
	if !opts.Headless && tui.IsTerminal(opts.Out) {
		r.Renderer = tui.NewRenderer(opts.Style)
	}

	sessionID, runErr := r.Run(sigCtx, setup.Engine, opts.SessionID)
	if sigCtx.Err() != nil && runErr == nil {
		runErr = sigCtx.Err()
	}

	if !opts.Headless && sessionID != "" {
		switch {
		case runErr == nil:
			if res, err := setup.Engine.SessionInfo(context.Background(), sessionID); err == nil {
				printSystemMessage(opts.Out, "Session '%s' at '%s' node.", sessionID, res.CurrentNode)
			}
		case sigCtx.Signal() != nil:
			printSystemMessage(opts.Out, "Interrupted. Resume with --session %s.", sessionID)
		}
	}
	return handleExecutionError(runErr)
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
