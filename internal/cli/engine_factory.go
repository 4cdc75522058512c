package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/adapters/openai"
	"github.com/aretw0/arbor/pkg/adapters/storage"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/graph"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/stage"
)

// Setup is a wired engine plus the resources the caller must release.
type Setup struct {
	Engine  *arbor.Engine
	Storage *storage.Storage
	Logger  *slog.Logger
}

// Close releases the session backend.
func (s *Setup) Close() error {
	if s.Storage == nil {
		return nil
	}
	return s.Storage.Close()
}

// EngineOptions are the per-command knobs layered over the config file.
type EngineOptions struct {
	// GraphPath overrides graph.path when set.
	GraphPath string
	Debug     bool
	Metrics   *observability.Metrics
	Hooks     domain.LifecycleHooks
}

// createLogger builds the application logger. Debug forces debug level on
// stderr regardless of configuration.
func createLogger(cfg *config.Config, debug bool) (*slog.Logger, error) {
	if debug {
		return logging.New(slog.LevelDebug), nil
	}
	return logging.NewFromConfig(cfg.Log.Level, cfg.Log.Format)
}

// createEngine wires storage, NLU, classifier, and hooks from cfg into an
// arbor engine.
func createEngine(ctx context.Context, cfg *config.Config, opts EngineOptions, logger *slog.Logger) (*Setup, error) {
	path := cfg.Graph.Path
	if opts.GraphPath != "" {
		path = opts.GraphPath
	}
	if path == "" {
		return nil, errors.New("no graph file: pass one as an argument or set graph.path")
	}

	g, err := graph.LoadFile(path, graph.WithLogger(logger), graph.WithStartNode(cfg.Graph.StartNode))
	if err != nil {
		return nil, fmt.Errorf("error loading graph: %w", err)
	}

	store, err := storage.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("Session storage ready", "backend", store.Backend)

	hooks := opts.Hooks
	if opts.Debug {
		hooks = hooks.Merge(observability.LoggingHooks(logger))
	}
	if opts.Metrics != nil {
		hooks = hooks.Merge(opts.Metrics.Hooks())
	}

	engineOpts := []arbor.Option{
		arbor.WithGraph(g),
		arbor.WithStore(store.Store),
		arbor.WithLogger(logger),
		arbor.WithLifecycleHooks(hooks),
		arbor.WithStartNode(cfg.Graph.StartNode),
		arbor.WithMaxTurns(cfg.Dialogue.MaxTurns),
		arbor.WithMessages(cfg.Dialogue.Messages),
		arbor.WithOffTopicPolicy(cfg.Dialogue.OffTopicLimit, cfg.Dialogue.OffTopicConfidence),
		arbor.WithExternalTimeout(cfg.Dialogue.ExternalTimeout),
		arbor.WithRuntimeOptions(runtime.WithClassifier(
			stage.NewClassifier(g, stage.WithPolicy(stage.ParsePolicy(cfg.Graph.Classifier))),
		)),
	}
	if store.Locker != nil {
		engineOpts = append(engineOpts, arbor.WithLocker(store.Locker))
	}

	if cfg.NLU.Provider == config.ProviderOpenAI {
		client, err := openai.New(cfg.NLU.OpenAI, openai.WithLogger(logger))
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("error configuring NLU: %w", err)
		}
		engineOpts = append(engineOpts, arbor.WithUnderstander(client))
	}

	engine, err := arbor.New(path, engineOpts...)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return &Setup{Engine: engine, Storage: store, Logger: logger}, nil
}
