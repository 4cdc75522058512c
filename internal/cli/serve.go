package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// ShutdownTimeout bounds graceful HTTP shutdown.
const ShutdownTimeout = 5 * time.Second

// ServeOptions configures the HTTP server.
type ServeOptions struct {
	ConfigPath string
	GraphPath  string
	// Addr overrides server.addr when set.
	Addr  string
	Debug bool
}

// RunServe serves the turn API until SIGINT/SIGTERM.
func RunServe(opts ServeOptions) error {
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

	engineOpts := EngineOptions{GraphPath: opts.GraphPath, Debug: opts.Debug}
	handlerOpts := []httpAdapter.Option{
		httpAdapter.WithLogger(logger),
		httpAdapter.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
	}
	if cfg.Server.Metrics {
		reg := prometheus.NewRegistry()
		engineOpts.Metrics = observability.NewMetrics(reg)
		handlerOpts = append(handlerOpts, httpAdapter.WithMetrics(reg))
	}

	setup, err := createEngine(sigCtx, cfg, engineOpts, logger)
	if err != nil {
		return err
	}
	defer setup.Close()

	addr := cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpAdapter.NewHandler(setup.Engine, handlerOpts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting arbor server", "addr", addr, "graph", setup.Engine.Name, "store", setup.Storage.Backend)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-sigCtx.Done():
		logger.Info("Shutting down", "signal", sigCtx.Signal())
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", ShutdownTimeout, err)
		}
		logger.Info("Server stopped gracefully")
		return nil
	}
}
