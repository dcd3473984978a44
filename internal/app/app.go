package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vk/eventflow/internal/config"
	"github.com/vk/eventflow/internal/ctxlog"
	"github.com/vk/eventflow/internal/engine"
	"github.com/vk/eventflow/internal/metric"
	"github.com/vk/eventflow/internal/pipeline"
	"github.com/vk/eventflow/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	runID      uuid.UUID
	promReg    *prometheus.Registry
	metrics    *metric.Metrics
	engine     *engine.Engine
	pipeline   *pipeline.Pipeline
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own logger, metrics registry and
// engine. Configuration errors are fatal and panic.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) *App {
	runID := uuid.New()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW).With("run_id", runID.String())
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := metric.NewMetrics(promReg)

	eng, err := engine.New(ctx, engine.WithModules(modulesOrDefault(modules)...), engine.WithMetrics(metrics))
	if err != nil {
		// A mismatch between registered definitions and implementations is a programmer error.
		panic(err)
	}
	logger.Debug("Engine created.", "operator_kinds", len(eng.Registry().Kinds()))

	model, err := loader.Load(ctx, cfg.PipelinePaths...)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	p, err := pipeline.New(ctx, model, eng)
	if err != nil {
		panic(fmt.Errorf("failed to plan pipeline: %w", err))
	}

	return &App{
		ctx:      ctx,
		outW:     outW,
		logger:   logger,
		config:   cfg,
		runID:    runID,
		promReg:  promReg,
		metrics:  metrics,
		engine:   eng,
		pipeline: p,
	}
}

// Engine returns the application's engine. This is primarily for testing.
func (a *App) Engine() *engine.Engine { return a.engine }

// Pipeline returns the planned pipeline.
func (a *App) Pipeline() *pipeline.Pipeline { return a.pipeline }

// RunID identifies this application instance in logs.
func (a *App) RunID() uuid.UUID { return a.runID }

// Gatherer exposes the application's metrics registry.
func (a *App) Gatherer() prometheus.Gatherer { return a.promReg }
