package app

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/eventflow/internal/ctxlog"
)

// Run loads the pipeline inputs, evaluates the pipeline and writes its
// outputs.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	data, err := a.pipeline.LoadInputs(ctx, a.config.BaseDir)
	if err != nil {
		return fmt.Errorf("failed to load inputs: %w", err)
	}

	a.logger.Info("🚀 Evaluating pipeline...", "steps", len(a.pipeline.Steps()), "outputs", len(a.pipeline.Model().Outputs))
	start := time.Now()
	results, err := a.pipeline.Run(ctx, data)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	a.logger.Info("🏁 Evaluation finished.", "duration", time.Since(start))

	if err := a.pipeline.WriteOutputs(ctx, a.config.BaseDir, results); err != nil {
		return fmt.Errorf("failed to write outputs: %w", err)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
