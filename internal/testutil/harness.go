// Package testutil runs pipelines end to end in tests and provides test-only
// operator modules.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/eventflow/internal/app"
	"github.com/vk/eventflow/internal/hcl"
	"github.com/vk/eventflow/internal/registry"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
	// Dir is the temporary directory holding the pipeline and its data.
	Dir string
}

// RunIntegrationTest runs a pipeline using a default background context.
func RunIntegrationTest(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, modules...)
}

// RunIntegrationTestWithContext writes files into a temporary directory,
// loads every .hcl file among them as one pipeline and runs it. Startup
// panics are returned as errors.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg, err := app.NewConfig(app.Config{PipelinePaths: []string{dir}, LogLevel: "debug", LogFormat: "text"})
	require.NoError(t, err)

	logBuffer := &app.SafeBuffer{}
	result := &HarnessResult{Dir: dir}
	defer func() {
		result.LogOutput = logBuffer.String()
		if os.Getenv("EVENTFLOW_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), result.LogOutput)
		}
	}()

	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Err = fmt.Errorf("application startup panicked | %v", r)
			}
		}()
		result.App = app.NewApp(logBuffer, cfg, hcl.NewLoader(), modules...)
	}()
	if result.Err != nil {
		return result
	}

	result.Err = result.App.Run(ctx)
	return result
}
