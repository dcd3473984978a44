package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertStepBuilt checks the log output to confirm that a step was turned
// into an operator.
func AssertStepBuilt(t *testing.T, result *HarnessResult, stepName string) {
	t.Helper()

	expected := fmt.Sprintf("step=%s ", stepName)
	require.True(t,
		strings.Contains(result.LogOutput, "Built step.") && strings.Contains(result.LogOutput, expected),
		"expected log output for step '%s' was not found in logs", stepName,
	)
}

// ReadOutput returns the content of a file written under the harness
// directory.
func ReadOutput(t *testing.T, result *HarnessResult, path string) string {
	t.Helper()

	b, err := os.ReadFile(filepath.Join(result.Dir, path))
	require.NoError(t, err, "output %s was not written", path)
	return string(b)
}
