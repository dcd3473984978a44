package metric

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordEvaluation(nil)
	m.RecordEvaluation(errors.New("boom"))
	m.RecordOperatorRun("add_scalar", 10*time.Millisecond, 5, nil)
	m.RecordOperatorRun("add_scalar", time.Millisecond, 0, errors.New("boom"))
	m.RecordCompiledCall("add", "eager")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperatorRuns.WithLabelValues("add_scalar", "failed")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.EventsProduced.WithLabelValues("add_scalar")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CompiledCalls.WithLabelValues("add", "eager")))

	count, err := testutil.GatherAndCount(reg, "eventflow_operator_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordEvaluation(nil)
		m.RecordOperatorRun("x", time.Second, 1, nil)
		m.RecordCompiledCall("f", "symbolic")
	})
}
