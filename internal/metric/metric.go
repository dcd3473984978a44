// Package metric defines the Prometheus metrics recorded by the evaluator
// and exposed by the application's /metrics endpoint.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "eventflow"

// Metrics contains the evaluation metrics.
type Metrics struct {
	Evaluations      *prometheus.CounterVec
	OperatorRuns     *prometheus.CounterVec
	OperatorDuration *prometheus.HistogramVec
	EventsProduced   *prometheus.CounterVec
	CompiledCalls    *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg. A nil
// registerer leaves them unregistered, which is convenient in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "evaluator",
				Name:      "evaluations_total",
				Help:      "Total number of graph evaluations",
			},
			[]string{"status"},
		),

		OperatorRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "operator",
				Name:      "runs_total",
				Help:      "Total number of operator implementation runs",
			},
			[]string{"kind", "status"},
		),

		OperatorDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "operator",
				Name:      "duration_seconds",
				Help:      "Operator implementation run duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),

		EventsProduced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "operator",
				Name:      "events_total",
				Help:      "Total number of events produced by operators",
			},
			[]string{"kind"},
		),

		CompiledCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "compile",
				Name:      "calls_total",
				Help:      "Total number of compiled function calls by resolved mode",
			},
			[]string{"function", "mode"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Evaluations, m.OperatorRuns, m.OperatorDuration, m.EventsProduced, m.CompiledCalls)
	}
	return m
}

func status(err error) string {
	if err != nil {
		return "failed"
	}
	return "completed"
}

// RecordEvaluation increments the evaluation counter.
func (m *Metrics) RecordEvaluation(err error) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(status(err)).Inc()
}

// RecordOperatorRun records the outcome, duration and output size of one
// operator run.
func (m *Metrics) RecordOperatorRun(kind string, duration time.Duration, events int, err error) {
	if m == nil {
		return
	}
	m.OperatorRuns.WithLabelValues(kind, status(err)).Inc()
	m.OperatorDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err == nil {
		m.EventsProduced.WithLabelValues(kind).Add(float64(events))
	}
}

// RecordCompiledCall increments the compiled call counter.
func (m *Metrics) RecordCompiledCall(function, mode string) {
	if m == nil {
		return
	}
	m.CompiledCalls.WithLabelValues(function, mode).Inc()
}
