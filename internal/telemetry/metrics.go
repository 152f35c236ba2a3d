// Package telemetry records run metrics and traces for the fix loop.
package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "forge"

// Phase labels.
const (
	PhasePrimary = "primary"
	PhaseBuild   = "build"
	PhaseFix     = "fix"
)

// Outcome labels.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeLaunchError = "launch_error"
	OutcomeCanceled    = "canceled"
)

// Metrics holds the run counters on a private registry so nothing leaks into
// the global default registry. A nil *Metrics discards all observations.
type Metrics struct {
	registry *prometheus.Registry

	runs             *prometheus.CounterVec
	agentInvocations *prometheus.CounterVec
	buildRuns        *prometheus.CounterVec
	fixAttempts      prometheus.Histogram
	phaseDuration    *prometheus.HistogramVec
}

// NewMetrics creates the metric set on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Labels: status (success, agent_failed, aborted, exhausted_attempts)
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Fix loop runs by terminal status",
		}, []string{"status"}),

		// Labels: phase (primary, fix), outcome
		agentInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_invocations_total",
			Help:      "Agent invocations by phase and outcome",
		}, []string{"phase", "outcome"}),

		// Labels: outcome
		buildRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "build_runs_total",
			Help:      "Build plan executions by outcome",
		}, []string{"outcome"}),

		fixAttempts: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fix_attempts",
			Help:      "Fix attempts used per run",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		}),

		// Labels: phase (primary, build, fix)
		phaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall-clock duration of each phase",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		}, []string{"phase"}),
	}
}

// Registry exposes the underlying registry, for tests and exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(status string, attempts int) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
	m.fixAttempts.Observe(float64(attempts))
}

// RecordAgent records one agent invocation.
func (m *Metrics) RecordAgent(phase, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.agentInvocations.WithLabelValues(phase, outcome).Inc()
	m.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordBuild records one build plan execution.
func (m *Metrics) RecordBuild(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.buildRuns.WithLabelValues(outcome).Inc()
	m.phaseDuration.WithLabelValues(PhaseBuild).Observe(d.Seconds())
}

// WriteTextfile writes all metrics in the Prometheus text format to path,
// for collection by the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
