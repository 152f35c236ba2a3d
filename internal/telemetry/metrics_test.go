package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordAgent(PhasePrimary, OutcomeSuccess, time.Second)
	m.RecordAgent(PhaseFix, OutcomeFailure, time.Second)
	m.RecordAgent(PhaseFix, OutcomeFailure, time.Second)
	m.RecordBuild(OutcomeFailure, time.Second)
	m.RecordBuild(OutcomeSuccess, time.Second)
	m.RecordRun("success", 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.agentInvocations.WithLabelValues(PhasePrimary, OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.agentInvocations.WithLabelValues(PhaseFix, OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.buildRuns.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("success")))

	// phase_duration_seconds has primary, fix and build series.
	assert.Equal(t, 3, testutil.CollectAndCount(m.phaseDuration))
}

func TestMetrics_FixAttemptsHistogram(t *testing.T) {
	m := NewMetrics()
	m.RecordRun("exhausted_attempts", 10)

	expected := `
# HELP forge_runs_total Fix loop runs by terminal status
# TYPE forge_runs_total counter
forge_runs_total{status="exhausted_attempts"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "forge_runs_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.fixAttempts))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.RecordBuild(OutcomeSuccess, 2*time.Second)

	path := filepath.Join(t.TempDir(), "forge.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `forge_build_runs_total{outcome="success"} 1`)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRun("success", 0)
	m.RecordAgent(PhasePrimary, OutcomeSuccess, time.Second)
	m.RecordBuild(OutcomeSuccess, time.Second)
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
	assert.Nil(t, m.Registry())
}
