package fixloop

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeloop/forge/internal/agent"
	"github.com/forgeloop/forge/internal/buildplan"
	"github.com/forgeloop/forge/internal/dirlock"
	"github.com/forgeloop/forge/internal/domain"
	"github.com/forgeloop/forge/internal/process"
	"github.com/forgeloop/forge/internal/prompt"
	"github.com/forgeloop/forge/internal/telemetry"
)

func TestRun_SuccessOnInitialBuild(t *testing.T) {
	h := newHarness(t)

	out := h.run(t, context.Background())

	assert.Equal(t, domain.StatusSuccess, out.Status)
	assert.Empty(t, out.Attempts)
	assert.NoError(t, out.Err)
	assert.Equal(t, 1, h.runner.calls())
	assert.Equal(t, 1, h.builds.calls())
	assert.Equal(t, []domain.State{
		domain.StateInit, domain.StatePrimaryGeneration, domain.StateInitialBuild,
	}, out.States)
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, domain.ExitSuccess, out.ExitCode())
}

func TestRun_SuccessAfterTwoFixAttempts(t *testing.T) {
	h := newHarness(t)
	h.builds.results = []domain.ProcessResult{
		failed("undefined symbol foo"),
		failed("undefined symbol bar"),
		ok(),
	}

	out := h.run(t, context.Background())

	require.Equal(t, domain.StatusSuccess, out.Status)
	require.Len(t, out.Attempts, 2)
	assert.Contains(t, out.Attempts[0].FixPrompt, "undefined symbol foo")
	assert.Contains(t, out.Attempts[1].FixPrompt, "undefined symbol bar")
	assert.NotContains(t, out.Attempts[1].FixPrompt, "undefined symbol foo")
	assert.True(t, out.Attempts[1].Fixed())
	assert.Equal(t, 1, out.Attempts[0].Index)
	assert.Equal(t, 2, out.Attempts[1].Index)

	// Primary plus two fix sessions, each fed the staged prompt.
	require.Equal(t, 3, h.runner.calls())
	for i, arg := range h.runner.args {
		assert.Equal(t, prompt.StagedInstruction, arg, "invocation %d", i)
	}
	assert.Equal(t, out.Attempts[1].FixPrompt, h.runner.staged[2])
	assert.NoFileExists(t, filepath.Join(h.dir, prompt.FileName), "staged prompt is cleaned up")

	assert.Equal(t, []domain.State{
		domain.StateInit, domain.StatePrimaryGeneration, domain.StateInitialBuild, domain.StateFixLoop,
	}, out.States)
}

func TestRun_InvalidAgentBinary(t *testing.T) {
	h := newHarness(t)
	svc := agent.NewService(agent.Config{Binary: "/nonexistent/agent-12345", WorkDir: h.dir, HostOS: "linux"}, nil)

	c, err := New(h.cfg, agent.NewInteractiveRunner(svc), h.builds, h.sink)
	require.NoError(t, err)
	out := c.Run(context.Background(), h.task())

	assert.Equal(t, domain.StatusAgentFailed, out.Status)
	assert.True(t, process.IsLaunchError(out.Err), "expected LaunchError, got %v", out.Err)
	assert.Zero(t, h.builds.calls())
	assert.Empty(t, out.Attempts)
	assert.Equal(t, domain.ExitError, out.ExitCode())
	assert.Contains(t, strings.Join(h.sink.statuses, "\n"), "error: failed to start")
}

func TestRun_ExhaustsTenAttempts(t *testing.T) {
	h := newHarness(t)
	for i := 0; i <= 20; i++ {
		h.builds.results = append(h.builds.results, failed(fmt.Sprintf("error number %d\n", i)))
	}
	h.cfg.MaxAttempts = 50 // capped at MaxFixAttempts

	out := h.run(t, context.Background())

	require.Equal(t, domain.StatusExhaustedAttempts, out.Status)
	require.Len(t, out.Attempts, MaxFixAttempts)
	for i, a := range out.Attempts {
		assert.Contains(t, a.FixPrompt, fmt.Sprintf("error number %d\n", i), "attempt %d", a.Index)
		assert.Contains(t, a.FixPrompt, fmt.Sprintf("attempt %d of %d", i+1, MaxFixAttempts))
	}
	assert.Equal(t, "error number 10\n", out.LastErrors)
	assert.Equal(t, 1+MaxFixAttempts, h.runner.calls())
	assert.Equal(t, 1+MaxFixAttempts, h.builds.calls())
	assert.NoError(t, out.Err)
	assert.Equal(t, domain.ExitBuildFailed, out.ExitCode())
}

func TestRun_MaxAttemptsLowered(t *testing.T) {
	h := newHarness(t)
	h.builds.results = []domain.ProcessResult{failed("a"), failed("b"), failed("c"), failed("d")}
	h.cfg.MaxAttempts = 2

	out := h.run(t, context.Background())

	assert.Equal(t, domain.StatusExhaustedAttempts, out.Status)
	assert.Len(t, out.Attempts, 2)
	assert.Equal(t, "c", out.LastErrors)
}

func TestRun_PrimaryFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.runner.steps = []agentStep{{result: domain.ProcessResult{ExitCode: 3, Stdout: "model refused"}}}

	out := h.run(t, context.Background())

	assert.Equal(t, domain.StatusAgentFailed, out.Status)
	assert.Empty(t, out.Attempts)
	assert.Zero(t, h.builds.calls())
	assert.False(t, out.AuthRequired)

	var exitErr *AgentExitError
	require.True(t, errors.As(out.Err, &exitErr))
	assert.Equal(t, 3, exitErr.ExitCode)
	assert.Equal(t, 3, out.AgentResult.ExitCode)
}

func TestRun_PrimaryAuthFailure(t *testing.T) {
	h := newHarness(t)
	h.runner.steps = []agentStep{{result: domain.ProcessResult{ExitCode: 1, Stdout: "Error: Not logged in"}}}

	out := h.run(t, context.Background())

	assert.Equal(t, domain.StatusAgentFailed, out.Status)
	assert.True(t, out.AuthRequired)
}

func TestRun_PrimaryWaitErrorIsAgentFailure(t *testing.T) {
	h := newHarness(t)
	h.runner.steps = []agentStep{{waitErr: errors.New("read failed")}}

	out := h.run(t, context.Background())

	assert.Equal(t, domain.StatusAgentFailed, out.Status)
	assert.ErrorContains(t, out.Err, "read failed")
}

func TestRun_FixAgentFailureContinues(t *testing.T) {
	h := newHarness(t)
	h.runner.steps = []agentStep{
		{},                                          // primary
		{result: domain.ProcessResult{ExitCode: 1}}, // attempt 1 agent fails
		{startErr: errors.New("spawn failed")},      // attempt 2 cannot start
		{},                                          // attempt 3 succeeds
	}
	h.builds.results = []domain.ProcessResult{failed("boom"), ok()}

	out := h.run(t, context.Background())

	require.Equal(t, domain.StatusSuccess, out.Status)
	require.Len(t, out.Attempts, 3)
	assert.False(t, out.Attempts[0].BuildRan)
	assert.False(t, out.Attempts[1].BuildRan)
	assert.ErrorContains(t, out.Attempts[1].AgentErr, "spawn failed")
	assert.True(t, out.Attempts[2].Fixed())

	// Each attempt still sees the last real build failure.
	for _, a := range out.Attempts {
		assert.Contains(t, a.FixPrompt, "boom")
	}
	assert.Equal(t, 2, h.builds.calls())

	statuses := strings.Join(h.sink.statuses, "\n")
	assert.Contains(t, statuses, "warning: fix attempt 1: agent exited with code 1, trying again")
	assert.Contains(t, statuses, "warning: fix attempt 2: spawn failed, trying again")
}

func TestRun_InitialBuildFailureAlwaysAttemptsFix(t *testing.T) {
	h := newHarness(t)
	h.cfg.MaxAttempts = 1
	h.builds.results = []domain.ProcessResult{failed("x"), failed("y")}

	out := h.run(t, context.Background())

	assert.Equal(t, domain.StatusExhaustedAttempts, out.Status)
	assert.Len(t, out.Attempts, 1)
}

func TestRun_BuildLaunchErrorAborts(t *testing.T) {
	h := newHarness(t)
	h.builds.errs = map[int]error{0: &process.LaunchError{Command: "make", Err: os.ErrNotExist}}

	out := h.run(t, context.Background())

	assert.Equal(t, domain.StatusAborted, out.Status)
	assert.True(t, process.IsLaunchError(out.Err))
	assert.Empty(t, out.Attempts)
}

func TestRun_MultiStepPlanStopsAtFirstFailure(t *testing.T) {
	h := newHarness(t)
	h.cfg.Planner = func(string, string, buildplan.Config) buildplan.Plan {
		return buildplan.Plan{Description: "two steps", Commands: []buildplan.Command{
			{Args: []string{"compile"}},
			{Args: []string{"test"}, Env: map[string]string{"K": "V"}},
		}}
	}
	h.builds.results = []domain.ProcessResult{failed("compile error"), ok(), ok()}

	out := h.run(t, context.Background())

	require.Equal(t, domain.StatusSuccess, out.Status)
	require.Equal(t, 3, h.builds.calls())
	assert.Equal(t, []string{"compile"}, h.builds.commands[0].Args)
	assert.Equal(t, []string{"compile"}, h.builds.commands[1].Args)
	assert.Equal(t, []string{"test"}, h.builds.commands[2].Args)
	assert.Equal(t, "V", h.builds.commands[2].Env["K"])
	for _, c := range h.builds.commands {
		assert.Equal(t, h.dir, c.Dir)
	}
}

func TestRun_CancelDuringAgentAborts(t *testing.T) {
	h := newHarness(t)
	h.runner.steps = []agentStep{{block: true}}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	out := h.run(t, ctx)

	assert.Equal(t, domain.StatusAborted, out.Status)
	assert.True(t, out.Interrupted())
	assert.Equal(t, domain.ExitInterrupted, out.ExitCode())
	assert.Zero(t, h.builds.calls())
}

func TestRun_CancelDuringFixAttemptAborts(t *testing.T) {
	h := newHarness(t)
	h.runner.steps = []agentStep{{}, {block: true}}
	h.builds.results = []domain.ProcessResult{failed("x")}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	out := h.run(t, ctx)

	assert.Equal(t, domain.StatusAborted, out.Status)
	assert.True(t, out.Interrupted())
	require.Len(t, out.Attempts, 1)
	assert.False(t, out.Attempts[0].BuildRan)
}

func TestRun_LockConflictAborts(t *testing.T) {
	h := newHarness(t)
	lock, err := dirlock.Acquire(h.dir, h.cfg.LockDir)
	require.NoError(t, err)
	defer lock.Release()

	out := h.run(t, context.Background())

	assert.Equal(t, domain.StatusAborted, out.Status)
	var held *dirlock.ErrLockHeld
	assert.True(t, errors.As(out.Err, &held))
	assert.Zero(t, h.runner.calls())
	assert.Equal(t, []domain.State{domain.StateInit}, out.States)
}

func TestRun_ReleasesLock(t *testing.T) {
	h := newHarness(t)
	_ = h.run(t, context.Background())

	lock, err := dirlock.Acquire(h.dir, h.cfg.LockDir)
	require.NoError(t, err, "lock should be released after the run")
	require.NoError(t, lock.Release())
}

func TestRun_CreatesWorkDir(t *testing.T) {
	h := newHarness(t)
	h.dir = filepath.Join(h.dir, "new", "project")
	h.runner.dir = h.dir

	out := h.run(t, context.Background())

	assert.Equal(t, domain.StatusSuccess, out.Status)
	assert.DirExists(t, h.dir)
}

func TestRun_WorkDirNotCreatable(t *testing.T) {
	h := newHarness(t)
	file := filepath.Join(h.dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0600))
	h.dir = filepath.Join(file, "sub")

	out := h.run(t, context.Background())

	assert.Equal(t, domain.StatusAborted, out.Status)
	assert.ErrorContains(t, out.Err, "failed to prepare working directory")
	assert.Zero(t, h.runner.calls())
}

func TestRun_PrimaryStagingFailureAborts(t *testing.T) {
	h := newHarness(t)
	// A directory in place of the prompt file makes staging fail.
	require.NoError(t, os.Mkdir(filepath.Join(h.dir, prompt.FileName), 0755))

	out := h.run(t, context.Background())

	assert.Equal(t, domain.StatusAborted, out.Status)
	var se *StageError
	require.ErrorAs(t, out.Err, &se)
	assert.ErrorContains(t, out.Err, "failed to stage prompt")
	assert.Zero(t, h.runner.calls(), "agent must not start")
	assert.Zero(t, h.builds.calls())
	assert.False(t, out.AuthRequired)
	assert.Equal(t, domain.ExitError, out.ExitCode())
}

func TestRun_FixStagingFailureAborts(t *testing.T) {
	h := newHarness(t)
	h.builds.results = []domain.ProcessResult{failed("undefined: foo"), ok()}
	h.builds.onRun = func(n int) {
		if n == 0 {
			_ = os.Mkdir(filepath.Join(h.dir, prompt.FileName), 0755)
		}
	}

	out := h.run(t, context.Background())

	assert.Equal(t, domain.StatusAborted, out.Status)
	var se *StageError
	require.ErrorAs(t, out.Err, &se)
	assert.Equal(t, 1, h.runner.calls(), "only the primary session starts")
	assert.Equal(t, 1, h.builds.calls())
	require.Len(t, out.Attempts, 1)
	assert.False(t, out.Attempts[0].BuildRan)
	assert.Equal(t, "undefined: foo", out.LastErrors)
}

func TestRun_MissingWorkDir(t *testing.T) {
	h := newHarness(t)
	h.dir = ""

	out := h.run(t, context.Background())
	assert.Equal(t, domain.StatusAborted, out.Status)
}

func TestRun_InlinePrompt(t *testing.T) {
	h := newHarness(t)
	h.cfg.InlinePrompt = true

	_ = h.run(t, context.Background())

	require.Equal(t, 1, h.runner.calls())
	assert.Contains(t, h.runner.args[0], "build a demo")
	assert.Empty(t, h.runner.staged[0])
}

func TestRun_ForwardsOutputAndStatusToSink(t *testing.T) {
	h := newHarness(t)
	h.builds.results = []domain.ProcessResult{failed("undefined: foo"), ok()}

	_ = h.run(t, context.Background())

	assert.Contains(t, h.sink.lines, "agent working")
	assert.Contains(t, h.sink.lines, "undefined: foo")
	statuses := strings.Join(h.sink.statuses, "\n")
	for _, want := range []string{
		"phase: primary generation",
		"phase: initial build",
		"build plan: test build",
		"running make",
		"build failed: make exited with code 1",
		"phase: fix attempt 1/10",
		"success: build passed after 1 fix attempt(s)",
	} {
		assert.Contains(t, statuses, want)
	}
}

func TestRun_NoInputClosesAgentStdin(t *testing.T) {
	h := newHarness(t)
	_ = h.run(t, context.Background())

	require.Len(t, h.runner.handles, 1)
	select {
	case <-h.runner.handles[0].stdin.closed:
	default:
		t.Error("agent stdin should be closed when no input is bridged")
	}
}

func TestRun_RecordsMetrics(t *testing.T) {
	h := newHarness(t)
	h.cfg.Metrics = telemetry.NewMetrics()
	h.builds.results = []domain.ProcessResult{failed("a"), ok()}

	_ = h.run(t, context.Background())

	expected := `
# HELP forge_agent_invocations_total Agent invocations by phase and outcome
# TYPE forge_agent_invocations_total counter
forge_agent_invocations_total{outcome="success",phase="fix"} 1
forge_agent_invocations_total{outcome="success",phase="primary"} 1
# HELP forge_build_runs_total Build plan executions by outcome
# TYPE forge_build_runs_total counter
forge_build_runs_total{outcome="failure"} 1
forge_build_runs_total{outcome="success"} 1
# HELP forge_runs_total Fix loop runs by terminal status
# TYPE forge_runs_total counter
forge_runs_total{status="success"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(h.cfg.Metrics.Registry(), strings.NewReader(expected),
		"forge_agent_invocations_total", "forge_build_runs_total", "forge_runs_total"))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{}, nil, &fakeBuilds{}, nil)
	assert.Error(t, err)
	_, err = New(Config{}, &fakeRunner{}, nil, nil)
	assert.Error(t, err)

	c, err := New(Config{MaxAttempts: 3}, &fakeRunner{}, &fakeBuilds{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, c.MaxAttempts())

	c, err = New(Config{MaxAttempts: 11}, &fakeRunner{}, &fakeBuilds{}, nil)
	require.NoError(t, err)
	assert.Equal(t, MaxFixAttempts, c.MaxAttempts())
}
