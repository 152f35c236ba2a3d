package fixloop

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/forgeloop/forge/internal/agent"
	"github.com/forgeloop/forge/internal/buildplan"
	"github.com/forgeloop/forge/internal/dirlock"
	"github.com/forgeloop/forge/internal/domain"
	"github.com/forgeloop/forge/internal/process"
	"github.com/forgeloop/forge/internal/prompt"
	"github.com/forgeloop/forge/internal/telemetry"
)

// MaxFixAttempts is the hard cap on fix attempts per run.
// Configuration may lower it but never raise it.
const MaxFixAttempts = 10

// Sink receives the controller's output. OnLine carries agent and build
// output verbatim; OnStatus carries phase changes, warnings and errors
// (prefixed "phase:", "warning:", "error:" or "success:").
// Implementations must be safe for concurrent use.
type Sink interface {
	OnLine(line string)
	OnStatus(msg string)
}

// BuildRunner runs one build command. *process.Executor implements it.
type BuildRunner interface {
	Run(ctx context.Context, cmd process.Command, onLine process.LineFunc) (domain.ProcessResult, error)
}

// PromptBuilder produces agent prompts. prompt.Builder implements it.
type PromptBuilder interface {
	Primary(task domain.Task) string
	Fix(task domain.Task, compileErrors string, attempt int) string
}

// Planner computes the build plan. buildplan.New implements it.
type Planner func(language, style string, cfg buildplan.Config) buildplan.Plan

// Config holds the controller configuration.
type Config struct {
	// MaxAttempts lowers the fix attempt budget. Zero or values above
	// MaxFixAttempts mean MaxFixAttempts.
	MaxAttempts int
	// HostOS is passed to the planner (runtime.GOOS when empty).
	HostOS string
	// InlinePrompt passes small prompts on the command line instead of
	// staging them in prompt.txt.
	InlinePrompt bool
	// LockDir holds the directory lock files (os.TempDir() when empty).
	LockDir string

	// Prompts defaults to prompt.Builder with the effective attempt cap.
	Prompts PromptBuilder
	// Planner defaults to buildplan.New.
	Planner Planner
	// Input is relayed to every agent session. Nil closes the agent's
	// stdin as soon as it starts.
	Input *InputBridge
	// Metrics may be nil.
	Metrics *telemetry.Metrics
}

// Controller drives one task at a time through the state machine.
// It is not safe for concurrent Run calls.
type Controller struct {
	cfg    Config
	runner agent.Runner
	builds BuildRunner
	sink   Sink
	now    func() time.Time
}

// New creates a controller. sink may be nil to discard output.
func New(cfg Config, runner agent.Runner, builds BuildRunner, sink Sink) (*Controller, error) {
	if runner == nil {
		return nil, errors.New("agent runner is required")
	}
	if builds == nil {
		return nil, errors.New("build runner is required")
	}
	if cfg.MaxAttempts <= 0 || cfg.MaxAttempts > MaxFixAttempts {
		cfg.MaxAttempts = MaxFixAttempts
	}
	if cfg.Prompts == nil {
		cfg.Prompts = prompt.Builder{MaxAttempts: cfg.MaxAttempts}
	}
	if cfg.Planner == nil {
		cfg.Planner = buildplan.New
	}
	if sink == nil {
		sink = discardSink{}
	}
	return &Controller{cfg: cfg, runner: runner, builds: builds, sink: sink, now: time.Now}, nil
}

// MaxAttempts returns the effective fix attempt budget.
func (c *Controller) MaxAttempts() int {
	return c.cfg.MaxAttempts
}

// Run executes task and returns its terminal outcome. Cancelling ctx kills
// the running agent or build and ends the run as aborted.
func (c *Controller) Run(ctx context.Context, task domain.Task) Outcome {
	r := &run{
		c:     c,
		task:  task,
		start: c.now(),
		out:   Outcome{RunID: uuid.NewString()},
	}

	ctx, span := telemetry.StartSpan(ctx, "fixloop.run",
		attribute.String("run_id", r.out.RunID),
		attribute.String("language", task.Language),
		attribute.String("style", task.Style))

	r.execute(ctx)

	r.out.Duration = c.now().Sub(r.start)
	c.cfg.Metrics.RecordRun(string(r.out.Status), len(r.out.Attempts))
	span.SetAttributes(
		attribute.String("status", string(r.out.Status)),
		attribute.Int("attempts", len(r.out.Attempts)))
	telemetry.EndSpan(span, r.out.Err)
	return r.out
}

// run is the state of a single Controller.Run call.
type run struct {
	c     *Controller
	task  domain.Task
	start time.Time
	out   Outcome
}

func (r *run) enter(s domain.State) {
	r.out.States = append(r.out.States, s)
}

func (r *run) status(format string, args ...any) {
	r.c.sink.OnStatus(fmt.Sprintf(format, args...))
}

// finish logs err (if any) and sets the terminal status.
func (r *run) finish(status domain.Status, err error) {
	if err != nil {
		r.status("error: %v", err)
	}
	r.out.Status = status
	r.out.Err = err
}

func (r *run) execute(ctx context.Context) {
	// Init
	r.enter(domain.StateInit)
	if r.task.WorkDir == "" {
		r.finish(domain.StatusAborted, errors.New("working directory is required"))
		return
	}
	if err := os.MkdirAll(r.task.WorkDir, 0755); err != nil {
		r.finish(domain.StatusAborted, fmt.Errorf("failed to prepare working directory: %w", err))
		return
	}
	lock, err := dirlock.Acquire(r.task.WorkDir, r.c.cfg.LockDir)
	if err != nil {
		r.finish(domain.StatusAborted, err)
		return
	}
	defer func() {
		if err := lock.Release(); err != nil {
			r.status("warning: %v", err)
		}
	}()

	// PrimaryGeneration
	r.enter(domain.StatePrimaryGeneration)
	r.status("phase: primary generation")
	result, err := r.invokeAgent(ctx, telemetry.PhasePrimary, r.c.cfg.Prompts.Primary(r.task), 0)
	r.out.AgentResult = result
	if isStageError(err) {
		r.finish(domain.StatusAborted, err)
		return
	}
	if err != nil {
		r.finish(abortOr(ctx, domain.StatusAgentFailed), err)
		return
	}
	if !result.Success() {
		r.out.AuthRequired = agent.IsAuthFailure(result.ExitCode, result.Merged())
		r.finish(domain.StatusAgentFailed, &AgentExitError{Phase: telemetry.PhasePrimary, ExitCode: result.ExitCode})
		return
	}

	// InitialBuild
	r.enter(domain.StateInitialBuild)
	r.status("phase: initial build")
	build, err := r.build(ctx, 0)
	if err != nil {
		r.finish(domain.StatusAborted, err)
		return
	}
	if build.Success() {
		r.status("success: build passed")
		r.finish(domain.StatusSuccess, nil)
		return
	}
	compileErrors := build.Merged()
	r.out.LastErrors = compileErrors

	// FixLoop
	r.enter(domain.StateFixLoop)
	for attempt := 1; attempt <= r.c.cfg.MaxAttempts; attempt++ {
		r.status("phase: fix attempt %d/%d", attempt, r.c.cfg.MaxAttempts)

		fixed, err := r.attempt(ctx, attempt, compileErrors)
		if err != nil {
			r.finish(domain.StatusAborted, err)
			return
		}
		if fixed {
			r.status("success: build passed after %d fix attempt(s)", attempt)
			r.finish(domain.StatusSuccess, nil)
			return
		}
		last := r.out.Attempts[len(r.out.Attempts)-1]
		if last.BuildRan {
			compileErrors = last.BuildResult.Merged()
			r.out.LastErrors = compileErrors
		}
	}

	// ExhaustedAttempts is a normal outcome, not an error.
	r.status("warning: build still failing after %d fix attempts", r.c.cfg.MaxAttempts)
	r.finish(domain.StatusExhaustedAttempts, nil)
}

// attempt runs one fix iteration and appends it to the outcome. A non-nil
// error aborts the run; an agent failure does not. A prompt that cannot be
// staged is a working directory failure and aborts.
func (r *run) attempt(ctx context.Context, index int, compileErrors string) (fixed bool, err error) {
	ctx, span := telemetry.StartSpan(ctx, "fixloop.attempt", attribute.Int("attempt", index))
	started := r.c.now()

	a := domain.FixAttempt{
		Index:     index,
		FixPrompt: r.c.cfg.Prompts.Fix(r.task, compileErrors, index),
	}
	defer func() {
		a.Duration = r.c.now().Sub(started)
		r.out.Attempts = append(r.out.Attempts, a)
		span.SetAttributes(attribute.Bool("fixed", fixed))
		telemetry.EndSpan(span, err)
	}()

	a.AgentResult, a.AgentErr = r.invokeAgent(ctx, telemetry.PhaseFix, a.FixPrompt, index)
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if isStageError(a.AgentErr) {
		return false, a.AgentErr
	}
	if !a.AgentSucceeded() {
		if a.AgentErr == nil {
			if agent.IsAuthFailure(a.AgentResult.ExitCode, a.AgentResult.Merged()) {
				r.out.AuthRequired = true
			}
			r.status("warning: fix attempt %d: agent exited with code %d, trying again", index, a.AgentResult.ExitCode)
		} else {
			r.status("warning: fix attempt %d: %v, trying again", index, a.AgentErr)
		}
		return false, nil
	}

	a.BuildRan = true
	a.BuildResult, err = r.build(ctx, index)
	if err != nil {
		return false, err
	}
	return a.BuildResult.Success(), nil
}

// invokeAgent stages text, runs one agent session with input relayed, and
// waits for it. attempt is 0 for the primary generation.
func (r *run) invokeAgent(ctx context.Context, phase, text string, attempt int) (result domain.ProcessResult, err error) {
	spanName := "fixloop.primary"
	if attempt > 0 {
		spanName = "fixloop.agent"
	}
	ctx, span := telemetry.StartSpan(ctx, spanName, attribute.Int("attempt", attempt))
	started := r.c.now()
	defer func() {
		r.c.cfg.Metrics.RecordAgent(phase, outcomeOf(ctx, result, err), r.c.now().Sub(started))
		telemetry.EndSpan(span, err)
	}()

	arg, err := prompt.Stage(r.task.WorkDir, text, r.c.cfg.InlinePrompt)
	if err != nil {
		return domain.ProcessResult{}, &StageError{Err: err}
	}
	defer func() {
		if cleanupErr := prompt.Cleanup(r.task.WorkDir); cleanupErr != nil {
			r.status("warning: %v", cleanupErr)
		}
	}()

	handle, err := r.c.runner.Start(ctx, arg, r.c.sink.OnLine)
	if err != nil {
		return domain.ProcessResult{}, err
	}

	detach := r.c.cfg.Input.Attach(handle.Stdin())
	result, err = handle.Wait()
	detach()

	if err != nil {
		return result, fmt.Errorf("agent session failed: %w", err)
	}
	return result, nil
}

// build runs the freshly computed plan, stopping at the first failing
// command. It returns that command's result, or the last result when every
// command passes. An error means a command could not be run at all.
func (r *run) build(ctx context.Context, attempt int) (result domain.ProcessResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "fixloop.build", attribute.Int("attempt", attempt))
	started := r.c.now()
	defer func() {
		r.c.cfg.Metrics.RecordBuild(outcomeOf(ctx, result, err), r.c.now().Sub(started))
		telemetry.EndSpan(span, err)
	}()

	plan := r.c.cfg.Planner(r.task.Language, r.task.Style, buildplan.Config{
		TargetOS: r.task.TargetOS,
		HostOS:   r.c.cfg.HostOS,
	})
	r.status("build plan: %s", plan.Description)

	onLine := func(_ process.Stream, line string) { r.c.sink.OnLine(line) }
	for _, step := range plan.Commands {
		r.status("running %s", step.String())
		result, err = r.c.builds.Run(ctx, process.Command{
			Args: step.Args,
			Dir:  r.task.WorkDir,
			Env:  step.Env,
		}, onLine)
		if err != nil {
			return result, fmt.Errorf("build step %q failed to run: %w", step.String(), err)
		}
		if !result.Success() {
			r.status("build failed: %s exited with code %d", step.String(), result.ExitCode)
			return result, nil
		}
	}
	return result, nil
}

// abortOr maps a cancelled context to aborted and anything else to status.
func abortOr(ctx context.Context, status domain.Status) domain.Status {
	if ctx.Err() != nil {
		return domain.StatusAborted
	}
	return status
}

// outcomeOf classifies an agent or build invocation for metrics.
func outcomeOf(ctx context.Context, result domain.ProcessResult, err error) string {
	switch {
	case ctx.Err() != nil:
		return telemetry.OutcomeCanceled
	case process.IsLaunchError(err):
		return telemetry.OutcomeLaunchError
	case err != nil || !result.Success():
		return telemetry.OutcomeFailure
	default:
		return telemetry.OutcomeSuccess
	}
}

type discardSink struct{}

func (discardSink) OnLine(string)   {}
func (discardSink) OnStatus(string) {}
