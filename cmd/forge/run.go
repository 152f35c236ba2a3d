package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/forgeloop/forge/internal/agent"
	"github.com/forgeloop/forge/internal/domain"
	"github.com/forgeloop/forge/internal/fixloop"
	"github.com/forgeloop/forge/internal/process"
	"github.com/forgeloop/forge/internal/prompt"
	"github.com/forgeloop/forge/internal/report"
	"github.com/forgeloop/forge/internal/telemetry"
	"github.com/forgeloop/forge/internal/terminal"
)

// runEnv holds the streams a run talks to. Tests replace them.
type runEnv struct {
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	stdinTTY bool
}

func defaultRunEnv() runEnv {
	return runEnv{
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		stdinTTY: terminal.IsStdinTTY(),
	}
}

func executeRun(ctx context.Context, opts RunOpts, logger *terminal.Logger) domain.ExitCode {
	return executeRunWith(ctx, opts, logger, defaultRunEnv())
}

func executeRunWith(ctx context.Context, opts RunOpts, logger *terminal.Logger, env runEnv) domain.ExitCode {
	shutdown, err := telemetry.SetupTracing(opts.Trace, env.stderr)
	if err != nil {
		logger.Logf(terminal.StyleError, "Failed to set up tracing: %v", err)
		return domain.ExitError
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Logf(terminal.StyleWarning, "Failed to flush traces: %v", err)
		}
	}()

	var metrics *telemetry.Metrics
	if opts.MetricsFile != "" {
		metrics = telemetry.NewMetrics()
	}

	svc := agent.NewService(agent.Config{
		Binary:         opts.Agent,
		Model:          opts.Model,
		WorkDir:        opts.WorkDir,
		AllowParentDir: opts.AllowParentDir,
		SkipExecution:  agent.SkipFromEnv(),
		Timeout:        opts.AgentTimeout,
	}, nil)

	if !svc.Config().SkipExecution {
		if err := agent.IsAvailable(opts.Agent); err != nil {
			logger.Logf(terminal.StyleError, "%v", err)
			return domain.ExitError
		}
	}

	// Interactive sessions need a terminal to relay input from; everything
	// else, including skipped execution, runs in batch mode.
	interactive := opts.Interactive && env.stdinTTY && !svc.Config().SkipExecution

	var (
		runner agent.Runner
		input  *fixloop.InputBridge
	)
	if interactive {
		runner = agent.NewInteractiveRunner(svc)
		input = fixloop.NewInputBridge(env.stdin)
	} else {
		runner = agent.NewBatchRunner(svc, opts.Name)
	}

	quiet := !opts.Verbose && !interactive
	sink := terminal.NewSink(env.stdout, logger, quiet)

	controller, err := fixloop.New(fixloop.Config{
		MaxAttempts:  opts.MaxFixAttempts,
		InlinePrompt: opts.InlinePrompt,
		Prompts:      prompt.Builder{Guidance: opts.Guidance, MaxAttempts: opts.MaxFixAttempts},
		Input:        input,
		Metrics:      metrics,
	}, runner, process.NewExecutor(), sink)
	if err != nil {
		logger.Logf(terminal.StyleError, "%v", err)
		return domain.ExitError
	}

	task := opts.Task()
	logger.Logf(terminal.StyleInfo, "Starting %s%s%s %s(%s, targets %s, agent %s)%s",
		terminal.Color(terminal.Bold), task.Name, terminal.Color(terminal.Reset),
		terminal.Color(terminal.Dim), languageOrGeneric(task.Language), task.Targets(), opts.Agent, terminal.Color(terminal.Reset))

	outcome := controller.Run(ctx, task)

	reportOpts := report.Options{AgentBinary: opts.Agent, MaxAttempts: controller.MaxAttempts()}
	fmt.Fprintln(env.stdout, report.Render(outcome, task, reportOpts))

	if opts.ReportFile != "" {
		if err := os.WriteFile(opts.ReportFile, []byte(report.Markdown(outcome, task, reportOpts)), 0644); err != nil {
			logger.Logf(terminal.StyleWarning, "Failed to write report: %v", err)
		}
	}
	if metrics != nil {
		if err := metrics.WriteTextfile(opts.MetricsFile); err != nil {
			logger.Logf(terminal.StyleWarning, "Failed to write metrics: %v", err)
		}
	}

	return outcome.ExitCode()
}

func languageOrGeneric(lang string) string {
	if lang == "" {
		return "generic"
	}
	return lang
}
