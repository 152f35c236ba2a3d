package main

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgeloop/forge/internal/agent"
	"github.com/forgeloop/forge/internal/buildplan"
	"github.com/forgeloop/forge/internal/domain"
	"github.com/forgeloop/forge/internal/terminal"
)

func newDoctorCmd() *cobra.Command {
	var probeTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the agent and build tools are installed",
		Long: `Probe the agent CLI with --version (killed if it does not answer within
--timeout) and look up the build tools the configured plan needs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := terminal.NewLoggerTo(cmd.ErrOrStderr())
			opts, err := resolveOpts(cmd, logger)
			if err != nil {
				return err
			}

			ctx, stop := signalContext(logger)
			defer stop()

			problems := 0
			if err := checkAgent(ctx, cmd, opts.Agent, probeTimeout); err != nil {
				logger.Logf(terminal.StyleError, "%v", err)
				problems++
			}

			plan := buildplan.New(opts.Language, opts.Style, buildplan.Config{TargetOS: opts.TargetOS})
			for _, tool := range planTools(plan) {
				path, err := exec.LookPath(tool)
				if err != nil {
					logger.Logf(terminal.StyleError, "build tool %s not found in PATH", tool)
					problems++
					continue
				}
				logger.Logf(terminal.StyleSuccess, "build tool %s %s(%s)%s",
					tool, terminal.Color(terminal.Dim), path, terminal.Color(terminal.Reset))
			}

			if problems > 0 {
				logger.Logf(terminal.StyleError, "%d %s found", problems, terminal.Plural(problems, "problem"))
				return exitCode(domain.ExitError)
			}
			logger.Log("Everything looks good.", terminal.StyleSuccess)
			return nil
		},
	}

	cmd.Flags().DurationVar(&probeTimeout, "timeout", agent.DefaultProbeTimeout,
		"How long to wait for the agent to answer --version")
	return cmd
}

func checkAgent(ctx context.Context, cmd *cobra.Command, binary string, timeout time.Duration) error {
	if err := agent.IsAvailable(binary); err != nil {
		return err
	}

	spinner := terminal.NewPhaseSpinner(fmt.Sprintf("Probing %s", binary))
	stopSpinner := spinner.Start(ctx)
	version, err := agent.Probe(ctx, nil, binary, timeout)
	stopSpinner()
	if err != nil {
		return err
	}

	terminal.NewLoggerTo(cmd.ErrOrStderr()).Logf(terminal.StyleSuccess, "agent %s %s(%s)%s",
		binary, terminal.Color(terminal.Dim), version, terminal.Color(terminal.Reset))
	return nil
}

// planTools returns the distinct executables a plan invokes, in order.
func planTools(plan buildplan.Plan) []string {
	var tools []string
	seen := make(map[string]bool)
	for _, step := range plan.Commands {
		if len(step.Args) == 0 || seen[step.Args[0]] {
			continue
		}
		seen[step.Args[0]] = true
		tools = append(tools, step.Args[0])
	}
	return tools
}
