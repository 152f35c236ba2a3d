package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forgeloop/forge/internal/agent"
	"github.com/forgeloop/forge/internal/domain"
	"github.com/forgeloop/forge/internal/terminal"
)

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <prompt...>",
		Short: "Run the agent once in batch mode and print its output",
		Long: `Invoke the agent a single time with the given prompt in the project
directory, wait for it to exit, and print what it wrote. No build is run.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := terminal.NewLoggerTo(cmd.ErrOrStderr())
			opts, err := resolveOpts(cmd, logger)
			if err != nil {
				return err
			}

			ctx, stop := signalContext(logger)
			defer stop()

			svc := agent.NewService(agent.Config{
				Binary:         opts.Agent,
				Model:          opts.Model,
				WorkDir:        opts.WorkDir,
				AllowParentDir: opts.AllowParentDir,
				SkipExecution:  agent.SkipFromEnv(),
				Timeout:        opts.AgentTimeout,
			}, nil)

			result, err := svc.RunBatch(ctx, strings.Join(args, " "), "ask")
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), result.Stdout)
			if result.Stderr != "" {
				fmt.Fprint(cmd.ErrOrStderr(), result.Stderr)
			}
			if !result.Success() {
				if agent.IsAuthFailure(result.ExitCode, result.Merged()) {
					logger.Log(agent.AuthHint(opts.Agent), terminal.StyleWarning)
				}
				logger.Logf(terminal.StyleError, "agent exited with code %d", result.ExitCode)
				return exitCode(domain.ExitError)
			}
			return nil
		},
	}
}
