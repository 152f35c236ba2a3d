// Package main provides the CLI entry point for forge.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgeloop/forge/internal/domain"
	"github.com/forgeloop/forge/internal/terminal"
)

var (
	workDir        string
	projectName    string
	language       string
	style          string
	targetOS       []string
	agentBin       string
	model          string
	maxFixAttempts int
	agentTimeout   time.Duration
	allowParentDir bool
	promptFile     string
	guidanceFile   string
	nonInteractive bool
	inlinePrompt   bool
	configPath     string
	noConfig       bool
	verbose        bool
	metricsFile    string
	trace          bool
	reportFile     string
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd()

	if err := rootCmd.Execute(); err != nil {
		// Check if this is an exit code wrapper (not a real error)
		if exitErr, ok := err.(exitCodeError); ok {
			return exitErr.code.Int()
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return domain.ExitError.Int()
	}

	return 0
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "forge [flags] <task description...>",
		Short: "Generate a project with a coding agent and fix it until it builds",
		Long: `Ask a code-generation agent to create a project, build it, and feed
compiler errors back to the agent until the build passes (at most 10 fix attempts).

Exit codes:
  0 - Build passing
  1 - Build still failing after all fix attempts
  2 - Error (agent failed, invalid configuration, aborted run)
  130 - Interrupted`,
		RunE:          runForge,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       buildVersionString(),
	}

	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Configuration flags (defaults are resolved via config.Resolve with precedence: flag > env > config > default).
	// Project and agent flags are persistent so plan, ask and doctor share them.
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "d", ".",
		"Project working directory (created if missing)")
	rootCmd.Flags().StringVar(&projectName, "name", "",
		"Project name (default: base name of --dir)")
	rootCmd.PersistentFlags().StringVarP(&language, "language", "l", "",
		"Project language, e.g. go, rust, csharp, python (env: FORGE_LANGUAGE)")
	rootCmd.PersistentFlags().StringVarP(&style, "style", "s", "",
		"Project style: cli, library, web, desktop, gradle, maven, cmake, make (env: FORGE_STYLE)")
	rootCmd.PersistentFlags().StringSliceVarP(&targetOS, "target-os", "t", nil,
		"Target operating systems, comma-separated (default: host, env: FORGE_TARGET_OS)")
	rootCmd.PersistentFlags().StringVarP(&agentBin, "agent", "a", "",
		"Agent CLI binary (default: copilot, env: FORGE_AGENT_BIN)")
	rootCmd.PersistentFlags().StringVarP(&model, "model", "m", "",
		"Model identifier passed to the agent (default: gpt-5, env: FORGE_MODEL)")
	rootCmd.Flags().IntVarP(&maxFixAttempts, "max-fix-attempts", "n", 0,
		"Fix attempts after a failed build, 1-10 (default: 10, env: FORGE_MAX_FIX_ATTEMPTS)")
	rootCmd.PersistentFlags().DurationVar(&agentTimeout, "agent-timeout", 0,
		"Timeout per agent invocation, 0 waits indefinitely (env: FORGE_AGENT_TIMEOUT)")
	rootCmd.PersistentFlags().BoolVar(&allowParentDir, "allow-parent-dir", false,
		"Also grant the agent access to the parent of --dir")
	rootCmd.Flags().StringVar(&promptFile, "prompt-file", "",
		"Read the task description from a file")
	rootCmd.Flags().StringVar(&guidanceFile, "guidance-file", "",
		"Replace the built-in prompt guidance with a file (env: FORGE_GUIDANCE_FILE)")
	rootCmd.Flags().BoolVar(&nonInteractive, "non-interactive", false,
		"Run the agent in batch mode without relaying terminal input (env: FORGE_INTERACTIVE=false)")
	rootCmd.Flags().BoolVar(&inlinePrompt, "inline-prompt", false,
		"Pass small prompts on the command line instead of prompt.txt")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file path (default: .forge.yaml in --dir)")
	rootCmd.PersistentFlags().BoolVar(&noConfig, "no-config", false,
		"Skip loading the config file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"Print agent and build output even in batch mode")
	rootCmd.Flags().StringVar(&metricsFile, "metrics-file", "",
		"Write Prometheus metrics in text format to this file at exit")
	rootCmd.Flags().BoolVar(&trace, "trace", false,
		"Print OpenTelemetry spans to stderr")
	rootCmd.Flags().StringVar(&reportFile, "report-file", "",
		"Write a markdown summary of the run to this file")

	setGroupedUsage(rootCmd)

	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func runForge(cmd *cobra.Command, args []string) error {
	// Disable colors if stdout is not a TTY
	if !terminal.IsStdoutTTY() {
		terminal.DisableColors()
	}

	logger := terminal.NewLogger()

	ctx, stop := signalContext(logger)
	defer stop()

	description, err := readDescription(args, promptFile)
	if err != nil {
		logger.Logf(terminal.StyleError, "%v", err)
		return exitCode(domain.ExitError)
	}

	opts, err := resolveOpts(cmd, logger)
	if err != nil {
		logger.Logf(terminal.StyleError, "%v", err)
		return exitCode(domain.ExitError)
	}
	opts.Description = description

	if opts.Language == "" {
		if err := chooseLanguage(&opts, logger); err != nil {
			logger.Logf(terminal.StyleError, "%v", err)
			return exitCode(domain.ExitError)
		}
	}

	return exitCode(executeRun(ctx, opts, logger))
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext(logger *terminal.Logger) (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr)
			logger.Log("Interrupted, shutting down...", terminal.StyleWarning)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}
