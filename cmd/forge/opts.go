package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forgeloop/forge/internal/config"
	"github.com/forgeloop/forge/internal/domain"
	"github.com/forgeloop/forge/internal/terminal"
)

// RunOpts holds all resolved configuration and runtime flags needed to
// execute a run. It bundles config.ResolvedConfig (from flag/env/file
// resolution) with CLI-only values that don't participate in config resolution.
type RunOpts struct {
	config.ResolvedConfig

	WorkDir     string // absolute project directory
	Name        string
	Description string
	Guidance    string // empty means the built-in guidance
	Verbose     bool
	ReportFile  string
}

// Task returns the task handed to the controller.
func (o RunOpts) Task() domain.Task {
	return domain.Task{
		Name:        o.Name,
		Description: o.Description,
		Language:    o.Language,
		Style:       o.Style,
		TargetOS:    o.TargetOS,
		WorkDir:     o.WorkDir,
	}
}

// resolveOpts loads the config file and resolves flags, environment and
// file values into RunOpts. Warnings for unknown config keys are logged.
func resolveOpts(cmd *cobra.Command, logger *terminal.Logger) (RunOpts, error) {
	dir, err := filepath.Abs(workDir)
	if err != nil {
		return RunOpts{}, fmt.Errorf("invalid --dir: %w", err)
	}

	cfg, err := loadConfig(dir, logger)
	if err != nil {
		return RunOpts{}, err
	}

	flags := cmd.Flags()
	flagState := config.FlagState{
		AgentSet:          flags.Changed("agent"),
		ModelSet:          flags.Changed("model"),
		LanguageSet:       flags.Changed("language"),
		StyleSet:          flags.Changed("style"),
		TargetOSSet:       flags.Changed("target-os"),
		MaxFixAttemptsSet: flags.Changed("max-fix-attempts"),
		AgentTimeoutSet:   flags.Changed("agent-timeout"),
		AllowParentDirSet: flags.Changed("allow-parent-dir"),
		InlinePromptSet:   flags.Changed("inline-prompt"),
		InteractiveSet:    flags.Changed("non-interactive"),
		GuidanceFileSet:   flags.Changed("guidance-file"),
		MetricsFileSet:    flags.Changed("metrics-file"),
		TraceSet:          flags.Changed("trace"),
	}

	envState := config.LoadEnvState()

	flagValues := config.ResolvedConfig{
		Agent:          agentBin,
		Model:          model,
		Language:       language,
		Style:          style,
		TargetOS:       config.ParseTargets(joinComma(targetOS)),
		MaxFixAttempts: maxFixAttempts,
		AgentTimeout:   agentTimeout,
		AllowParentDir: allowParentDir,
		InlinePrompt:   inlinePrompt,
		Interactive:    !nonInteractive,
		GuidanceFile:   guidanceFile,
		MetricsFile:    metricsFile,
		Trace:          trace,
	}

	// Resolve final configuration (precedence: flags > env vars > config file > defaults)
	resolved := config.Resolve(cfg, envState, flagState, flagValues)
	if err := resolved.Validate(); err != nil {
		return RunOpts{}, fmt.Errorf("invalid configuration: %w", err)
	}

	guidance, err := config.ResolveGuidance(cfg, envState, flagState, flagValues)
	if err != nil {
		return RunOpts{}, err
	}

	name := projectName
	if name == "" {
		name = filepath.Base(dir)
	}

	return RunOpts{
		ResolvedConfig: resolved,
		WorkDir:        dir,
		Name:           name,
		Guidance:       guidance,
		Verbose:        verbose,
		ReportFile:     reportFile,
	}, nil
}

// loadConfig reads --config or .forge.yaml in dir, unless --no-config is set.
func loadConfig(dir string, logger *terminal.Logger) (*config.Config, error) {
	if noConfig {
		return &config.Config{}, nil
	}

	path := configPath
	if path == "" {
		path = filepath.Join(dir, config.ConfigFileName)
	}

	result, err := config.LoadFromPathWithWarnings(path)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	// Display warnings for unknown keys
	for _, warning := range result.Warnings {
		logger.Logf(terminal.StyleWarning, "Warning: %s", warning)
	}
	return result.Config, nil
}
