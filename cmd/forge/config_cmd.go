package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forgeloop/forge/internal/config"
	"github.com/forgeloop/forge/internal/terminal"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage forge configuration",
		Long:  "View, initialize, and validate forge configuration files and environment variables.",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigValidateCmd())

	return cmd
}

// configFilePath returns --config or .forge.yaml in --dir.
func configFilePath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	dir, err := filepath.Abs(workDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, config.ConfigFileName), nil
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display resolved configuration",
		Long:  "Show the fully resolved configuration from defaults, config file, environment variables and flags.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := terminal.NewLoggerTo(cmd.ErrOrStderr())
			opts, err := resolveOpts(cmd, logger)
			if err != nil {
				return err
			}

			data, err := opts.ResolvedConfig.YAML()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# Resolved configuration for %s\n%s", opts.WorkDir, data)
			return nil
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate a starter .forge.yaml file",
		Long:  "Create a commented .forge.yaml configuration file in the project directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath()
			if err != nil {
				return err
			}

			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists; remove it first or edit it directly", path)
			}

			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
			}
			if err := os.WriteFile(path, []byte(config.Template), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s with default settings.\n", path)
			return nil
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and environment variables",
		Long:  "Load and validate the config file and environment variables, reporting any warnings or errors.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := terminal.NewLoggerTo(cmd.ErrOrStderr())
			var problems []string

			path, err := configFilePath()
			if err != nil {
				return err
			}

			// Don't early-return so env var issues are also reported
			cfg := &config.Config{}
			result, err := config.LoadFromPathWithWarnings(path)
			if err != nil {
				problems = append(problems, fmt.Sprintf("config file: %v", err))
			} else {
				cfg = result.Config
				for _, w := range result.Warnings {
					logger.Logf(terminal.StyleWarning, "Config: %s", w)
				}
			}

			envState := config.LoadEnvState()
			resolved := config.Resolve(cfg, envState, config.FlagState{}, config.ResolvedConfig{})
			if err := resolved.Validate(); err != nil {
				problems = append(problems, err.Error())
			}

			// Validate guidance file is readable (uses same resolution logic as runtime)
			if _, err := config.ResolveGuidance(cfg, envState, config.FlagState{}, config.ResolvedConfig{}); err != nil {
				problems = append(problems, err.Error())
			}

			for _, p := range problems {
				logger.Logf(terminal.StyleError, "%s", p)
			}
			if len(problems) > 0 {
				return fmt.Errorf("configuration has %d error(s)", len(problems))
			}

			if result != nil && len(result.Warnings) > 0 {
				logger.Log("Configuration is valid (with warnings).", terminal.StyleSuccess)
			} else {
				logger.Log("Configuration is valid.", terminal.StyleSuccess)
			}
			return nil
		},
	}
}
