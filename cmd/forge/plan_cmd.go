package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgeloop/forge/internal/buildplan"
	"github.com/forgeloop/forge/internal/terminal"
)

func newPlanCmd() *cobra.Command {
	var listLanguages bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the build plan for the configured project",
		Long: `Print the build commands forge runs after each agent pass, computed from
the resolved language, style and target operating systems.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if listLanguages {
				for _, lang := range buildplan.Languages() {
					fmt.Fprintln(out, lang)
				}
				return nil
			}

			logger := terminal.NewLoggerTo(cmd.ErrOrStderr())
			opts, err := resolveOpts(cmd, logger)
			if err != nil {
				return err
			}

			plan := buildplan.New(opts.Language, opts.Style, buildplan.Config{TargetOS: opts.TargetOS})
			fmt.Fprintln(out, plan.Description)
			for i, step := range plan.Commands {
				fmt.Fprintf(out, "  %d. %s\n", i+1, step.String())
				for _, k := range sortedKeys(step.Env) {
					fmt.Fprintf(out, "     %s=%s\n", k, step.Env[k])
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&listLanguages, "languages", false, "List languages with a dedicated build recipe")
	return cmd
}
