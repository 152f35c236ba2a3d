package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// flagGroup defines a named group of flags for help output.
type flagGroup struct {
	title string
	flags []string
}

// flagGroups defines the logical groupings for CLI flags.
// Flags not listed here appear under "Other Flags".
var flagGroups = []flagGroup{
	{
		title: "Project",
		flags: []string{"dir", "name", "language", "style", "target-os", "prompt-file"},
	},
	{
		title: "Agent Settings",
		flags: []string{"agent", "model", "agent-timeout", "allow-parent-dir", "non-interactive", "inline-prompt"},
	},
	{
		title: "Fix Loop",
		flags: []string{"max-fix-attempts", "guidance-file", "verbose"},
	},
	{
		title: "Output",
		flags: []string{"report-file", "metrics-file", "trace"},
	},
	{
		title: "Advanced",
		flags: []string{"config", "no-config"},
	},
}

// lookupFlag finds a flag defined on c or inherited from a parent.
func lookupFlag(c *cobra.Command, name string) *pflag.Flag {
	if f := c.Flags().Lookup(name); f != nil {
		return f
	}
	if f := c.PersistentFlags().Lookup(name); f != nil {
		return f
	}
	return c.InheritedFlags().Lookup(name)
}

// setGroupedUsage configures the command to display flags in logical groups.
func setGroupedUsage(cmd *cobra.Command) {
	cmd.SetUsageFunc(func(c *cobra.Command) error {
		out := c.OutOrStderr()
		fmt.Fprintf(out, "Usage:\n  %s\n", c.UseLine())

		if c.HasAvailableSubCommands() {
			fmt.Fprintf(out, "\nCommands:\n")
			for _, sub := range c.Commands() {
				if sub.IsAvailableCommand() {
					fmt.Fprintf(out, "  %-12s %s\n", sub.Name(), sub.Short)
				}
			}
		}

		// Track which flags have been placed in a group
		grouped := make(map[string]bool)

		for _, group := range flagGroups {
			fs := pflag.NewFlagSet(group.title, pflag.ContinueOnError)
			for _, name := range group.flags {
				if f := lookupFlag(c, name); f != nil {
					fs.AddFlag(f)
					grouped[name] = true
				}
			}
			if usages := fs.FlagUsages(); strings.TrimSpace(usages) != "" {
				fmt.Fprintf(out, "\n%s:\n%s", group.title, usages)
			}
		}

		// Collect ungrouped flags (help, version, any new flags not yet categorized)
		other := pflag.NewFlagSet("other", pflag.ContinueOnError)
		collect := func(f *pflag.Flag) {
			if !grouped[f.Name] && other.Lookup(f.Name) == nil {
				other.AddFlag(f)
			}
		}
		c.Flags().VisitAll(collect)
		c.InheritedFlags().VisitAll(collect)
		if usages := other.FlagUsages(); strings.TrimSpace(usages) != "" {
			fmt.Fprintf(out, "\nOther Flags:\n%s", usages)
		}

		return nil
	})
}
