// Package report renders the outcome of a fix loop run for the terminal and
// as a markdown summary.
package report

import (
	"fmt"
	"strings"

	"github.com/forgeloop/forge/internal/agent"
	"github.com/forgeloop/forge/internal/domain"
	"github.com/forgeloop/forge/internal/fixloop"
	"github.com/forgeloop/forge/internal/prompt"
	"github.com/forgeloop/forge/internal/terminal"
)

// DefaultTailLines is how much of the last build output the report shows.
const DefaultTailLines = 20

// Options control report rendering.
type Options struct {
	// AgentBinary selects the login hint shown when authentication failed.
	AgentBinary string
	// MaxAttempts is the attempt budget the run was given.
	MaxAttempts int
	// TailLines limits the build output shown (DefaultTailLines when <= 0).
	TailLines int
}

func (o Options) tailLines() int {
	if o.TailLines <= 0 {
		return DefaultTailLines
	}
	return o.TailLines
}

// Render renders a terminal report for out.
func Render(out fixloop.Outcome, task domain.Task, opts Options) string {
	width := terminal.ReportWidth()
	var lines []string

	lines = append(lines, "")
	lines = append(lines, banner(out, opts))
	lines = append(lines, terminal.Ruler(width, "━"))

	if out.Err != nil && out.Status != domain.StatusSuccess {
		lines = append(lines, terminal.WrapText(out.Err.Error(), width-2, "  "))
	}

	if out.AuthRequired {
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("%s⚠ Authentication required%s", terminal.Color(terminal.Yellow), terminal.Color(terminal.Reset)))
		lines = append(lines, terminal.WrapText(agent.AuthHint(opts.AgentBinary), width-2, "  "))
	}

	if len(out.Attempts) > 0 {
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("%s%sFix attempts%s", terminal.Color(terminal.Cyan), terminal.Color(terminal.Bold), terminal.Color(terminal.Reset)))
		lines = append(lines, terminal.Ruler(width, "─"))
		for _, a := range out.Attempts {
			lines = append(lines, fmt.Sprintf("  %s%2d.%s %-22s %-22s %s%s%s",
				terminal.Color(terminal.Bold), a.Index, terminal.Color(terminal.Reset),
				agentCell(a), buildCell(a),
				terminal.Color(terminal.Dim), terminal.FormatDuration(a.Duration), terminal.Color(terminal.Reset)))
		}
	}

	if out.Status != domain.StatusSuccess && out.LastErrors != "" {
		tail, dropped := terminal.Tail(out.LastErrors, opts.tailLines())
		lines = append(lines, "")
		header := "Last build output"
		if dropped > 0 {
			header = fmt.Sprintf("Last build output (%d earlier %s omitted)", dropped, terminal.Plural(dropped, "line"))
		}
		lines = append(lines, fmt.Sprintf("%s%s:%s", terminal.Color(terminal.Red), header, terminal.Color(terminal.Reset)))
		lines = append(lines, terminal.Ruler(width, "─"))
		for _, l := range strings.Split(tail, "\n") {
			lines = append(lines, fmt.Sprintf("  %s%s%s", terminal.Color(terminal.Dim), l, terminal.Color(terminal.Reset)))
		}
	}

	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("%sproject: %s (%s) in %s%s",
		terminal.Color(terminal.Dim), projectName(task), languageLabel(task), task.WorkDir, terminal.Color(terminal.Reset)))
	if out.RunID != "" {
		lines = append(lines, fmt.Sprintf("%srun: %s%s", terminal.Color(terminal.Dim), out.RunID, terminal.Color(terminal.Reset)))
	}

	return strings.Join(lines, "\n")
}

func banner(out fixloop.Outcome, opts Options) string {
	n := len(out.Attempts)
	duration := terminal.FormatDuration(out.Duration)

	switch {
	case out.Status == domain.StatusSuccess && n == 0:
		return fmt.Sprintf("%s✓%s %s%sBuild passing%s %s(first build, %s)%s",
			terminal.Color(terminal.Green), terminal.Color(terminal.Reset),
			terminal.Color(terminal.Green), terminal.Color(terminal.Bold), terminal.Color(terminal.Reset),
			terminal.Color(terminal.Dim), duration, terminal.Color(terminal.Reset))
	case out.Status == domain.StatusSuccess:
		return fmt.Sprintf("%s✓%s %s%sBuild passing%s %s(after %d fix %s, %s)%s",
			terminal.Color(terminal.Green), terminal.Color(terminal.Reset),
			terminal.Color(terminal.Green), terminal.Color(terminal.Bold), terminal.Color(terminal.Reset),
			terminal.Color(terminal.Dim), n, terminal.Plural(n, "attempt"), duration, terminal.Color(terminal.Reset))
	case out.Status == domain.StatusExhaustedAttempts:
		return fmt.Sprintf("%s✗ Build still failing after %d fix %s%s %s(%s)%s",
			terminal.Color(terminal.Red), n, terminal.Plural(n, "attempt"), terminal.Color(terminal.Reset),
			terminal.Color(terminal.Dim), duration, terminal.Color(terminal.Reset))
	case out.Status == domain.StatusAgentFailed:
		return fmt.Sprintf("%s✗ Agent failed%s", terminal.Color(terminal.Red), terminal.Color(terminal.Reset))
	case out.Interrupted():
		return fmt.Sprintf("%s⚠ Interrupted%s", terminal.Color(terminal.Yellow), terminal.Color(terminal.Reset))
	default:
		return fmt.Sprintf("%s✗ Run aborted%s", terminal.Color(terminal.Red), terminal.Color(terminal.Reset))
	}
}

func agentCell(a domain.FixAttempt) string {
	switch {
	case a.AgentErr != nil:
		return "agent error"
	case a.AgentResult.ExitCode != 0:
		return fmt.Sprintf("agent exit %d", a.AgentResult.ExitCode)
	default:
		return "agent ok"
	}
}

func buildCell(a domain.FixAttempt) string {
	switch {
	case !a.BuildRan:
		return "build skipped"
	case a.BuildResult.Success():
		return "build passed"
	default:
		return fmt.Sprintf("build failed (exit %d)", a.BuildResult.ExitCode)
	}
}

func projectName(task domain.Task) string {
	if task.Name == "" {
		return "untitled"
	}
	return task.Name
}

func languageLabel(task domain.Task) string {
	label := task.Language
	if label == "" {
		label = "unknown language"
	}
	if task.Style != "" {
		label += ", " + task.Style
	}
	return label + ", targets " + task.Targets()
}

// Markdown renders a markdown summary of out, suitable for a report file.
func Markdown(out fixloop.Outcome, task domain.Task, opts Options) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("## forge: %s", statusTitle(out)))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("- **Project:** %s", projectName(task)))
	lines = append(lines, fmt.Sprintf("- **Language:** %s", languageLabel(task)))
	lines = append(lines, fmt.Sprintf("- **Directory:** `%s`", task.WorkDir))
	if opts.MaxAttempts > 0 {
		lines = append(lines, fmt.Sprintf("- **Fix attempts:** %d of %d", len(out.Attempts), opts.MaxAttempts))
	} else {
		lines = append(lines, fmt.Sprintf("- **Fix attempts:** %d", len(out.Attempts)))
	}
	lines = append(lines, fmt.Sprintf("- **Duration:** %s", terminal.FormatDuration(out.Duration)))
	if out.RunID != "" {
		lines = append(lines, fmt.Sprintf("- **Run:** `%s`", out.RunID))
	}

	if out.Err != nil && out.Status != domain.StatusSuccess {
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("**Error:** %s", out.Err))
	}
	if out.AuthRequired {
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("**Authentication required:** %s", agent.AuthHint(opts.AgentBinary)))
	}

	if len(out.Attempts) > 0 {
		lines = append(lines, "")
		lines = append(lines, "| # | Agent | Build | Duration |")
		lines = append(lines, "|---|-------|-------|----------|")
		for _, a := range out.Attempts {
			lines = append(lines, fmt.Sprintf("| %d | %s | %s | %s |",
				a.Index, agentCell(a), buildCell(a), terminal.FormatDuration(a.Duration)))
		}
	}

	if out.Status != domain.StatusSuccess && out.LastErrors != "" {
		lines = append(lines, "")
		lines = append(lines, "<details>")
		lines = append(lines, "<summary>Last build output</summary>")
		lines = append(lines, "")
		lines = append(lines, prompt.Fence(strings.TrimRight(out.LastErrors, "\n")))
		lines = append(lines, "</details>")
	}

	return strings.Join(lines, "\n") + "\n"
}

func statusTitle(out fixloop.Outcome) string {
	switch {
	case out.Status == domain.StatusSuccess:
		return "build passing :white_check_mark:"
	case out.Status == domain.StatusExhaustedAttempts:
		return "build still failing"
	case out.Status == domain.StatusAgentFailed:
		return "agent failed"
	case out.Interrupted():
		return "interrupted"
	default:
		return "aborted"
	}
}
