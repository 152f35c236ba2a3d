// Package prompt assembles the text handed to the agent and stages it in the
// working directory.
package prompt

import (
	"fmt"
	"strings"

	"github.com/forgeloop/forge/internal/domain"
)

// DefaultGuidance is the instruction block placed ahead of every primary prompt.
const DefaultGuidance = `You are a senior software engineer working inside the project directory.
Create or modify the project so it fulfils the request below.

## Rules:
- Write all files inside the working directory. Do not touch anything outside it.
- Produce a project that builds and whose tests pass with the standard toolchain commands.
- Prefer the standard project layout for the language.
- Do not ask for confirmation; make reasonable decisions and keep going.`

// fixGuidance is the instruction block placed ahead of every fix prompt.
const fixGuidance = `You are a senior software engineer repairing a build.
The project in the working directory failed to build. The complete build output is below.

## Rules:
- Fix the root cause of every error shown. Do not delete features or tests to make the build pass.
- Keep changes minimal and inside the working directory.
- Do not ask for confirmation.`

// Builder produces the primary and fix prompts for a task.
// The zero value uses DefaultGuidance.
type Builder struct {
	// Guidance replaces DefaultGuidance when set (for example from --guidance-file).
	Guidance string
	// MaxAttempts is shown in fix prompts ("attempt 2 of 10"). Zero omits the cap.
	MaxAttempts int
}

// Primary returns the prompt for the initial generation.
func (b Builder) Primary(task domain.Task) string {
	guidance := b.Guidance
	if strings.TrimSpace(guidance) == "" {
		guidance = DefaultGuidance
	}

	var sb strings.Builder
	sb.WriteString(guidance)
	sb.WriteString("\n\n")
	writeContext(&sb, task)
	sb.WriteString("\n## Request:\n")
	sb.WriteString(strings.TrimSpace(task.Description))
	sb.WriteString("\n")
	return sb.String()
}

// Fix returns the prompt for fix attempt number attempt. compileErrors is
// embedded verbatim.
func (b Builder) Fix(task domain.Task, compileErrors string, attempt int) string {
	var sb strings.Builder
	sb.WriteString(fixGuidance)
	sb.WriteString("\n\n")
	if b.MaxAttempts > 0 {
		fmt.Fprintf(&sb, "This is fix attempt %d of %d.\n\n", attempt, b.MaxAttempts)
	} else {
		fmt.Fprintf(&sb, "This is fix attempt %d.\n\n", attempt)
	}
	writeContext(&sb, task)
	sb.WriteString("\n## Original request:\n")
	sb.WriteString(strings.TrimSpace(task.Description))
	sb.WriteString("\n\n## Build output:\n")
	sb.WriteString(Fence(compileErrors))
	sb.WriteString("\n")
	return sb.String()
}

func writeContext(sb *strings.Builder, task domain.Task) {
	sb.WriteString("## Project:\n")
	if task.Name != "" {
		fmt.Fprintf(sb, "- Name: %s\n", task.Name)
	}
	if task.Language != "" {
		fmt.Fprintf(sb, "- Language: %s\n", task.Language)
	}
	if task.Style != "" {
		fmt.Fprintf(sb, "- Style: %s\n", task.Style)
	}
	fmt.Fprintf(sb, "- Target OS: %s\n", task.Targets())
}

// Fence wraps text in a code fence long enough that backticks inside the
// text cannot close it.
func Fence(text string) string {
	marker := "```"
	for strings.Contains(text, marker) {
		marker += "`"
	}
	if text == "" {
		return marker + "\n(no output)\n" + marker
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return marker + "\n" + text + marker
}
