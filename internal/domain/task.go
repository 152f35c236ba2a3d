package domain

import "strings"

// Task describes the project the agent is asked to create or modify.
type Task struct {
	// Name is a short project name used in prompts and reports.
	Name string
	// Description is the user's request, passed to the agent verbatim.
	Description string
	Language    string
	Style       string
	TargetOS    []string
	// WorkDir is the directory the agent may write to and builds run in.
	WorkDir string
}

// Targets returns the target list joined for display, or "host" when empty.
func (t Task) Targets() string {
	if len(t.TargetOS) == 0 {
		return "host"
	}
	return strings.Join(t.TargetOS, ", ")
}
