package domain

import "time"

// ProcessResult is the outcome of a single subprocess run.
// It is produced exactly once per execution and never modified afterwards;
// pass it by value.
type ProcessResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the process exited with status 0.
func (r ProcessResult) Success() bool {
	return r.ExitCode == 0
}

// Merged returns stdout followed by stderr, separated by a newline when both
// are present. This is the diagnostic text handed to the agent after a failed build.
func (r ProcessResult) Merged() string {
	switch {
	case r.Stdout == "":
		return r.Stderr
	case r.Stderr == "":
		return r.Stdout
	}
	sep := "\n"
	if r.Stdout[len(r.Stdout)-1] == '\n' {
		sep = ""
	}
	return r.Stdout + sep + r.Stderr
}

// FixAttempt records one iteration of the fix loop.
// It lives only for the duration of a controller run.
type FixAttempt struct {
	Index       int
	FixPrompt   string
	AgentResult ProcessResult
	// AgentErr is set when the agent could not be launched or waited on.
	AgentErr    error
	BuildRan    bool
	BuildResult ProcessResult
	Duration    time.Duration
}

// AgentSucceeded reports whether the agent invocation for this attempt completed cleanly.
func (a FixAttempt) AgentSucceeded() bool {
	return a.AgentErr == nil && a.AgentResult.Success()
}

// Fixed reports whether this attempt ended with a passing build.
func (a FixAttempt) Fixed() bool {
	return a.BuildRan && a.BuildResult.Success()
}
