package fixloop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forgeloop/forge/internal/domain"
)

// Outcome is the terminal result of a controller run.
type Outcome struct {
	// RunID identifies the run in logs, traces and reports.
	RunID  string
	Status domain.Status
	// States lists the states entered, in order.
	States []domain.State
	// AgentResult is the primary generation result.
	AgentResult domain.ProcessResult
	Attempts    []domain.FixAttempt
	// LastErrors is the merged output of the most recent failed build.
	LastErrors string
	// AuthRequired is set when agent output indicates the user must log in.
	AuthRequired bool
	// Err explains aborted and agent_failed runs.
	Err      error
	Duration time.Duration
}

// Interrupted reports whether the run was aborted by cancellation.
func (o Outcome) Interrupted() bool {
	return errors.Is(o.Err, context.Canceled)
}

// ExitCode maps the outcome to the process exit code.
func (o Outcome) ExitCode() domain.ExitCode {
	if o.Interrupted() {
		return domain.ExitInterrupted
	}
	return domain.ExitCodeFor(o.Status)
}

// AgentExitError reports an agent that ran but exited with a non-zero code.
type AgentExitError struct {
	Phase    string
	ExitCode int
}

func (e *AgentExitError) Error() string {
	return fmt.Sprintf("%s agent exited with code %d", e.Phase, e.ExitCode)
}

// StageError reports a prompt that could not be written to the working
// directory. The agent is never started and the run aborts.
type StageError struct {
	Err error
}

func (e *StageError) Error() string { return e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// isStageError reports whether err wraps a *StageError.
func isStageError(err error) bool {
	var se *StageError
	return errors.As(err, &se)
}
