// Package domain provides core types shared by the forge engine.
package domain

// ExitCode represents the exit status of the forge binary.
type ExitCode int

const (
	// ExitSuccess indicates the project was generated and builds cleanly.
	ExitSuccess ExitCode = 0
	// ExitBuildFailed indicates the fix loop ran out of attempts with a failing build.
	ExitBuildFailed ExitCode = 1
	// ExitError indicates the run failed due to an error (agent failure, I/O, bad config).
	ExitError ExitCode = 2
	// ExitInterrupted indicates the run was interrupted by a signal.
	ExitInterrupted ExitCode = 130
)

// Int returns the exit code as an int for use with os.Exit.
func (e ExitCode) Int() int {
	return int(e)
}

// ExitCodeFor maps a terminal run status to the process exit code.
// An aborted run caused by an interrupt is reported by the caller as ExitInterrupted.
func ExitCodeFor(status Status) ExitCode {
	switch status {
	case StatusSuccess:
		return ExitSuccess
	case StatusExhaustedAttempts:
		return ExitBuildFailed
	default:
		return ExitError
	}
}
