package domain

// State is a non-terminal phase of the generate, build, fix state machine.
type State string

const (
	StateInit              State = "init"
	StatePrimaryGeneration State = "primary_generation"
	StateInitialBuild      State = "initial_build"
	StateFixLoop           State = "fix_loop"
)

// Status is the terminal outcome of a controller run.
type Status string

const (
	// StatusSuccess means the build passed, either initially or after a fix attempt.
	StatusSuccess Status = "success"
	// StatusAgentFailed means the primary generation agent run failed. No fix attempts are made.
	StatusAgentFailed Status = "agent_failed"
	// StatusAborted means the run stopped on an I/O failure, a lock conflict,
	// a build launch failure or cancellation.
	StatusAborted Status = "aborted"
	// StatusExhaustedAttempts means every fix attempt was used and the build still fails.
	StatusExhaustedAttempts Status = "exhausted_attempts"
)

// Terminal reports whether s is one of the defined terminal statuses.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusAgentFailed, StatusAborted, StatusExhaustedAttempts:
		return true
	}
	return false
}
