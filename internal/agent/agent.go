package agent

import (
	"context"
	"io"

	"github.com/forgeloop/forge/internal/domain"
)

// Handle is the caller's view of one agent invocation.
// Implementations include *Session (interactive) and the finished handle
// returned by BatchRunner.
type Handle interface {
	// Stdin returns the writer connected to the agent's standard input.
	// It is valid only while the process is alive; closing it signals end of
	// input without terminating the process.
	Stdin() io.WriteCloser

	// Wait blocks until all output has been delivered and the process has exited.
	Wait() (domain.ProcessResult, error)
}

// Runner starts agent invocations for the fix loop.
type Runner interface {
	// Start launches the agent with prompt and streams its output to onLine.
	// A launch failure is returned as a *process.LaunchError.
	Start(ctx context.Context, prompt string, onLine func(string)) (Handle, error)
}

// Compile-time interface checks
var (
	_ Handle = (*Session)(nil)
	_ Runner = (*InteractiveRunner)(nil)
	_ Runner = (*BatchRunner)(nil)
)
