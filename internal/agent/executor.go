package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/forgeloop/forge/internal/process"
)

// sessionOptions configures an interactive agent process.
type sessionOptions struct {
	// Args is the full argument vector from BuildArgs.
	Args []string
	// WorkDir sets the working directory for the process.
	WorkDir string
	// Timeout bounds the whole session. Zero means no limit.
	Timeout time.Duration
}

// startSession launches an agent process with stdin kept open and stdout and
// stderr merged into a single pipe read by a background goroutine.
//
// It handles:
//   - Setting a process group so cancellation kills the agent and its tools
//   - Creating the stdin pipe exposed through Session.Stdin
//   - Sharing one OS pipe for stdout and stderr so output keeps its order
//   - Starting the reader goroutine that frames output into lines
func startSession(ctx context.Context, opts sessionOptions, onLine func(string)) (*Session, error) {
	if len(opts.Args) == 0 {
		return nil, errors.New("agent command args required")
	}

	cancel := context.CancelFunc(func() {})
	if opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
	}

	// #nosec G204 - the argument vector is built by BuildArgs from configuration.
	cmd := exec.CommandContext(ctx, opts.Args[0], opts.Args[1:]...)
	cmd.Dir = opts.WorkDir
	cmd.WaitDelay = process.DefaultWaitDelay
	process.SetProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	outR, outW, err := os.Pipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create output pipe: %w", err)
	}
	cmd.Stdout = outW
	cmd.Stderr = outW

	if err := cmd.Start(); err != nil {
		_ = outR.Close()
		_ = outW.Close()
		ctxErr := ctx.Err()
		cancel()
		if ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &process.LaunchError{Command: opts.Args[0], Err: err}
	}

	// The child holds its own copy of the write end; closing ours lets the
	// reader see EOF once the agent and everything it spawned have exited.
	_ = outW.Close()

	s := newSession(ctx, cancel, cmd, stdin)
	s.startReader(outR, onLine)
	return s, nil
}
