package agent

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/forgeloop/forge/internal/process"
)

// DefaultProbeTimeout bounds the version probe. Unlike agent runs, bootstrap
// checks never wait indefinitely.
const DefaultProbeTimeout = 30 * time.Second

// IsAvailable checks if the agent CLI is installed and accessible.
func IsAvailable(binary string) error {
	if _, err := exec.LookPath(binary); err != nil {
		return fmt.Errorf("%s CLI not found in PATH: %w", binary, err)
	}
	return nil
}

// Probe runs "<binary> --version" and returns the first line of its output.
// The process group is killed if it does not finish within timeout
// (DefaultProbeTimeout when timeout <= 0).
func Probe(ctx context.Context, executor *process.Executor, binary string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	if executor == nil {
		executor = process.NewExecutor()
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := executor.Run(probeCtx, process.Command{Args: []string{binary, "--version"}}, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("%s --version did not respond within %s", binary, timeout)
		}
		return "", err
	}
	if !result.Success() {
		return "", fmt.Errorf("%s --version exited with code %d: %s",
			binary, result.ExitCode, strings.TrimSpace(result.Merged()))
	}

	version, _, _ := strings.Cut(strings.TrimSpace(result.Stdout), "\n")
	return strings.TrimSpace(version), nil
}
