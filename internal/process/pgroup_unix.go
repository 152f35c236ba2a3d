//go:build unix

package process

import (
	"os/exec"
	"syscall"
)

// SetProcessGroup places the command in its own process group and makes
// context cancellation kill the entire group, so no orphaned children
// (compilers, test binaries, agent tool calls) outlive the run.
func SetProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		// Negative PID targets the group. The process may already be gone.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}

// killGroup kills whatever is left of the command's process group after the
// command itself has been reaped.
func killGroup(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
