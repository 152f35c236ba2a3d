//go:build !unix

package process

import "os/exec"

// SetProcessGroup is a no-op on platforms without POSIX process groups;
// context cancellation falls back to killing the direct child.
func SetProcessGroup(cmd *exec.Cmd) {}

func killGroup(cmd *exec.Cmd) {}
