package agent

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// Flags of the agent CLI invocation protocol.
const (
	flagPrompt        = "-p"
	flagAllowAllTools = "--allow-all-tools"
	flagAddDir        = "--add-dir"
	flagModel         = "--model"
)

// windowsShell is the command interpreter prefix used on Windows hosts.
var windowsShell = []string{"cmd.exe", "/c"}

// BuildArgs constructs the full argument vector for one agent invocation:
//
//	<binary> -p <prompt> --allow-all-tools --add-dir <workdir> [--add-dir <parent>] --model <model>
//
// The working directory is made absolute. On Windows hosts the vector is
// prefixed with "cmd.exe /c".
func BuildArgs(cfg Config, prompt string) ([]string, error) {
	if cfg.WorkDir == "" {
		return nil, errors.New("agent working directory is required")
	}
	workDir, err := filepath.Abs(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	binary := cfg.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	var args []string
	if hostOS(cfg) == "windows" {
		args = append(args, windowsShell...)
	}
	args = append(args, binary, flagPrompt, prompt, flagAllowAllTools, flagAddDir, workDir)
	if cfg.AllowParentDir {
		if parent := filepath.Dir(workDir); parent != workDir {
			args = append(args, flagAddDir, parent)
		}
	}
	args = append(args, flagModel, model)
	return args, nil
}

func hostOS(cfg Config) string {
	if cfg.HostOS != "" {
		return cfg.HostOS
	}
	return runtime.GOOS
}
