package agent

import (
	"os"
	"strconv"
	"time"
)

const (
	// DefaultBinary is the agent CLI invoked when none is configured.
	DefaultBinary = "copilot"

	// DefaultModel is the model identifier passed with --model when none is configured.
	DefaultModel = "gpt-5"

	// SkipEnvVar is the process-wide switch that makes RunBatch return a
	// synthetic success without spawning the agent.
	SkipEnvVar = "FORGE_SKIP_AGENT"
)

// Config contains the settings for invoking the agent CLI.
type Config struct {
	// Binary is the agent executable name or path.
	Binary string

	// Model is the model identifier passed with --model.
	Model string

	// WorkDir is the project directory. The agent runs there and is granted
	// access to it with --add-dir.
	WorkDir string

	// AllowParentDir also grants access to the parent of WorkDir.
	AllowParentDir bool

	// HostOS is the operating system the agent runs on (runtime.GOOS when empty).
	// On windows the command is routed through cmd.exe so PATH lookup of
	// script shims works.
	HostOS string

	// SkipExecution disables spawning for RunBatch; see SkipEnvVar.
	SkipExecution bool

	// Timeout bounds each invocation. Zero means wait indefinitely.
	Timeout time.Duration
}

// SkipFromEnv reports whether SkipEnvVar is set to a true value.
func SkipFromEnv() bool {
	v, err := strconv.ParseBool(os.Getenv(SkipEnvVar))
	return err == nil && v
}
