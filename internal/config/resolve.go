package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/forgeloop/forge/internal/agent"
	"github.com/forgeloop/forge/internal/fixloop"
)

// Environment variables read by LoadEnvState.
const (
	EnvAgent          = "FORGE_AGENT_BIN"
	EnvModel          = "FORGE_MODEL"
	EnvLanguage       = "FORGE_LANGUAGE"
	EnvStyle          = "FORGE_STYLE"
	EnvTargetOS       = "FORGE_TARGET_OS"
	EnvMaxFixAttempts = "FORGE_MAX_FIX_ATTEMPTS"
	EnvAgentTimeout   = "FORGE_AGENT_TIMEOUT"
	EnvInteractive    = "FORGE_INTERACTIVE"
	EnvGuidance       = "FORGE_GUIDANCE"
	EnvGuidanceFile   = "FORGE_GUIDANCE_FILE"
)

// Defaults holds the built-in default values.
var Defaults = ResolvedConfig{
	Agent:          agent.DefaultBinary,
	Model:          agent.DefaultModel,
	MaxFixAttempts: fixloop.MaxFixAttempts,
	AgentTimeout:   0, // wait for the agent indefinitely
	Interactive:    true,
}

// ResolvedConfig holds the final resolved configuration values.
type ResolvedConfig struct {
	Agent          string
	Model          string
	Language       string
	Style          string
	TargetOS       []string
	MaxFixAttempts int
	AgentTimeout   time.Duration
	AllowParentDir bool
	InlinePrompt   bool
	Interactive    bool
	GuidanceFile   string
	MetricsFile    string
	Trace          bool
}

// Validate checks the resolved values, including those that came from
// flags or the environment.
func (r ResolvedConfig) Validate() error {
	if strings.TrimSpace(r.Agent) == "" {
		return errors.New("agent must not be empty")
	}
	if err := validateAttempts(r.MaxFixAttempts); err != nil {
		return err
	}
	if r.AgentTimeout < 0 {
		return fmt.Errorf("agent_timeout must be >= 0, got %s", r.AgentTimeout)
	}
	return validateTargets(r.TargetOS)
}

// YAML renders the resolved values in config file form.
func (r ResolvedConfig) YAML() ([]byte, error) {
	view := struct {
		Agent          string   `yaml:"agent"`
		Model          string   `yaml:"model"`
		Language       string   `yaml:"language"`
		Style          string   `yaml:"style"`
		TargetOS       []string `yaml:"target_os"`
		MaxFixAttempts int      `yaml:"max_fix_attempts"`
		AgentTimeout   string   `yaml:"agent_timeout"`
		AllowParentDir bool     `yaml:"allow_parent_dir"`
		InlinePrompt   bool     `yaml:"inline_prompt"`
		Interactive    bool     `yaml:"interactive"`
		GuidanceFile   string   `yaml:"guidance_file,omitempty"`
		Telemetry      struct {
			MetricsFile string `yaml:"metrics_file,omitempty"`
			Trace       bool   `yaml:"trace"`
		} `yaml:"telemetry"`
	}{
		Agent:          r.Agent,
		Model:          r.Model,
		Language:       r.Language,
		Style:          r.Style,
		TargetOS:       r.TargetOS,
		MaxFixAttempts: r.MaxFixAttempts,
		AgentTimeout:   r.AgentTimeout.String(),
		AllowParentDir: r.AllowParentDir,
		InlinePrompt:   r.InlinePrompt,
		Interactive:    r.Interactive,
		GuidanceFile:   r.GuidanceFile,
	}
	view.Telemetry.MetricsFile = r.MetricsFile
	view.Telemetry.Trace = r.Trace
	return yaml.Marshal(view)
}

// FlagState tracks whether a flag was explicitly set.
type FlagState struct {
	AgentSet          bool
	ModelSet          bool
	LanguageSet       bool
	StyleSet          bool
	TargetOSSet       bool
	MaxFixAttemptsSet bool
	AgentTimeoutSet   bool
	AllowParentDirSet bool
	InlinePromptSet   bool
	InteractiveSet    bool
	GuidanceFileSet   bool
	MetricsFileSet    bool
	TraceSet          bool
}

// EnvState captures env var values and whether they were set.
type EnvState struct {
	Agent             string
	AgentSet          bool
	Model             string
	ModelSet          bool
	Language          string
	LanguageSet       bool
	Style             string
	StyleSet          bool
	TargetOS          []string
	TargetOSSet       bool
	MaxFixAttempts    int
	MaxFixAttemptsSet bool
	AgentTimeout      time.Duration
	AgentTimeoutSet   bool
	Interactive       bool
	InteractiveSet    bool
	Guidance          string
	GuidanceSet       bool
	GuidanceFile      string
	GuidanceFileSet   bool
}

// LoadEnvState reads environment variables and returns their state.
// Values that fail to parse are ignored.
func LoadEnvState() EnvState {
	var state EnvState

	if v := os.Getenv(EnvAgent); v != "" {
		state.Agent = v
		state.AgentSet = true
	}
	if v := os.Getenv(EnvModel); v != "" {
		state.Model = v
		state.ModelSet = true
	}
	if v := os.Getenv(EnvLanguage); v != "" {
		state.Language = v
		state.LanguageSet = true
	}
	if v := os.Getenv(EnvStyle); v != "" {
		state.Style = v
		state.StyleSet = true
	}
	if v := os.Getenv(EnvTargetOS); v != "" {
		state.TargetOS = ParseTargets(v)
		state.TargetOSSet = true
	}
	if v := os.Getenv(EnvMaxFixAttempts); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			state.MaxFixAttempts = i
			state.MaxFixAttemptsSet = true
		}
	}
	if v := os.Getenv(EnvAgentTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			state.AgentTimeout = d
			state.AgentTimeoutSet = true
		} else if secs, err := strconv.Atoi(v); err == nil {
			state.AgentTimeout = time.Duration(secs) * time.Second
			state.AgentTimeoutSet = true
		}
	}
	if v := os.Getenv(EnvInteractive); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			state.Interactive = b
			state.InteractiveSet = true
		}
	}
	if v := os.Getenv(EnvGuidance); v != "" {
		state.Guidance = v
		state.GuidanceSet = true
	}
	if v := os.Getenv(EnvGuidanceFile); v != "" {
		state.GuidanceFile = v
		state.GuidanceFileSet = true
	}

	return state
}

// Resolve merges config file values with env vars and flags.
// Precedence: flags > env vars > config file > defaults
func Resolve(cfg *Config, envState EnvState, flagState FlagState, flagValues ResolvedConfig) ResolvedConfig {
	result := Defaults

	// Apply config file values (if set)
	if cfg != nil {
		if cfg.Agent != nil {
			result.Agent = *cfg.Agent
		}
		if cfg.Model != nil {
			result.Model = *cfg.Model
		}
		if cfg.Language != nil {
			result.Language = *cfg.Language
		}
		if cfg.Style != nil {
			result.Style = *cfg.Style
		}
		if len(cfg.TargetOS) > 0 {
			result.TargetOS = cfg.TargetOS
		}
		if cfg.MaxFixAttempts != nil {
			result.MaxFixAttempts = *cfg.MaxFixAttempts
		}
		if cfg.AgentTimeout != nil {
			result.AgentTimeout = cfg.AgentTimeout.AsDuration()
		}
		if cfg.AllowParentDir != nil {
			result.AllowParentDir = *cfg.AllowParentDir
		}
		if cfg.InlinePrompt != nil {
			result.InlinePrompt = *cfg.InlinePrompt
		}
		if cfg.Interactive != nil {
			result.Interactive = *cfg.Interactive
		}
		if cfg.GuidanceFile != nil {
			result.GuidanceFile = *cfg.GuidanceFile
		}
		if cfg.Telemetry.MetricsFile != nil {
			result.MetricsFile = *cfg.Telemetry.MetricsFile
		}
		if cfg.Telemetry.Trace != nil {
			result.Trace = *cfg.Telemetry.Trace
		}
	}

	// Apply env var values (if set)
	if envState.AgentSet {
		result.Agent = envState.Agent
	}
	if envState.ModelSet {
		result.Model = envState.Model
	}
	if envState.LanguageSet {
		result.Language = envState.Language
	}
	if envState.StyleSet {
		result.Style = envState.Style
	}
	if envState.TargetOSSet {
		result.TargetOS = envState.TargetOS
	}
	if envState.MaxFixAttemptsSet {
		result.MaxFixAttempts = envState.MaxFixAttempts
	}
	if envState.AgentTimeoutSet {
		result.AgentTimeout = envState.AgentTimeout
	}
	if envState.InteractiveSet {
		result.Interactive = envState.Interactive
	}
	if envState.GuidanceFileSet {
		result.GuidanceFile = envState.GuidanceFile
	}

	// Apply flag values (if explicitly set)
	if flagState.AgentSet {
		result.Agent = flagValues.Agent
	}
	if flagState.ModelSet {
		result.Model = flagValues.Model
	}
	if flagState.LanguageSet {
		result.Language = flagValues.Language
	}
	if flagState.StyleSet {
		result.Style = flagValues.Style
	}
	if flagState.TargetOSSet {
		result.TargetOS = flagValues.TargetOS
	}
	if flagState.MaxFixAttemptsSet {
		result.MaxFixAttempts = flagValues.MaxFixAttempts
	}
	if flagState.AgentTimeoutSet {
		result.AgentTimeout = flagValues.AgentTimeout
	}
	if flagState.AllowParentDirSet {
		result.AllowParentDir = flagValues.AllowParentDir
	}
	if flagState.InlinePromptSet {
		result.InlinePrompt = flagValues.InlinePrompt
	}
	if flagState.InteractiveSet {
		result.Interactive = flagValues.Interactive
	}
	if flagState.GuidanceFileSet {
		result.GuidanceFile = flagValues.GuidanceFile
	}
	if flagState.MetricsFileSet {
		result.MetricsFile = flagValues.MetricsFile
	}
	if flagState.TraceSet {
		result.Trace = flagValues.Trace
	}

	return result
}

// ResolveGuidance resolves the guidance text that opens every prompt.
// Inline guidance and guidance files are checked per source.
//
// Precedence (highest to lowest):
// 1. --guidance-file flag
// 2. FORGE_GUIDANCE env var
// 3. FORGE_GUIDANCE_FILE env var
// 4. guidance config field
// 5. guidance_file config field
//
// An empty result means the built-in guidance applies.
func ResolveGuidance(cfg *Config, envState EnvState, flagState FlagState, flagValues ResolvedConfig) (string, error) {
	if flagState.GuidanceFileSet && flagValues.GuidanceFile != "" {
		return readGuidanceFile(flagValues.GuidanceFile)
	}
	if envState.GuidanceSet && envState.Guidance != "" {
		return envState.Guidance, nil
	}
	if envState.GuidanceFileSet && envState.GuidanceFile != "" {
		return readGuidanceFile(envState.GuidanceFile)
	}
	if cfg != nil && cfg.Guidance != nil && *cfg.Guidance != "" {
		return *cfg.Guidance, nil
	}
	if cfg != nil && cfg.GuidanceFile != nil && *cfg.GuidanceFile != "" {
		return readGuidanceFile(*cfg.GuidanceFile)
	}
	return "", nil
}

func readGuidanceFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read guidance file %q: %w", path, err)
	}
	return string(content), nil
}

// Template is the starter file written by "forge config init".
const Template = `# forge configuration
# Precedence: flags > FORGE_* environment variables > this file > defaults.

# Agent CLI binary and model identifier.
agent: copilot
model: gpt-5

# Project language and style (cli, library, web, desktop, gradle, maven, cmake, make).
# language: go
# style: cli

# Operating systems the project must build for. Targets that differ from the
# host are built through a compatibility shim (wine for windows).
# target_os: [linux]

# Fix attempts after the initial build fails (1-10).
max_fix_attempts: 10

# Per-invocation agent timeout. 0 waits indefinitely.
agent_timeout: 0

# Grant the agent access to the parent of the working directory.
allow_parent_dir: false

# Pass small prompts on the command line instead of prompt.txt.
inline_prompt: false

# Relay terminal input to the agent while it runs.
interactive: true

# Replace the built-in prompt guidance.
# guidance_file: guidance.md

telemetry:
  # metrics_file: forge.prom
  trace: false
`
