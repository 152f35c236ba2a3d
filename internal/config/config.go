// Package config provides configuration file support for forge.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/forgeloop/forge/internal/buildplan"
	"github.com/forgeloop/forge/internal/fixloop"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = ".forge.yaml"

// Duration is a custom type that handles YAML duration parsing.
// Supports both Go duration format ("5m", "300s") and numeric seconds.
type Duration time.Duration

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(time.Duration(v) * time.Second)
	case float64:
		*d = Duration(time.Duration(v * float64(time.Second)))
	default:
		return fmt.Errorf("invalid duration type: %T", v)
	}
	return nil
}

// AsDuration returns the underlying time.Duration.
func (d Duration) AsDuration() time.Duration {
	return time.Duration(d)
}

// Config represents the forge configuration file.
type Config struct {
	Agent          *string         `yaml:"agent"`
	Model          *string         `yaml:"model"`
	Language       *string         `yaml:"language"`
	Style          *string         `yaml:"style"`
	TargetOS       []string        `yaml:"target_os"`
	MaxFixAttempts *int            `yaml:"max_fix_attempts"`
	AgentTimeout   *Duration       `yaml:"agent_timeout"`
	AllowParentDir *bool           `yaml:"allow_parent_dir"`
	InlinePrompt   *bool           `yaml:"inline_prompt"`
	Interactive    *bool           `yaml:"interactive"`
	Guidance       *string         `yaml:"guidance"`
	GuidanceFile   *string         `yaml:"guidance_file"`
	Telemetry      TelemetryConfig `yaml:"telemetry"`
}

// TelemetryConfig holds metrics and tracing settings.
type TelemetryConfig struct {
	MetricsFile *string `yaml:"metrics_file"`
	Trace       *bool   `yaml:"trace"`
}

// LoadResult contains the loaded config and any warnings encountered.
type LoadResult struct {
	Config   *Config
	Warnings []string
}

// LoadFromDir reads .forge.yaml from dir, discarding warnings.
func LoadFromDir(dir string) (*Config, error) {
	result, err := LoadFromDirWithWarnings(dir)
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// LoadFromPath reads the config file at path, discarding warnings.
func LoadFromPath(path string) (*Config, error) {
	result, err := LoadFromPathWithWarnings(path)
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// LoadFromDirWithWarnings reads .forge.yaml from the specified directory and returns warnings.
// Returns an empty config (not error) if the file doesn't exist.
func LoadFromDirWithWarnings(dir string) (*LoadResult, error) {
	return LoadFromPathWithWarnings(filepath.Join(dir, ConfigFileName))
}

// LoadFromPathWithWarnings reads a config file and returns warnings for unknown keys.
// Returns an empty config (not error) if the file doesn't exist.
// Returns an error if the file exists but is invalid YAML or holds invalid values.
func LoadFromPathWithWarnings(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &LoadResult{Config: &Config{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	warnings := checkUnknownKeys(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ConfigFileName, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", ConfigFileName, err)
	}

	return &LoadResult{Config: &cfg, Warnings: warnings}, nil
}

// knownTopLevelKeys are the valid top-level keys in the config file.
var knownTopLevelKeys = []string{
	"agent", "model", "language", "style", "target_os", "max_fix_attempts",
	"agent_timeout", "allow_parent_dir", "inline_prompt", "interactive",
	"guidance", "guidance_file", "telemetry",
}

// knownTelemetryKeys are the valid keys under the "telemetry" section.
var knownTelemetryKeys = []string{"metrics_file", "trace"}

// checkUnknownKeys checks for unknown keys in the YAML data and returns warnings.
func checkUnknownKeys(data []byte) []string {
	var warnings []string

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		// If we can't parse, let the main parser handle the error
		return nil
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		if !slices.Contains(knownTopLevelKeys, key) {
			warning := fmt.Sprintf("unknown key %q in %s", key, ConfigFileName)
			if suggestion := findSimilar(key, knownTopLevelKeys); suggestion != "" {
				warning += fmt.Sprintf(" (did you mean %q?)", suggestion)
			}
			warnings = append(warnings, warning)
		}
	}

	if section, ok := raw["telemetry"].(map[string]any); ok {
		sub := make([]string, 0, len(section))
		for key := range section {
			sub = append(sub, key)
		}
		slices.Sort(sub)
		for _, key := range sub {
			if !slices.Contains(knownTelemetryKeys, key) {
				warning := fmt.Sprintf("unknown key %q in telemetry section of %s", key, ConfigFileName)
				if suggestion := findSimilar(key, knownTelemetryKeys); suggestion != "" {
					warning += fmt.Sprintf(" (did you mean %q?)", suggestion)
				}
				warnings = append(warnings, warning)
			}
		}
	}

	return warnings
}

// findSimilar finds the most similar string from candidates using Levenshtein distance.
// Returns empty string if no candidate is similar enough (threshold: 3 edits).
func findSimilar(input string, candidates []string) string {
	const maxDistance = 3
	bestMatch := ""
	bestDistance := maxDistance + 1

	for _, candidate := range candidates {
		dist := levenshtein(input, candidate)
		if dist < bestDistance {
			bestDistance = dist
			bestMatch = candidate
		}
	}

	if bestDistance <= maxDistance {
		return bestMatch
	}
	return ""
}

// levenshtein calculates the Levenshtein distance between two strings.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// Validate checks that all config values are valid.
func (c *Config) Validate() error {
	if c.Agent != nil && strings.TrimSpace(*c.Agent) == "" {
		return errors.New("agent must not be empty")
	}
	if c.MaxFixAttempts != nil {
		if err := validateAttempts(*c.MaxFixAttempts); err != nil {
			return err
		}
	}
	if c.AgentTimeout != nil && *c.AgentTimeout < 0 {
		return fmt.Errorf("agent_timeout must be >= 0, got %s", c.AgentTimeout.AsDuration())
	}
	return validateTargets(c.TargetOS)
}

func validateAttempts(n int) error {
	if n < 1 || n > fixloop.MaxFixAttempts {
		return fmt.Errorf("max_fix_attempts must be between 1 and %d, got %d", fixloop.MaxFixAttempts, n)
	}
	return nil
}

func validateTargets(targets []string) error {
	for _, t := range targets {
		if !buildplan.KnownTarget(t) {
			return fmt.Errorf("target_os must be one of %v, got %q", buildplan.TargetOSNames, t)
		}
	}
	return nil
}

// ParseTargets splits a comma-separated target OS list, dropping empty
// entries and lowercasing names.
func ParseTargets(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
