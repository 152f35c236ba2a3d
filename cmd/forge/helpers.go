package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strings"

	"github.com/forgeloop/forge/internal/buildplan"
	"github.com/forgeloop/forge/internal/domain"
	"github.com/forgeloop/forge/internal/terminal"
)

var errNoDescription = errors.New("a task description is required")

// exitCodeError is a wrapper type for returning exit codes via error interface.
type exitCodeError struct {
	code domain.ExitCode
}

func (e exitCodeError) Error() string {
	switch e.code {
	case domain.ExitBuildFailed:
		return "build still failing"
	case domain.ExitError:
		return "run failed with error"
	case domain.ExitInterrupted:
		return "run was interrupted"
	default:
		return fmt.Sprintf("exit code %d", e.code)
	}
}

func exitCode(code domain.ExitCode) error {
	if code == domain.ExitSuccess {
		return nil
	}
	return exitCodeError{code: code}
}

// readDescription returns the task description from the positional
// arguments or, when set, the prompt file. Exactly one source must be given.
func readDescription(args []string, file string) (string, error) {
	inline := strings.TrimSpace(strings.Join(args, " "))
	if file != "" {
		if inline != "" {
			return "", errors.New("pass the task description as arguments or --prompt-file, not both")
		}
		content, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt file %q: %w", file, err)
		}
		inline = strings.TrimSpace(string(content))
	}
	if inline == "" {
		return "", errNoDescription
	}
	return inline, nil
}

func joinComma(values []string) string {
	return strings.Join(values, ",")
}

// chooseLanguage asks for the language (and targets) on a terminal.
// Without one the generic build plan is used.
func chooseLanguage(opts *RunOpts, logger *terminal.Logger) error {
	if !opts.Interactive || !terminal.IsStdinTTY() || !terminal.IsStderrTTY() {
		logger.Log("No language set; using the generic build plan", terminal.StyleWarning)
		return nil
	}

	languages := buildplan.Languages()
	indices, canceled, err := terminal.RunSelector("Project language", languageOptions(languages), false)
	if err != nil {
		return err
	}
	if canceled || len(indices) == 0 {
		return errors.New("language selection canceled")
	}
	opts.Language = languages[indices[0]]

	if len(opts.TargetOS) > 0 {
		return nil
	}
	targets := buildplan.TargetOSNames
	indices, canceled, err = terminal.RunSelector("Target operating systems", targetOptions(targets), true, hostIndex(targets))
	if err != nil {
		return err
	}
	if canceled {
		return errors.New("target selection canceled")
	}
	for _, i := range indices {
		opts.TargetOS = append(opts.TargetOS, targets[i])
	}
	return nil
}

func languageOptions(languages []string) []terminal.Option {
	options := make([]terminal.Option, len(languages))
	for i, lang := range languages {
		plan := buildplan.New(lang, "", buildplan.Config{})
		options[i] = terminal.Option{Label: lang, Detail: plan.Description}
	}
	return options
}

func targetOptions(targets []string) []terminal.Option {
	options := make([]terminal.Option, len(targets))
	for i, t := range targets {
		options[i] = terminal.Option{Label: t}
		if t == runtime.GOOS {
			options[i].Detail = "host"
		}
	}
	return options
}

func hostIndex(targets []string) int {
	if i := slices.Index(targets, runtime.GOOS); i >= 0 {
		return i
	}
	return 0
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
