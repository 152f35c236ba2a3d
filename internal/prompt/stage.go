package prompt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the file prompts are staged into inside the working directory.
const FileName = "prompt.txt"

// StagedInstruction is passed to the agent in place of a staged prompt.
const StagedInstruction = "Process the instructions in prompt.txt and execute them."

// RefFileSizeThreshold is the prompt size (in bytes) above which a prompt is
// always staged, even in inline mode. This stays well below ARG_MAX (~128KB on macOS).
const RefFileSizeThreshold = 100 * 1024

// Stage prepares text for delivery to the agent and returns the argument to
// pass with -p. When inline is set and text is below RefFileSizeThreshold the
// text itself is returned and nothing is written. Otherwise text is written
// to FileName in dir and StagedInstruction is returned.
func Stage(dir, text string, inline bool) (string, error) {
	if inline && len(text) <= RefFileSizeThreshold {
		return text, nil
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(text), 0600); err != nil {
		return "", fmt.Errorf("failed to stage prompt: %w", err)
	}
	return StagedInstruction, nil
}

// Cleanup removes the staged prompt from dir. A missing file is not an error.
func Cleanup(dir string) error {
	err := os.Remove(filepath.Join(dir, FileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove staged prompt: %w", err)
	}
	return nil
}
