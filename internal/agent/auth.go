package agent

import (
	"path/filepath"
	"strings"
)

// authOutputPatterns contains substrings that indicate an authentication
// failure when found in agent output (checked case-insensitively).
var authOutputPatterns = []string{
	"not logged in",
	"please log in",
	"please login",
	"login required",
	"authentication required",
	"unauthorized",
	"http 401",
	"status 401",
	"invalid credentials",
	"no authentication information found",
}

// authHints maps agent CLI names to actionable messages shown on auth failure.
var authHints = map[string]string{
	"copilot": "Run 'copilot' and use the /login command, or set GH_TOKEN with Copilot access.",
	"claude":  "Run 'claude login' or check your API key configuration.",
	"codex":   "Set OPENAI_API_KEY or run 'codex auth' to authenticate.",
	"gemini":  "Set GEMINI_API_KEY or run 'gemini auth login' to authenticate.",
}

// IsAuthFailure returns true if the exit code and output of an agent run
// indicate that the agent needs the user to authenticate. Exit code 0 is
// never considered an auth failure.
func IsAuthFailure(exitCode int, output string) bool {
	if exitCode == 0 {
		return false
	}

	lower := strings.ToLower(output)
	for _, pattern := range authOutputPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// AuthHint returns an actionable error message for the given agent binary.
// Returns a generic hint for unknown agents.
func AuthHint(binary string) string {
	name := strings.TrimSuffix(filepath.Base(binary), filepath.Ext(binary))
	if hint, ok := authHints[name]; ok {
		return hint
	}
	return "Check your authentication configuration for " + name + "."
}
