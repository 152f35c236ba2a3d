package buildplan

import (
	"maps"
	"slices"
	"strings"
)

// shim runs a host-native toolchain through a compatibility layer.
type shim struct {
	name   string
	prefix []string
	env    map[string]string
	// exeSuffix is appended to the tool name inside the shim.
	exeSuffix string
}

// shims is keyed by target OS.
var shims = map[string]shim{
	"windows": {
		name:      "wine",
		prefix:    []string{"wine"},
		env:       map[string]string{WineDebugEnv: "-all"},
		exeSuffix: ".exe",
	},
}

// shimFor returns the first shim needed to reach a target from host.
// Targets equal to host need none.
func shimFor(host string, targets []string) (shim, string, bool) {
	for _, t := range targets {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || t == host {
			continue
		}
		if s, ok := shims[t]; ok {
			return s, t, true
		}
	}
	return shim{}, "", false
}

// wrap prefixes every step and merges the shim environment.
func (s shim) wrap(steps []Command) []Command {
	out := make([]Command, len(steps))
	for i, step := range steps {
		args := make([]string, 0, len(s.prefix)+len(step.Args))
		args = append(args, s.prefix...)
		if len(step.Args) > 0 {
			args = append(args, step.Args[0]+s.exeSuffix)
			args = append(args, step.Args[1:]...)
		}

		env := make(map[string]string, len(step.Env)+len(s.env))
		maps.Copy(env, step.Env)
		maps.Copy(env, s.env)

		out[i] = Command{Args: args, Env: env}
	}
	return out
}

// TargetOSNames lists the operating systems a task may target.
var TargetOSNames = []string{"darwin", "freebsd", "linux", "windows"}

// KnownTarget reports whether name is one of TargetOSNames (case-insensitive).
func KnownTarget(name string) bool {
	return slices.Contains(TargetOSNames, strings.ToLower(strings.TrimSpace(name)))
}
