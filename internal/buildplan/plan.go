package buildplan

import (
	"runtime"
	"slices"
	"strings"
)

// Command is one build step.
type Command struct {
	Args []string
	// Env holds variables added to the inherited environment.
	Env map[string]string
}

// String returns the command line joined by spaces.
func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

// Plan is an ordered list of build steps plus a human-readable description.
// Steps run in order and stop at the first failure.
type Plan struct {
	Description string
	Commands    []Command
}

// Config carries the target and host operating systems.
type Config struct {
	// TargetOS lists the operating systems the project must build for.
	// Empty means the host only.
	TargetOS []string
	// HostOS is the operating system running the build (runtime.GOOS when empty).
	HostOS string
}

// Style values understood by the planner. Other values are accepted and
// treated as StyleDefault.
const (
	StyleDefault = ""
	StyleCLI     = "cli"
	StyleLibrary = "library"
	StyleWeb     = "web"
	StyleDesktop = "desktop"
	StyleGradle  = "gradle"
	StyleMaven   = "maven"
	StyleCMake   = "cmake"
	StyleMake    = "make"
)

// WineDebugEnv silences wine's debug output.
const WineDebugEnv = "WINEDEBUG"

// recipe produces the native steps for one language.
type recipe struct {
	name       string
	steps      func(style string) []Command
	nativeOnly func(style string) bool // toolchain output runs on the host OS only
}

func cmd(args ...string) Command {
	return Command{Args: args}
}

var recipes = map[string]recipe{
	"go": {
		name: "Go",
		steps: func(string) []Command {
			return []Command{cmd("go", "build", "./..."), cmd("go", "test", "./...")}
		},
	},
	"rust": {
		name: "Rust",
		steps: func(string) []Command {
			return []Command{cmd("cargo", "build"), cmd("cargo", "test")}
		},
	},
	"csharp": {
		name: "C#",
		steps: func(style string) []Command {
			steps := []Command{
				cmd("dotnet", "restore"),
				cmd("dotnet", "build", "--no-restore"),
			}
			if style != StyleDesktop {
				steps = append(steps, cmd("dotnet", "test", "--no-build"))
			}
			return steps
		},
		nativeOnly: func(style string) bool { return style == StyleDesktop },
	},
	"java": {
		name: "Java",
		steps: func(style string) []Command {
			if style == StyleGradle {
				return []Command{cmd("gradle", "build")}
			}
			return []Command{cmd("mvn", "-B", "package")}
		},
	},
	"kotlin": {
		name: "Kotlin",
		steps: func(style string) []Command {
			if style == StyleMaven {
				return []Command{cmd("mvn", "-B", "package")}
			}
			return []Command{cmd("gradle", "build")}
		},
	},
	"python": {
		name: "Python",
		steps: func(string) []Command {
			return []Command{
				cmd("python3", "-m", "compileall", "-q", "."),
				cmd("python3", "-m", "unittest", "discover"),
			}
		},
	},
	"javascript": {
		name: "JavaScript",
		steps: func(string) []Command {
			return []Command{
				cmd("npm", "install"),
				cmd("npm", "run", "build", "--if-present"),
				cmd("npm", "test", "--if-present"),
			}
		},
	},
	"typescript": {
		name: "TypeScript",
		steps: func(string) []Command {
			return []Command{
				cmd("npm", "install"),
				cmd("npx", "tsc", "--noEmit"),
				cmd("npm", "test", "--if-present"),
			}
		},
	},
	"c": {
		name:  "C",
		steps: cFamilySteps,
	},
	"cpp": {
		name:  "C++",
		steps: cFamilySteps,
	},
}

// aliases maps alternative spellings to recipe keys.
var aliases = map[string]string{
	"golang":  "go",
	"c#":      "csharp",
	"cs":      "csharp",
	"dotnet":  "csharp",
	".net":    "csharp",
	"py":      "python",
	"python3": "python",
	"js":      "javascript",
	"node":    "javascript",
	"nodejs":  "javascript",
	"ts":      "typescript",
	"c++":     "cpp",
	"cxx":     "cpp",
	"kt":      "kotlin",
}

func cFamilySteps(style string) []Command {
	if style == StyleMake {
		return []Command{cmd("make")}
	}
	return []Command{
		cmd("cmake", "-S", ".", "-B", "build"),
		cmd("cmake", "--build", "build"),
	}
}

// normalize lowercases and resolves aliases.
func normalize(language string) string {
	key := strings.ToLower(strings.TrimSpace(language))
	if alias, ok := aliases[key]; ok {
		return alias
	}
	return key
}

// Languages returns the canonical language names with a dedicated recipe, sorted.
func Languages() []string {
	names := make([]string, 0, len(recipes))
	for k := range recipes {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Supported reports whether language has a dedicated recipe.
func Supported(language string) bool {
	_, ok := recipes[normalize(language)]
	return ok
}

// New computes the plan for language and style under cfg.
func New(language, style string, cfg Config) Plan {
	host := cfg.HostOS
	if host == "" {
		host = runtime.GOOS
	}
	style = strings.ToLower(strings.TrimSpace(style))

	r, ok := recipes[normalize(language)]
	if !ok {
		return genericPlan(language, host)
	}

	steps := r.steps(style)
	desc := r.name
	if style != StyleDefault {
		desc += " (" + style + ")"
	}

	if r.nativeOnly != nil && r.nativeOnly(style) {
		if shim, target, ok := shimFor(host, cfg.TargetOS); ok {
			steps = shim.wrap(steps)
			desc += " for " + target + " via " + shim.name
		}
	}

	return Plan{Description: desc + ": " + joinSteps(steps), Commands: steps}
}

// genericPlan is the best-effort fallback for unknown languages.
func genericPlan(language, host string) Plan {
	var c Command
	if host == "windows" {
		c = cmd("cmd", "/c", "if exist Makefile make")
	} else {
		c = cmd("sh", "-c", "if [ -f Makefile ]; then make; fi")
	}
	name := strings.TrimSpace(language)
	if name == "" {
		name = "unknown language"
	}
	return Plan{
		Description: name + " (generic): " + c.String(),
		Commands:    []Command{c},
	}
}

func joinSteps(steps []Command) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = s.String()
	}
	return strings.Join(parts, " && ")
}
