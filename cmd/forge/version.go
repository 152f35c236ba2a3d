package main

import (
	"fmt"
	"runtime/debug"
)

// Set via -ldflags "-X main.version=... -X main.commit=...".
var (
	version = ""
	commit  = ""
)

func buildVersionString() string {
	v, c := version, commit
	if info, ok := debug.ReadBuildInfo(); ok {
		if v == "" && info.Main.Version != "" {
			v = info.Main.Version
		}
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && c == "" {
				c = s.Value
			}
		}
	}
	if v == "" {
		v = "dev"
	}
	if len(c) > 12 {
		c = c[:12]
	}
	if c == "" {
		return "forge " + v
	}
	return fmt.Sprintf("forge %s (%s)", v, c)
}
