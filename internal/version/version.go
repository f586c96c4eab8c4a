// Package version reports the build identity of the horoscopo binary.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set via ldflags at build time. When they are left at their defaults the
// module build info fills them in where it can.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	fillFromBuildInfo(info)
}

func fillFromBuildInfo(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if GitCommit == "unknown" && s.Value != "" {
				GitCommit = s.Value
				if len(GitCommit) > 12 {
					GitCommit = GitCommit[:12]
				}
			}
		case "vcs.time":
			if BuildDate == "unknown" && s.Value != "" {
				BuildDate = s.Value
			}
		}
	}
}

// String is the one-line banner printed by `horoscopo version`.
func String() string {
	return fmt.Sprintf("horoscopo %s (commit: %s, built: %s)", Version, GitCommit, BuildDate)
}

// UserAgent is sent on every outbound provider and rewrite request.
func UserAgent() string {
	return "horoscopo/" + Version
}
