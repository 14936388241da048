package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/MrSnakeDoc/opportunities/internal/version.Version=v0.1.0 ...".
var (
	Version   = "dev"             // ex: v0.1.0
	Commit    = ""                // ex: abcd123, empty = read from build info
	BuildDate = ""                // ex: 2025-08-11T18:42:00Z, empty = read from build info
	GoVersion = runtime.Version() // go version
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && Commit == "":
			Commit = s.Value
		case s.Key == "vcs.time" && BuildDate == "":
			BuildDate = s.Value
		}
	}
	if len(Commit) > 7 {
		Commit = Commit[:7]
	}
}

// String is the one-line build description printed by --version.
func String() string {
	commit, built := Commit, BuildDate
	if commit == "" {
		commit = "none"
	}
	if built == "" {
		built = "unknown"
	}
	return fmt.Sprintf("%s (commit=%s, built=%s, go=%s)", Version, commit, built, GoVersion)
}
