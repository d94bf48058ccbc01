// Package version reports build metadata for --version, the status API and
// the build info metric.
package version

import (
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/smazurov/videoloop/internal/version.Version=v1.0.0".
// Empty values fall back to the module and VCS data the Go toolchain embeds.
var (
	Version   string
	GitCommit string
	BuildDate string
)

const unknown = "unknown"

// Info contains version and build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	Modified  bool   `json:"modified"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns version and build information.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fromBuildInfo(&info, bi)
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.GitCommit == "" {
		info.GitCommit = unknown
	}
	if info.BuildDate == "" {
		info.BuildDate = unknown
	}
	return info
}

// fromBuildInfo fills the fields ldflags left empty.
func fromBuildInfo(info *Info, bi *debug.BuildInfo) {
	if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	ldflagsCommit := info.GitCommit != ""
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if !ldflagsCommit {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			if info.BuildDate == "" {
				info.BuildDate = s.Value
			}
		case "vcs.modified":
			info.Modified = !ldflagsCommit && s.Value == "true"
		}
	}
}

// String returns the one-line version banner used by --version.
func String() string {
	return Get().String()
}

// String formats info as "v1.2.0 (0123456-dirty, built 2026-01-02)", or just
// the version when the commit is unknown.
func (i Info) String() string {
	if i.GitCommit == unknown {
		return i.Version
	}
	commit := i.GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	if i.Modified {
		commit += "-dirty"
	}
	return i.Version + " (" + commit + ", built " + i.BuildDate + ")"
}
