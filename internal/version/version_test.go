package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func TestInfoString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"dev build", Info{Version: "dev", GitCommit: unknown, BuildDate: unknown}, "dev"},
		{"release", Info{Version: "v1.2.0", GitCommit: "0123456789abcdef", BuildDate: "2026-01-02"}, "v1.2.0 (0123456, built 2026-01-02)"},
		{"short commit", Info{Version: "v1.2.0", GitCommit: "abc", BuildDate: "2026-01-02"}, "v1.2.0 (abc, built 2026-01-02)"},
		{"local changes", Info{Version: "dev", GitCommit: "0123456789abcdef", BuildDate: "2026-01-02T10:00:00Z", Modified: true}, "dev (0123456-dirty, built 2026-01-02T10:00:00Z)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/smazurov/videoloop", Version: "v0.3.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "fedcba9876543210"},
			{Key: "vcs.time", Value: "2026-03-04T05:06:07Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	var fromVCS Info
	fromBuildInfo(&fromVCS, bi)
	if fromVCS.Version != "v0.3.1" || fromVCS.GitCommit != "fedcba9876543210" ||
		fromVCS.BuildDate != "2026-03-04T05:06:07Z" || !fromVCS.Modified {
		t.Errorf("from build info = %+v", fromVCS)
	}

	ldflags := Info{Version: "v1.0.0", GitCommit: "0123456", BuildDate: "2026-01-02"}
	fromBuildInfo(&ldflags, bi)
	if ldflags.Version != "v1.0.0" || ldflags.GitCommit != "0123456" || ldflags.BuildDate != "2026-01-02" || ldflags.Modified {
		t.Errorf("ldflags values must win: %+v", ldflags)
	}

	var devel Info
	fromBuildInfo(&devel, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	if devel.Version != "" {
		t.Errorf("(devel) should not be used as a version, got %q", devel.Version)
	}
}

func TestGet(t *testing.T) {
	info := Get()
	if info.Version == "" || info.GitCommit == "" || info.BuildDate == "" {
		t.Errorf("Get() left fields empty: %+v", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if !strings.HasPrefix(info.Platform, runtime.GOOS+"/") {
		t.Errorf("Platform = %q, want it to start with %q", info.Platform, runtime.GOOS)
	}
}
