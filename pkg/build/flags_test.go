// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"runtime/debug"
	"strings"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origInfo    Info
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	origInfo = *buildInfo

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	*buildInfo = origInfo

	os.Exit(exitCode)
}

func noBuildInfo() (*debug.BuildInfo, bool) { return nil, false }

func TestInitialize(t *testing.T) {
	readBuildInfo = noBuildInfo
	t.Cleanup(func() { readBuildInfo = debug.ReadBuildInfo })

	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantErrMsg  string
		want        Info
	}{
		{
			"Missing BuildName",
			"",
			"2025-04-13",
			"abcdef123",
			"v1.0.0",
			"BuildName is required",
			Info{Name: "levels", Time: "2025-04-13", Commit: "abcdef123", Version: "v1.0.0"},
		},
		{
			"Missing BuildCommit",
			"levels",
			"2025-04-13",
			"",
			"v1.0.0",
			"BuildCommit is required",
			Info{Name: "levels", Time: "2025-04-13", Commit: "unknown", Version: "v1.0.0"},
		},
		{
			"Nothing stamped",
			"",
			"",
			"",
			"",
			"BuildVersion is required",
			Info{Name: "levels", Time: "unknown", Commit: "unknown", Version: "unknown"},
		},
		{
			"Success Case",
			"testapp",
			"2025-04-13",
			"abcdef123",
			"v1.0.0",
			"",
			Info{Name: "testapp", Time: "2025-04-13", Commit: "abcdef123", Version: "v1.0.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildInfo = defaultInfo()
			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()

			if tt.wantErrMsg != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErrMsg) {
					t.Errorf("Initialize() error = %v, want %v", err, tt.wantErrMsg)
				}
			} else if err != nil {
				t.Errorf("Initialize() unexpected error: %v", err)
			}

			tt.want.Description = defaultDescription
			if *buildInfo != tt.want {
				t.Errorf("build info = %+v, want %+v", *buildInfo, tt.want)
			}
		})
	}
}

func TestInitialize_ModuleVersionFallback(t *testing.T) {
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Path: "levels", Version: "v0.2.1"}}, true
	}
	t.Cleanup(func() { readBuildInfo = debug.ReadBuildInfo })

	buildInfo = defaultInfo()
	buildName, buildTime, buildCommit, buildVersion = "", "", "", ""

	if err := Initialize(); err == nil {
		t.Error("expected missing flags to be reported")
	}
	if buildInfo.Version != "v0.2.1" {
		t.Errorf("Version = %q, want module version", buildInfo.Version)
	}
}

func TestGetBuildFlags(t *testing.T) {
	expected := Info{
		Name:    "testapp",
		Time:    "2025-04-13",
		Commit:  "abcdef123",
		Version: "v1.0.0",
	}
	buildInfo = &expected

	flags := GetBuildFlags()
	if *flags != expected {
		t.Errorf("GetBuildFlags() = %+v, want %+v", flags, expected)
	}
	if got, want := flags.String(), "testapp v1.0.0 (commit abcdef123, built 2025-04-13)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
