// SPDX-License-Identifier: MIT
//
// Package build holds the version metadata stamped into the binary with
// -ldflags, for example:
//
//	go build -ldflags "-X levels/pkg/build.buildVersion=v0.3.0 ..."
//
// Development builds carry no flags; Initialize then reports what is missing
// and the module version from the Go build info is used where available.
package build

import (
	"errors"
	"fmt"
	"runtime/debug"
)

const (
	defaultName        = "levels"
	defaultDescription = "Live microphone loudness meter"
	unknown            = "unknown"
)

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String renders the version line shown by --version.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Package-level variables populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = defaultInfo()

	readBuildInfo = debug.ReadBuildInfo
)

func defaultInfo() *Info {
	return &Info{
		Name:        defaultName,
		Description: defaultDescription,
		Time:        unknown,
		Commit:      unknown,
		Version:     unknown,
	}
}

// Initialize copies the ldflags values into the build info. Values that were
// not stamped keep their defaults and are reported together in the returned
// error, which callers may treat as a warning.
func Initialize() error {
	var errs []error

	set := func(dst *string, val, flag string) {
		if val == "" {
			errs = append(errs, fmt.Errorf("%s is required", flag))
			return
		}
		*dst = val
	}
	set(&buildInfo.Name, buildName, "BuildName")
	set(&buildInfo.Time, buildTime, "BuildTime")
	set(&buildInfo.Commit, buildCommit, "BuildCommit")
	set(&buildInfo.Version, buildVersion, "BuildVersion")

	if buildInfo.Version == unknown {
		if bi, ok := readBuildInfo(); ok && bi.Main.Version != "" {
			buildInfo.Version = bi.Main.Version
		}
	}

	return errors.Join(errs...)
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *Info {
	return buildInfo
}
