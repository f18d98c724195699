// SPDX-License-Identifier: MIT
//
// Package build carries application metadata (name, version, commit,
// build time) embedded at compile time via -ldflags. Development builds
// without ldflags fall back to "dev" defaults.
package build

// Populated by -ldflags at compile time, e.g.
//
//	-X spectrum/pkg/build.buildVersion=v1.2.0
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

type Flags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

var flags = Flags{
	Name:    "spectrum",
	Time:    "unknown",
	Commit:  "unknown",
	Version: "dev",
}

// Initialize copies any ldflags-provided values over the development
// defaults. Safe to call more than once.
func Initialize() {
	if buildName != "" {
		flags.Name = buildName
	}
	if buildTime != "" {
		flags.Time = buildTime
	}
	if buildCommit != "" {
		flags.Commit = buildCommit
	}
	if buildVersion != "" {
		flags.Version = buildVersion
	}
}

// GetFlags returns the current build information.
func GetFlags() Flags {
	return flags
}
