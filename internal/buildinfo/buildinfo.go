// Package buildinfo provides build-time information about the coreversion
// binary itself (not the project it stamps).  These variables are
// injected at build time via -ldflags.
package buildinfo

import "fmt"

var (
	// Version is the coreversion release (e.g. "v0.1.0" or "dev").
	// Set via: -ldflags "-X github.com/terrpan/coreversion/internal/buildinfo.Version=<value>"
	Version = "dev"

	// Commit is the git commit hash coreversion was built from.
	// Set via: -ldflags "-X github.com/terrpan/coreversion/internal/buildinfo.Commit=<value>"
	Commit = "unknown"

	// BuildTime is the build timestamp (e.g. "2026-02-19T12:34:56Z").
	// Set via: -ldflags "-X github.com/terrpan/coreversion/internal/buildinfo.BuildTime=<value>"
	BuildTime = "unknown"
)

// String formats the build information for --version output.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime)
}
