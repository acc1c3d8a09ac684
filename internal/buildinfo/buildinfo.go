// Package buildinfo holds build metadata injected at link time.
package buildinfo

var (
	// Version is the release version, set via -ldflags.
	Version = "dev"
	// Commit is the git commit hash, set via -ldflags.
	Commit = "none"
	// BuildDate is the build timestamp, set via -ldflags.
	BuildDate = "unknown"
)
