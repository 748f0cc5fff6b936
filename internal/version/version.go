// Package version exposes build version information.
package version

// Version is the release version, overridden at build time via
// -ldflags "-X github.com/beatm8/backbeat/internal/version.Version=...".
var Version = "dev"

// Commit is the git commit hash, set at build time.
var Commit = "unknown"

// String returns a human-readable version string.
func String() string {
	if Commit == "unknown" {
		return Version
	}
	return Version + " (" + Commit + ")"
}
