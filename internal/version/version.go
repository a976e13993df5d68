// Package version exposes build metadata set at link time.
package version

import "fmt"

var (
	// Version is the release version, set via -ldflags.
	Version = "dev"
	// Commit is the git commit hash, set via -ldflags.
	Commit = "unknown"
)

// String returns the full version string.
func String() string {
	return fmt.Sprintf("taskforge %s (%s)", Version, Commit)
}
