// Package version holds build-time version information.
package version

import "fmt"

// Populated via -ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns a single-line version string.
func Info() string {
	return fmt.Sprintf("apicheck %s (commit %s, built %s)", Version, Commit, Date)
}
