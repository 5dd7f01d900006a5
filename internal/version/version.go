// Package version holds build metadata stamped in at link time.
package version

// Overwritten with ldflags, for example:
//
//	-X github.com/d9705996/researchbridge/internal/version.Version=v0.3.0
//	-X github.com/d9705996/researchbridge/internal/version.Commit=$(git rev-parse --short HEAD)
//	-X github.com/d9705996/researchbridge/internal/version.Date=$(date -u +%FT%TZ)
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build metadata on one line for the CLI.
func String() string {
	return Version + " (" + Commit + ", built " + Date + ")"
}
