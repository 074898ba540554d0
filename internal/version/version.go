// Package version carries build metadata stamped in with ldflags, e.g.
//
//	go build -ldflags "-X github.com/pablasso/crewflow/internal/version.Version=v1.0.0" ./cmd/crewflow
package version

import "fmt"

var (
	// Version is the semantic version of the application.
	Version = "dev"

	// CommitSHA is the git commit SHA at build time.
	CommitSHA = "unknown"

	// BuildDate is the date when the binary was built.
	BuildDate = "unknown"
)

// String renders the build metadata on one line.
func String() string {
	return fmt.Sprintf("crewflow %s (commit %s, built %s)", Version, shortSHA(CommitSHA), BuildDate)
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
