// Package version carries build metadata injected through ldflags, e.g.
//
//	go build -ldflags "-X github.com/rkranz/quizlive/internal/version.Version=0.3.0 \
//	                   -X github.com/rkranz/quizlive/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

import "fmt"

var (
	// Version is the release version, "dev" for local builds.
	Version = "dev"

	// Commit is the short git commit hash.
	Commit = "unknown"
)

// String formats the version for log output and the -v flag.
func String() string {
	return fmt.Sprintf("quizlive %s (%s)", Version, Commit)
}
