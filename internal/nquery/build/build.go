// Package build holds build information. The variables are set at link time, e.g.
//
//	go build -ldflags "-X github.com/sparkmeter/nquery/internal/nquery/build.GitCommit=$(git rev-parse HEAD)"
package build

import "runtime"

var (
	ReleaseVersion = "dev"
	GitCommit      = "unknown"
	GoVersion      = runtime.Version()
	BuildTime      = "unknown"
)
