// Package version exposes build information injected at link time.
package version

import "runtime"

// Populated via -ldflags at build time. Defaults cover `go run` and tests.
var (
	GitCommit     = "unknown"
	GitCommitDate = "unknown"
	GitRelease    = "dev"
)

// GoInfo describes the toolchain that produced the binary.
var GoInfo = runtime.Version() + " " + runtime.GOOS + "/" + runtime.GOARCH
