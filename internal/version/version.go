// Package version holds build-time version information for the biai binary.
// The variables are populated at build time via -ldflags:
//
//	go build -ldflags="-X github.com/singa-bi/biai-go/internal/version.Version=v0.3.0 \
//	                    -X github.com/singa-bi/biai-go/internal/version.Commit=abc1234 \
//	                    -X github.com/singa-bi/biai-go/internal/version.BuildDate=2026-01-01"
//
// When built without ldflags (e.g. `go run`), the values fall back to
// human-readable defaults so the binary is always usable.
package version

// Version is the semantic version of the binary. Defaults to "dev" for
// local builds.
var Version = "dev"

// Commit is the short git SHA of the commit the binary was built from.
var Commit = "unknown"

// BuildDate is the UTC date the binary was built (RFC3339 format).
var BuildDate = "unknown"
