// Package version provides build-time version information.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/rickgao/deliveryfeed/internal/version.Version=1.0.0 \
//	                   -X github.com/rickgao/deliveryfeed/internal/version.Commit=$(git rev-parse --short HEAD)" \
//	    ./cmd/feedtail
package version

// Build-time variables (set via ldflags)
var (
	Version = "dev"
	Commit  = "unknown"
)

// String returns "<version> (<commit>)", the format printed by feedtail --version.
func String() string {
	return Version + " (" + Commit + ")"
}
