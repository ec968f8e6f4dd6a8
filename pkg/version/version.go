// Package version holds build information set at link time with
// -ldflags "-X github.com/docker/docqa/pkg/version.Version=...".
package version

var (
	Version = "dev"
	Commit  = "unknown"
)
