// Package version exposes build information, injected via -ldflags.
package version

var (
	// Version is the release or git describe string.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
)

// Info is the version payload served on health endpoints.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// Get returns the current build info.
func Get() Info {
	return Info{Version: Version, Commit: Commit}
}
