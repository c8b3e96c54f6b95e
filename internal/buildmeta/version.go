// Package buildmeta holds the converge build stamp. Release builds set it with
//
//	go build -ldflags="-X github.com/devantler-tech/converge/internal/buildmeta.Version=v0.1.0 ..."
//
//nolint:gochecknoglobals
package buildmeta

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"
	// Commit is the Git SHA the binary was built from.
	Commit = "none"
	// Date is when the binary was built.
	Date = "unknown"
)
