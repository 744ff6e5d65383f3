// Package buildinfo carries version metadata injected at link time:
//
//	go build -ldflags "-X github.com/m3rciful/schedulebot/core/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

var (
	// Version is the release tag of the binary.
	Version = "dev"
	// Commit is the short revision the binary was built from.
	Commit = "local"
	// Date is the RFC3339 build timestamp.
	Date = ""
)
