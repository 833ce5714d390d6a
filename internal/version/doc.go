// Package version exposes catpoint build metadata.
//
// Version, Commit and BuildTime are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/oshokin/catpoint/internal/version.Commit=$(git rev-parse --short HEAD)" ./cmd/catpoint
package version
