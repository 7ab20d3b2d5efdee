// Package version exposes build metadata for the installer.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. Version doubles as the release version to download when the
// package metadata file does not pin one.
package version
