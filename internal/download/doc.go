// Package download retrieves release archives over HTTP.
//
// Redirects are followed by an explicit loop capped at a configurable number
// of hops. The destination file exists only after a complete, flushed
// download; every failure path removes it.
package download
