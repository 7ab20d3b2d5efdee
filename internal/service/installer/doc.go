// Package installer downloads the release asset for the current platform and
// materializes the binthere executable in the installation directory.
//
// The pipeline is strictly sequential: resolve platform, load release
// coordinates, download, extract into a staging directory, verify, swap the
// executable into place and mark it executable. Any failure aborts the run.
package installer
