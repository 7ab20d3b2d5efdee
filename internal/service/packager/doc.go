// Package packager writes the package metadata file that ships next to the
// installer and tells it which release to fetch.
//
// After saving, it lists the release assets the installer will look for, so a
// maintainer can check that the release publishes one per supported platform.
package packager
