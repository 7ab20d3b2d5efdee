// Package config loads the package metadata that tells the installer which
// release to fetch, and defines the installation directory convention shared
// with the launcher.
//
// Metadata lives in a YAML file (binthere-package.yaml); the repository
// identifier can be overridden with the BINTHERE_REPO environment variable.
package config
