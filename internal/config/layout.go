package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

const (
	// InstallDirEnv overrides the installation directory for both binaries.
	InstallDirEnv = "BINTHERE_INSTALL_DIR"

	// DefaultInstallDirName is created next to the running executable.
	DefaultInstallDirName = "native"
)

// ResolveInstallDir returns the directory holding the delegated binary.
// Precedence: explicit value, then InstallDirEnv, then DefaultInstallDirName
// beside the running executable. Installer and launcher share this convention.
// A leading "~" in an explicit or environment value is expanded to the home directory.
func ResolveInstallDir(explicit string) (string, error) {
	if explicit != "" {
		return absolute(explicit)
	}

	if dir, ok := os.LookupEnv(InstallDirEnv); ok && dir != "" {
		return absolute(dir)
	}

	dir, err := executableDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, DefaultInstallDirName), nil
}

// DefaultConfigPath returns the package metadata file shipped beside the running executable.
// It does not depend on the working directory the installer is started from.
func DefaultConfigPath() (string, error) {
	dir, err := executableDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, DefaultConfigFilename), nil
}

// executableDir returns the directory of the running executable with symlinks evaluated.
func executableDir() (string, error) {
	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate running executable: %w", err)
	}

	if resolved, err := filepath.EvalSymlinks(self); err == nil {
		self = resolved
	}

	return filepath.Dir(self), nil
}

// absolute expands a leading "~" and makes path absolute.
func absolute(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", path, err)
	}

	return filepath.Abs(expanded)
}
