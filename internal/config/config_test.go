package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/binthere/internal/version"
)

// TestValidate checks the repository guard, defaults and format validations.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing repository.
	err := Validate(new(Config))
	require.ErrorIs(t, err, ErrMissingRepositoryConfig)

	// Placeholder left in the template.
	err = Validate(&Config{Repository: "REPLACE_WITH_OWNER/binthere"})
	require.ErrorIs(t, err, ErrMissingRepositoryConfig)

	// Bad version.
	err = Validate(&Config{Repository: "oshokin/binthere", Version: "one"})
	require.Error(t, err)

	// Bad host.
	err = Validate(&Config{Repository: "oshokin/binthere", Version: "1.2.3", ReleaseHost: "not a url"})
	require.Error(t, err)

	// Negative redirect cap.
	err = Validate(&Config{Repository: "oshokin/binthere", Version: "1.2.3", MaxRedirects: -1})
	require.Error(t, err)

	// Defaults.
	cfg := &Config{Repository: " /oshokin/binthere/ "}
	require.NoError(t, Validate(cfg))
	require.Equal(t, "oshokin/binthere", cfg.Repository)
	require.Equal(t, version.Short(), cfg.Version)
	require.Equal(t, DefaultTagPrefix, cfg.TagPrefix)
	require.Equal(t, DefaultReleaseHost, cfg.ReleaseHost)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.Equal(t, DefaultMaxRedirects, cfg.MaxRedirects)
}

// TestCoordinates verifies the tag is prefix followed by version.
func TestCoordinates(t *testing.T) {
	t.Parallel()

	cfg := &Config{Repository: "oshokin/binthere", Version: "0.3.1", TagPrefix: "release-"}
	require.NoError(t, Validate(cfg))
	require.Equal(t, Coordinates{Repository: "oshokin/binthere", Tag: "release-0.3.1"}, cfg.Coordinates())

	cfg = &Config{Repository: "oshokin/binthere", Version: "0.3.1"}
	require.NoError(t, Validate(cfg))
	require.Equal(t, "v0.3.1", cfg.Coordinates().Tag)
}

// TestApplyEnv ensures the repository override wins over the file and blank values are ignored.
func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{RepositoryEnv: "fork/binthere"}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := &Config{Repository: "oshokin/binthere"}
	ApplyEnv(cfg, lookup)
	require.Equal(t, "fork/binthere", cfg.Repository)

	env[RepositoryEnv] = "  "
	cfg = &Config{Repository: "oshokin/binthere"}
	ApplyEnv(cfg, lookup)
	require.Equal(t, "oshokin/binthere", cfg.Repository)
}

// TestSaveLoadRoundtrip ensures metadata is persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Setenv(RepositoryEnv, "")

	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	saved := &Config{
		Version:      "0.3.1",
		Repository:   "oshokin/binthere",
		TagPrefix:    "v",
		ReleaseHost:  "https://mirror.local",
		Timeout:      90 * time.Second,
		MaxRedirects: 3,
	}

	require.NoError(t, Save(path, saved))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, saved, loaded)
}

// TestLoad_EnvOverride shows BINTHERE_REPO replaces a placeholder repository.
func TestLoad_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte("version: 1.0.0\nrepository: REPLACE_WITH_OWNER/binthere\n"), 0o600))

	t.Setenv(RepositoryEnv, "")

	_, err := Load(path)
	require.ErrorIs(t, err, ErrMissingRepositoryConfig)

	t.Setenv(RepositoryEnv, "oshokin/binthere")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "oshokin/binthere", cfg.Repository)
}

// TestLoad_Errors covers unreadable and malformed files.
func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("version: [1"), 0o600))

	_, err = Load(bad)
	require.Error(t, err)
}

// TestResolveInstallDir checks the explicit value and environment precedence.
func TestResolveInstallDir(t *testing.T) {
	dir := t.TempDir()

	t.Setenv(InstallDirEnv, filepath.Join(dir, "env"))

	got, err := ResolveInstallDir(filepath.Join(dir, "flag"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "flag"), got)

	got, err = ResolveInstallDir("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "env"), got)

	t.Setenv(InstallDirEnv, "")

	got, err = ResolveInstallDir("")
	require.NoError(t, err)
	require.Equal(t, DefaultInstallDirName, filepath.Base(got))
}

// TestResolveInstallDir_ExpandsHome resolves "~" against the home directory.
func TestResolveInstallDir_ExpandsHome(t *testing.T) {
	t.Parallel()

	home, err := homedir.Dir()
	require.NoError(t, err)

	got, err := ResolveInstallDir(filepath.Join("~", ".binthere", DefaultInstallDirName))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".binthere", DefaultInstallDirName), got)
}

// TestDefaultConfigPath_IgnoresWorkingDirectory looks for metadata beside the executable only.
func TestDefaultConfigPath_IgnoresWorkingDirectory(t *testing.T) {
	self, err := os.Executable()
	require.NoError(t, err)

	self, err = filepath.EvalSymlinks(self)
	require.NoError(t, err)

	want := filepath.Join(filepath.Dir(self), DefaultConfigFilename)

	dir := t.TempDir()

	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })

	require.NoError(t, os.WriteFile(DefaultConfigFilename, []byte("repository: oshokin/binthere\n"), 0o600))

	got, err := DefaultConfigPath()
	require.NoError(t, err)
	require.Equal(t, want, got)

	_, err = Load("")
	require.ErrorIs(t, err, os.ErrNotExist)
	require.ErrorContains(t, err, want)
}
