package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blang/semver/v4"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/binthere/internal/version"
)

// Config is the package metadata consumed by the installer.
type Config struct {
	// Version is the release version to install. Empty means the installer's own build version.
	Version string `yaml:"version"`
	// Repository is the "owner/name" identifier of the release repository.
	Repository string `yaml:"repository"`
	// TagPrefix is prepended to Version to form the release tag.
	TagPrefix string `yaml:"tag_prefix"`
	// ReleaseHost is the base URL of the release host.
	ReleaseHost string `yaml:"release_host"`
	// Timeout bounds the whole download and extraction.
	Timeout time.Duration `yaml:"timeout"`
	// MaxRedirects caps the redirect chain of a single download.
	MaxRedirects int `yaml:"max_redirects"`
}

// Coordinates identify a release on the release host.
type Coordinates struct {
	// Repository is the "owner/name" identifier.
	Repository string
	// Tag is TagPrefix followed by Version.
	Tag string
}

const (
	// DefaultConfigFilename is the package metadata file shipped next to the installer.
	// DefaultConfigPath locates it.
	DefaultConfigFilename = "binthere-package.yaml"

	// DefaultTagPrefix is used when the metadata omits tag_prefix.
	DefaultTagPrefix = "v"

	// DefaultReleaseHost is where release assets are published.
	DefaultReleaseHost = "https://github.com"

	// DefaultTimeout bounds one installation attempt.
	DefaultTimeout = 5 * time.Minute

	// DefaultMaxRedirects caps redirect chains; release hosts use one or two hops.
	DefaultMaxRedirects = 10

	// DefaultFilePermissions is the mode used when saving metadata.
	DefaultFilePermissions = 0o644

	// RepositoryEnv overrides Repository.
	RepositoryEnv = "BINTHERE_REPO"

	// placeholderMarker is left in unconfigured package templates.
	placeholderMarker = "REPLACE_WITH"
)

var (
	// ErrMissingRepositoryConfig is returned when no usable repository identifier is configured.
	ErrMissingRepositoryConfig = errors.New("missing repository config: set " + RepositoryEnv +
		" or \"repository\" in " + DefaultConfigFilename)

	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidMaxRedirects is returned for a negative redirect cap.
	errInvalidMaxRedirects = errors.New("max_redirects must not be negative")
)

// Load reads package metadata from path, applies environment overrides and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error

		if path, err = DefaultConfigPath(); err != nil {
			return nil, err
		}
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read package metadata: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal package metadata: %w", err)
	}

	ApplyEnv(&cfg, os.LookupEnv)

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		var err error

		if path, err = DefaultConfigPath(); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal package metadata: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write package metadata: %w", err)
	}

	return nil
}

// ApplyEnv overrides fields from the environment using lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if repo, ok := lookup(RepositoryEnv); ok && strings.TrimSpace(repo) != "" {
		cfg.Repository = repo
	}
}

// Validate fills defaults and checks the fields needed to build a release URL.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	cfg.Repository = strings.Trim(strings.TrimSpace(cfg.Repository), "/")
	if cfg.Repository == "" || strings.Contains(cfg.Repository, placeholderMarker) {
		return ErrMissingRepositoryConfig
	}

	cfg.Version = strings.TrimSpace(cfg.Version)
	if cfg.Version == "" {
		cfg.Version = version.Short()
	}

	if _, err := semver.Parse(cfg.Version); err != nil {
		return fmt.Errorf("invalid version %q: %w", cfg.Version, err)
	}

	if cfg.TagPrefix == "" {
		cfg.TagPrefix = DefaultTagPrefix
	}

	if cfg.ReleaseHost == "" {
		cfg.ReleaseHost = DefaultReleaseHost
	}

	if _, err := url.ParseRequestURI(cfg.ReleaseHost); err != nil {
		return fmt.Errorf("invalid release host: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.MaxRedirects < 0 {
		return errInvalidMaxRedirects
	}

	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}

	return nil
}

// Coordinates returns the release coordinates of a validated configuration.
func (c *Config) Coordinates() Coordinates {
	return Coordinates{
		Repository: c.Repository,
		Tag:        c.TagPrefix + c.Version,
	}
}
