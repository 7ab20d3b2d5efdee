package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/binthere/internal/config"
	"github.com/oshokin/binthere/internal/logger"
	"github.com/oshokin/binthere/internal/platform"
	"github.com/oshokin/binthere/internal/service/installer"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// ConfigPath is where the metadata is written (defaults to binthere-package.yaml beside the installer).
	ConfigPath string
	// Repository is the "owner/name" identifier of the release repository.
	Repository string
	// Version is the release version; empty means the installer's build version.
	Version string
	// TagPrefix and ReleaseHost fall back to the config defaults.
	TagPrefix   string
	ReleaseHost string
	// Force allows replacing an existing metadata file.
	Force bool
}

// metadataDirMode is used when the metadata directory does not exist yet.
const metadataDirMode os.FileMode = 0o755

// ErrMetadataExists is returned when the metadata file exists and Force is not set.
var ErrMetadataExists = errors.New("package metadata already exists")

// Run validates the options, saves the metadata and prints the expected release assets.
func Run(ctx context.Context, opts *Options) (*config.Config, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "binthere-init")

	if opts == nil {
		opts = new(Options)
	}

	path := opts.ConfigPath
	if path == "" {
		var err error

		if path, err = config.DefaultConfigPath(); err != nil {
			return nil, err
		}
	}

	cfg := &config.Config{
		Version:     opts.Version,
		Repository:  opts.Repository,
		TagPrefix:   opts.TagPrefix,
		ReleaseHost: opts.ReleaseHost,
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	if !opts.Force {
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrMetadataExists, path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), metadataDirMode); err != nil {
		return nil, fmt.Errorf("create metadata directory: %w", err)
	}

	if err := config.Save(path, cfg); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Saved package metadata", "path", path)

	if err := printNextSteps(ctx, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// printNextSteps logs the release assets the installer will download.
func printNextSteps(ctx context.Context, cfg *config.Config) error {
	coordinates := cfg.Coordinates()

	var builder strings.Builder

	builder.WriteString("The release ")
	builder.WriteString(coordinates.Tag)
	builder.WriteString(" of ")
	builder.WriteString(coordinates.Repository)
	builder.WriteString(" should publish the following assets:")

	for _, descriptor := range platform.Descriptors() {
		assetURL, err := installer.ReleaseURL(cfg.ReleaseHost, coordinates, descriptor.ArchiveName)
		if err != nil {
			return err
		}

		builder.WriteString("\n")
		builder.WriteString(descriptor.Key)
		builder.WriteString(": ")
		builder.WriteString(assetURL)
	}

	logger.Info(ctx, builder.String())

	return nil
}
