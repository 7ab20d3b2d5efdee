package installer

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/gofrs/flock"

	"github.com/oshokin/binthere/internal/archive"
	"github.com/oshokin/binthere/internal/config"
	"github.com/oshokin/binthere/internal/download"
	"github.com/oshokin/binthere/internal/logger"
	"github.com/oshokin/binthere/internal/platform"
	"github.com/oshokin/binthere/internal/version"
)

// Options are inputs accepted by the installer entry point.
type Options struct {
	// ConfigPath is the package metadata file; empty means config.DefaultConfigPath.
	ConfigPath string
	// InstallDir overrides the installation directory convention.
	InstallDir string
	// GOOS and GOARCH select the target platform; empty means the running one.
	GOOS   string
	GOARCH string
	// HTTPClient downloads the release asset, for example through a custom CA pool; nil means a default client.
	HTTPClient *http.Client
}

// Result describes a successful installation.
type Result struct {
	// Path is the installed executable.
	Path string
	// Version is the installed release version.
	Version string
	// URL is the release asset that was downloaded.
	URL string
	// Platform is the platform key the asset was chosen for.
	Platform string
}

// runner holds the state of a single installation attempt.
type runner struct {
	cfg        *config.Config      // Validated package metadata.
	descriptor platform.Descriptor // Release asset for the target platform.
	goos       string              // Target operating system.
	installDir string              // Where the executable ends up.
	fetcher    *download.Fetcher   // Downloads the release asset.
}

// Run installs the release asset for the target platform.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "binthere-install")

	if opts == nil {
		opts = new(Options)
	}

	inst, err := newRunner(opts)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithKV(ctx, "platform", inst.descriptor.Key)

	return inst.Run(ctx)
}

// newRunner resolves everything that needs neither the network nor the filesystem beyond reading metadata.
func newRunner(opts *Options) (*runner, error) {
	goos, goarch := opts.GOOS, opts.GOARCH
	if goos == "" {
		goos = runtime.GOOS
	}

	if goarch == "" {
		goarch = runtime.GOARCH
	}

	descriptor, err := platform.Resolve(goos, goarch)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	installDir, err := config.ResolveInstallDir(opts.InstallDir)
	if err != nil {
		return nil, err
	}

	return &runner{
		cfg:        cfg,
		descriptor: descriptor,
		goos:       goos,
		installDir: installDir,
		fetcher: download.NewFetcher(
			download.WithMaxRedirects(cfg.MaxRedirects),
			download.WithUserAgent(version.UserAgent()),
			download.WithHTTPClient(opts.HTTPClient),
		),
	}, nil
}

// Run executes the installation pipeline:
// 1) Build the release URL.
// 2) Create the installation directory and take the install lock.
// 3) Download the asset to a temporary directory.
// 4) Extract it into a staging directory and check the executable is there.
// 5) Move the staged files into place and set executable permissions.
func (r *runner) Run(ctx context.Context) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	coordinates := r.cfg.Coordinates()

	assetURL, err := ReleaseURL(r.cfg.ReleaseHost, coordinates, r.descriptor.ArchiveName)
	if err != nil {
		return nil, err
	}

	if err = os.MkdirAll(r.installDir, installDirMode); err != nil {
		return nil, fmt.Errorf("create installation directory: %w", err)
	}

	unlock, err := acquireLock(r.installDir)
	if err != nil {
		return nil, err
	}

	defer unlock()

	logger.Infof(ctx, "Downloading %s %s for %s...", platform.ToolName, r.cfg.Version, r.descriptor.Key)
	logger.DebugKV(ctx, "Release asset", "url", assetURL, "install_dir", r.installDir)

	archivePath, cleanupArchive, err := r.download(ctx, assetURL)
	if err != nil {
		return nil, err
	}

	defer cleanupArchive()

	staging, err := os.MkdirTemp(r.installDir, stagingPattern)
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}

	defer func() {
		_ = os.RemoveAll(staging)
	}()

	logger.DebugKV(ctx, "Extracting release asset", "archive", archivePath, "staging", staging)

	if err = archive.Extract(archivePath, r.descriptor.Kind, staging); err != nil {
		return nil, err
	}

	executablePath := filepath.Join(r.installDir, r.descriptor.ExecutableName)

	if !isFile(filepath.Join(staging, r.descriptor.ExecutableName)) {
		return nil, &ExecutableMissingError{Path: executablePath}
	}

	warnIfRunning(ctx, r.descriptor.ExecutableName)

	if err = promote(staging, r.installDir, r.descriptor.ExecutableName); err != nil {
		return nil, err
	}

	if !isFile(executablePath) {
		return nil, &ExecutableMissingError{Path: executablePath}
	}

	if !platform.IsWindows(r.goos) {
		if err = os.Chmod(executablePath, executableMode); err != nil {
			return nil, fmt.Errorf("set executable permissions: %w", err)
		}
	}

	logger.InfoKV(ctx, "Installed "+r.descriptor.ExecutableName, "path", executablePath)

	return &Result{
		Path:     executablePath,
		Version:  r.cfg.Version,
		URL:      assetURL,
		Platform: r.descriptor.Key,
	}, nil
}

// download fetches the asset into a fresh temporary directory.
// The returned cleanup removes that directory.
func (r *runner) download(ctx context.Context, assetURL string) (string, func(), error) {
	tempDir, err := os.MkdirTemp("", tempDirPattern)
	if err != nil {
		return "", nil, fmt.Errorf("create temporary directory: %w", err)
	}

	cleanup := func() {
		_ = os.RemoveAll(tempDir)
	}

	archivePath := filepath.Join(tempDir, r.descriptor.ArchiveName)

	if err = r.fetcher.Fetch(ctx, assetURL, archivePath); err != nil {
		cleanup()
		return "", nil, err
	}

	return archivePath, cleanup, nil
}

// acquireLock takes the per-directory install lock. The returned func releases it.
func acquireLock(installDir string) (func(), error) {
	lock := flock.New(lockPath(installDir))

	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire install lock: %w", err)
	}

	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrInstallInProgress, installDir)
	}

	return func() {
		_ = lock.Unlock()
	}, nil
}

// isFile reports whether path exists and is not a directory.
func isFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return !info.IsDir()
}
