package installer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/mitchellh/go-ps"
	"github.com/otiai10/copy"

	"github.com/oshokin/binthere/internal/config"
	"github.com/oshokin/binthere/internal/logger"
)

const (
	// executableMode is rwxr-xr-x.
	executableMode os.FileMode = 0o755

	// installDirMode is used when creating the installation directory.
	installDirMode os.FileMode = 0o755

	// tempDirPattern names the directory holding the downloaded archive.
	tempDirPattern = "binthere-install-"

	// stagingPattern names the extraction directory inside the installation directory.
	stagingPattern = ".binthere-staging-"

	// lockHashLength is the number of hex characters of the directory hash used in lock names.
	lockHashLength = 12
)

var (
	// ErrExecutableMissing is matched by every ExecutableMissingError.
	ErrExecutableMissing = errors.New("executable missing after extraction")
	// ErrInstallInProgress is returned when another installer holds the lock for the same directory.
	ErrInstallInProgress = errors.New("another installation is in progress")
)

// ExecutableMissingError names the executable the release asset failed to provide.
type ExecutableMissingError struct {
	Path string
}

func (e *ExecutableMissingError) Error() string {
	return fmt.Sprintf("binary not found after extraction: %s", e.Path)
}

// Is makes errors.Is(err, ErrExecutableMissing) hold.
func (e *ExecutableMissingError) Is(target error) bool {
	return target == ErrExecutableMissing
}

// ReleaseURL builds <host>/<repository>/releases/download/<tag>/<archiveName>.
func ReleaseURL(host string, coordinates config.Coordinates, archiveName string) (string, error) {
	base, err := url.Parse(host)
	if err != nil {
		return "", fmt.Errorf("parse release host: %w", err)
	}

	return base.JoinPath(coordinates.Repository, "releases", "download", coordinates.Tag, archiveName).String(), nil
}

// lockPath returns the install lock file for installDir.
// It lives in the temp directory so the installation directory holds only release files.
func lockPath(installDir string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(installDir)))

	return filepath.Join(os.TempDir(), "binthere-install-"+hex.EncodeToString(sum[:])[:lockHashLength]+".lock")
}

// promote moves the staged release files into installDir, overwriting existing ones.
// The executable is swapped in atomically; its siblings are copied.
func promote(staging, installDir, executableName string) error {
	entries, err := os.ReadDir(staging)
	if err != nil {
		return fmt.Errorf("read staging directory: %w", err)
	}

	for _, entry := range entries {
		if entry.Name() == executableName {
			continue
		}

		source := filepath.Join(staging, entry.Name())
		target := filepath.Join(installDir, entry.Name())

		if err = copy.Copy(source, target); err != nil {
			return fmt.Errorf("install %s: %w", entry.Name(), err)
		}
	}

	return replaceExecutable(filepath.Join(staging, executableName), filepath.Join(installDir, executableName))
}

// replaceExecutable swaps source in as target.
// The previous executable is renamed away rather than overwritten, which also works on Windows while it runs.
func replaceExecutable(source, target string) error {
	file, err := os.Open(filepath.Clean(source))
	if err != nil {
		return fmt.Errorf("open staged executable: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	// The swap renames the current target away, so one has to exist.
	if _, err = os.Stat(target); errors.Is(err, os.ErrNotExist) {
		var placeholder *os.File

		placeholder, err = os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_WRONLY, executableMode)
		if err != nil {
			return fmt.Errorf("create executable: %w", err)
		}

		if err = placeholder.Close(); err != nil {
			return fmt.Errorf("create executable: %w", err)
		}
	}

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: executableMode,
	}

	if err = goupdate.Apply(file, options); err != nil {
		return fmt.Errorf("replace executable: %w", err)
	}

	return nil
}

// warnIfRunning logs a warning for every other process running executableName.
// Running copies keep the previous version until they exit.
func warnIfRunning(ctx context.Context, executableName string) {
	processes, err := ps.Processes()
	if err != nil {
		logger.DebugKV(ctx, "Unable to list processes", "error", err)
		return
	}

	self := os.Getpid()

	for _, process := range processes {
		if process.Pid() == self || process.Executable() != executableName {
			continue
		}

		logger.WarnKV(ctx, "Executable is running and keeps the previous version until it exits",
			"executable", executableName, "pid", process.Pid())
	}
}
