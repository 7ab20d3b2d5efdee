package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/oshokin/binthere/internal/config"
	"github.com/oshokin/binthere/internal/logger"
	"github.com/oshokin/binthere/internal/platform"
)

// unavailableExitCode is reported when the child's exit code cannot be determined.
const unavailableExitCode = 1

// Remediation tells the user how to restore a missing executable.
const Remediation = "reinstall the package: binthere-install"

// ErrLauncherBinaryMissing is matched by every BinaryMissingError.
var ErrLauncherBinaryMissing = errors.New("binthere executable is not installed")

// BinaryMissingError names the executable the launcher expected to find.
type BinaryMissingError struct {
	Path string
}

func (e *BinaryMissingError) Error() string {
	return fmt.Sprintf("binthere executable not found at %s, %s", e.Path, Remediation)
}

// Is makes errors.Is(err, ErrLauncherBinaryMissing) hold.
func (e *BinaryMissingError) Is(target error) bool {
	return target == ErrLauncherBinaryMissing
}

// Options are inputs accepted by the launcher entry point.
type Options struct {
	// InstallDir overrides the installation directory convention.
	InstallDir string
	// Args are passed to the executable unmodified.
	Args []string
	// Stdin, Stdout and Stderr default to the launcher's own streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Termination describes how the child process ended.
type Termination struct {
	// ExitCode is the child's exit code, or 1 when it has none.
	ExitCode int
	// Signal is set when the child was terminated by a signal.
	Signal os.Signal
}

// ExecutablePath returns the location of the installed executable.
func ExecutablePath(installDir string) (string, error) {
	dir, err := config.ResolveInstallDir(installDir)
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, platform.ExecutableName(runtime.GOOS)), nil
}

// Run starts the installed executable and waits for it to finish.
// A child that exits non-zero or dies by a signal is not an error; that is reported in Termination.
func Run(ctx context.Context, opts *Options) (*Termination, error) {
	if opts == nil {
		opts = new(Options)
	}

	path, err := ExecutablePath(opts.InstallDir)
	if err != nil {
		return nil, err
	}

	if info, statErr := os.Stat(path); statErr != nil || info.IsDir() {
		return nil, &BinaryMissingError{Path: path}
	}

	ctx = logger.WithName(ctx, platform.ToolName)
	logger.DebugKV(ctx, "Launching", "path", path, "args", opts.Args)

	//nolint:gosec // Running the installed executable with user arguments is the whole point.
	cmd := exec.CommandContext(ctx, path, opts.Args...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr

	if opts.Stdin != nil {
		cmd.Stdin = opts.Stdin
	}

	if opts.Stdout != nil {
		cmd.Stdout = opts.Stdout
	}

	if opts.Stderr != nil {
		cmd.Stderr = opts.Stderr
	}

	err = cmd.Run()

	var exitErr *exec.ExitError

	switch {
	case err == nil, errors.As(err, &exitErr):
		return terminationOf(cmd.ProcessState), nil
	default:
		return nil, fmt.Errorf("run %s: %w", path, err)
	}
}
