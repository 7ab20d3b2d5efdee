//go:build !windows

package cmd

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/binthere/internal/config"
	"github.com/oshokin/binthere/internal/platform"
)

// launcherRoleEnv makes the test binary run Execute instead of the tests.
const launcherRoleEnv = "BINTHERE_CMD_TEST_LAUNCHER"

func TestMain(m *testing.M) {
	if os.Getenv(launcherRoleEnv) != "" {
		Execute()
	}

	os.Exit(m.Run())
}

// runBinthere executes the launcher with args against a shell delegate printing its arguments.
func runBinthere(t *testing.T, args ...string) (string, int) {
	t.Helper()

	installDir := t.TempDir()
	delegate := "#!/bin/sh\nprintf '%s\\n' \"$@\"\nexit 7\n"
	//nolint:gosec // The delegate has to be executable.
	require.NoError(t, os.WriteFile(filepath.Join(installDir, platform.ToolName), []byte(delegate), 0o755))

	self, err := os.Executable()
	require.NoError(t, err)

	var stdout bytes.Buffer

	cmd := exec.Command(self, args...)
	cmd.Env = append(os.Environ(), launcherRoleEnv+"=1", config.InstallDirEnv+"="+installDir)
	cmd.Stdout = &stdout

	err = cmd.Run()

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "unexpected error: %v", err)

	return stdout.String(), exitErr.ExitCode()
}

// TestExecute_ForwardsEveryArgument hands words cobra would reserve to the delegate.
func TestExecute_ForwardsEveryArgument(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{
		{"__complete", "scan"},
		{"__completeNoDesc", "scan", ""},
		{"completion", "bash"},
		{"help"},
		{"--help", "x"},
		{"-h"},
	} {
		var want bytes.Buffer
		for _, arg := range args {
			want.WriteString(arg + "\n")
		}

		out, code := runBinthere(t, args...)
		require.Equal(t, want.String(), out, args)
		require.Equal(t, 7, code, args)
	}
}
