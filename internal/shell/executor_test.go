//go:build !windows

package shell

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutorRunCapturesStdout(t *testing.T) {
	out, err := New().Run(context.Background(), "printf 'hello\\n'; echo ignored >&2", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestExecutorRunUsesWorkDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker"), nil, 0o644))

	out, err := New().Run(context.Background(), "ls", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "marker")
}

func TestExecutorRunFailureCarriesStderr(t *testing.T) {
	_, err := New().Run(context.Background(), "echo 'Package libfoo was not found' >&2; exit 1", t.TempDir())
	require.Error(t, err)

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, "Package libfoo was not found", err.Error())
	assert.Equal(t, "Package libfoo was not found\n", cmdErr.Stderr)

	var exitErr interface{ ExitCode() int }
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 1, exitErr.ExitCode())
}

func TestExecutorRunFailureWithoutStderr(t *testing.T) {
	_, err := New().Run(context.Background(), "exit 3", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit 3")
}
