// Package shell runs the external commands the resolvers and fetchers depend
// on: package-manager queries, pkg-config probes and git clones.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/phuslu/log"
)

// Runner executes one shell command line in a working directory and returns
// its standard output.
type Runner interface {
	Run(ctx context.Context, command, dir string) (string, error)
}

// CommandError is returned when a command exits non-zero. Its message is the
// command's stderr, unmodified apart from surrounding whitespace.
type CommandError struct {
	Command string
	Dir     string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return msg
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Executor runs commands through the host shell: bash on unix-likes,
// powershell on windows.
type Executor struct{}

// New returns the host shell executor.
func New() *Executor {
	return &Executor{}
}

// Run executes command in dir and waits for it to finish.
func (e *Executor) Run(ctx context.Context, command, dir string) (string, error) {
	cmd := shellCommand(ctx, command)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", &CommandError{Command: command, Dir: dir, Err: err}
	}

	log.Debug().Str("command", command).Str("dir", dir).Int("pid", cmd.Process.Pid).Msg("command started")

	if err := cmd.Wait(); err != nil {
		return "", &CommandError{Command: command, Dir: dir, Stderr: stderr.String(), Err: err}
	}

	return stdout.String(), nil
}

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "powershell", "-command", "$ProgressPreference = 'SilentlyContinue';"+command)
	}
	return exec.CommandContext(ctx, "bash", "-c", command)
}
