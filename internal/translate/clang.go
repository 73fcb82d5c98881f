package translate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/phuslu/log"
)

// Mode selects which view of the translation unit the frontend produces.
type Mode int

const (
	// ModeDeclarations streams the AST as JSON.
	ModeDeclarations Mode = iota
	// ModeMacros streams preprocessor output with every #define kept.
	ModeMacros
)

func (m Mode) args() []string {
	if m == ModeMacros {
		return []string{"-E", "-dD"}
	}
	return []string{"-fsyntax-only", "-Xclang", "-ast-dump=json"}
}

// Frontend runs the C compiler over src and hands its output to fn.
type Frontend interface {
	Run(ctx context.Context, mode Mode, src []byte, args []string, fn func(io.Reader) error) error
}

// ClangError is a non-zero clang exit. Stderr carries its diagnostics.
type ClangError struct {
	Err    error
	Stderr string
}

func (e *ClangError) Error() string {
	if e.Stderr == "" {
		return "clang: " + e.Err.Error()
	}
	return fmt.Sprintf("clang: %v: %s", e.Err, e.Stderr)
}

func (e *ClangError) Unwrap() error { return e.Err }

// Clang is the Frontend backed by the clang binary.
type Clang struct {
	Binary string
}

func (c *Clang) Run(ctx context.Context, mode Mode, src []byte, args []string, fn func(io.Reader) error) error {
	bin := c.Binary
	if bin == "" {
		bin = "clang"
	}
	full := append(append(append([]string{}, args...), mode.args()...), "-")

	cmd := exec.CommandContext(ctx, bin, full...)
	cmd.Stdin = bytes.NewReader(src)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", bin, err)
	}

	log.Debug().Int("pid", cmd.Process.Pid).Strs("args", full).Msg("clang started")

	ferr := fn(stdout)
	// Drain so clang is not blocked on a full pipe when fn stops early.
	_, _ = io.Copy(io.Discard, stdout)

	if err := cmd.Wait(); err != nil {
		return &ClangError{Err: err, Stderr: strings.TrimSpace(stderr.String())}
	}
	return ferr
}
