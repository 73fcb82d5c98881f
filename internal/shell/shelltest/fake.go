// Package shelltest provides a scripted shell.Runner for tests.
package shelltest

import (
	"context"
	"fmt"
	"sync"

	"ffbind/internal/shell"
)

// Call records one Run invocation.
type Call struct {
	Command string
	Dir     string
}

// Response is what the fake answers for a command.
type Response struct {
	Stdout string
	Stderr string
	// Fail makes the command exit non-zero; Stderr becomes the error text.
	Fail bool
	// Do runs before answering, e.g. to create the directory a clone would.
	Do func(dir string)
}

// Runner answers commands from a table keyed by the exact command line.
// Unknown commands fail the way an unknown binary would.
type Runner struct {
	mu        sync.Mutex
	Responses map[string]Response
	Calls     []Call
}

// New returns a Runner answering from responses.
func New(responses map[string]Response) *Runner {
	return &Runner{Responses: responses}
}

func (r *Runner) Run(_ context.Context, command, dir string) (string, error) {
	r.mu.Lock()
	r.Calls = append(r.Calls, Call{Command: command, Dir: dir})
	resp, ok := r.Responses[command]
	r.mu.Unlock()

	if !ok {
		return "", &shell.CommandError{
			Command: command,
			Dir:     dir,
			Stderr:  fmt.Sprintf("bash: %s: command not found", command),
			Err:     fmt.Errorf("exit status 127"),
		}
	}
	if resp.Do != nil {
		resp.Do(dir)
	}
	if resp.Fail {
		return "", &shell.CommandError{Command: command, Dir: dir, Stderr: resp.Stderr, Err: fmt.Errorf("exit status 1")}
	}
	return resp.Stdout, nil
}

// Commands returns the command lines run so far, in order.
func (r *Runner) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Calls))
	for _, c := range r.Calls {
		out = append(out, c.Command)
	}
	return out
}
