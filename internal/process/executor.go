// Package process runs external commands with streamed, line-oriented output.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/forgeloop/forge/internal/domain"
)

// DefaultWaitDelay bounds how long Run waits for output after the process has
// exited or its context is done. Descendants that still hold stdout or stderr
// after that are cut off and their remaining output is dropped.
const DefaultWaitDelay = 5 * time.Second

// Stream identifies which output stream a line came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// LineFunc receives every complete output line with its delimiter stripped.
type LineFunc func(stream Stream, line string)

// Command describes a single process invocation.
type Command struct {
	// Args is the full argument vector; Args[0] is the executable.
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env holds extra variables appended to the inherited environment.
	Env map[string]string
	// Stdin feeds the process's standard input. Nil means no input.
	Stdin io.Reader
}

// String returns the command line joined with spaces, for display only.
func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

// Executor runs commands and streams their output.
// An Executor has no mutable state and is safe for concurrent use.
type Executor struct {
	waitDelay time.Duration
}

// NewExecutor creates an Executor with the default wait delay.
func NewExecutor() *Executor {
	return &Executor{waitDelay: DefaultWaitDelay}
}

// Run starts the command, forwards every stdout and stderr line to onLine as it
// arrives, and blocks until the process exits.
//
// os/exec copies each stream on its own goroutine into a line writer; Run
// returns only after both copies finish (or the wait delay cuts off a
// lingering descendant), so trailing output is part of the result. Calls to
// onLine are serialized. Line order is preserved within a stream but not across
// streams.
//
// A process that cannot be started yields a *LaunchError. A process that runs
// and exits non-zero is not an error: the result carries the exit code. If ctx
// is canceled the process group is killed and the partial result is returned
// together with ctx.Err().
func (e *Executor) Run(ctx context.Context, c Command, onLine LineFunc) (domain.ProcessResult, error) {
	if len(c.Args) == 0 {
		return domain.ProcessResult{}, errors.New("command args required")
	}

	// #nosec G204 - commands come from the build planner or the agent protocol, not a shell.
	cmd := exec.CommandContext(ctx, c.Args[0], c.Args[1:]...)
	cmd.Dir = c.Dir
	cmd.Env = MergeEnv(c.Env)
	cmd.WaitDelay = e.waitDelay
	if c.Stdin != nil {
		cmd.Stdin = c.Stdin
	}
	SetProcessGroup(cmd)

	var mu sync.Mutex
	emit := func(s Stream, line string) {
		if onLine == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		onLine(s, line)
	}
	stdout := &lineWriter{stream: Stdout, emit: emit}
	stderr := &lineWriter{stream: Stderr, emit: emit}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return domain.ProcessResult{}, ctx.Err()
		}
		return domain.ProcessResult{}, &LaunchError{Command: c.Args[0], Err: err}
	}

	waitErr := cmd.Wait()
	if errors.Is(waitErr, exec.ErrWaitDelay) {
		// The command exited cleanly but a descendant kept its output open.
		killGroup(cmd)
		waitErr = nil
	}
	stdout.flush()
	stderr.flush()

	result := domain.ProcessResult{
		ExitCode: exitCodeOf(cmd, waitErr),
		Stdout:   stdout.acc.String(),
		Stderr:   stderr.acc.String(),
	}

	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return result, fmt.Errorf("failed to read output of %s: %w", c.Args[0], waitErr)
	}
	return result, nil
}

// lineWriter accumulates one output stream and emits each complete line
// without its terminator. os/exec writes to it from a single goroutine.
type lineWriter struct {
	stream  Stream
	emit    func(Stream, string)
	acc     strings.Builder
	partial []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	n := len(p)
	w.acc.Write(p)
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			w.partial = append(w.partial, p...)
			break
		}
		line := append(w.partial, p[:i]...)
		w.partial = w.partial[:0]
		w.emit(w.stream, strings.TrimSuffix(string(line), "\r"))
		p = p[i+1:]
	}
	return n, nil
}

// flush emits a final line that had no newline. Call it after Wait.
func (w *lineWriter) flush() {
	if len(w.partial) > 0 {
		w.emit(w.stream, strings.TrimSuffix(string(w.partial), "\r"))
		w.partial = nil
	}
}

// exitCodeOf prefers the reaped process state, which survives errors that are
// not *exec.ExitError.
func exitCodeOf(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return ExitCode(waitErr)
}

// MergeEnv returns the inherited environment followed by extra, sorted by key.
// It returns nil when extra is empty so exec keeps the default environment.
func MergeEnv(extra map[string]string) []string {
	if len(extra) == 0 {
		return nil
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := os.Environ()
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}

// ExitCode extracts a process exit code from the error returned by Wait or Run.
// Returns 0 for nil, the process status for *exec.ExitError, and -1 otherwise
// (including processes killed by a signal).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
