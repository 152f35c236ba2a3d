package agent

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/forgeloop/forge/internal/domain"
	"github.com/forgeloop/forge/internal/process"
)

// Session is a live interactive agent process.
// It owns the OS process, the writer connected to the process's stdin, and the
// background goroutine that reads the merged output stream.
// A Session ends when Wait returns.
type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	ctx    context.Context
	cancel context.CancelFunc

	// output is written only by the reader goroutine and read only after
	// reader.Wait returns.
	output strings.Builder
	reader errgroup.Group

	waitOnce sync.Once
	result   domain.ProcessResult
	waitErr  error
}

func newSession(ctx context.Context, cancel context.CancelFunc, cmd *exec.Cmd, stdin io.WriteCloser) *Session {
	return &Session{
		cmd:    cmd,
		stdin:  stdin,
		ctx:    ctx,
		cancel: cancel,
	}
}

// startReader frames the merged output into lines until EOF.
func (s *Session) startReader(r *os.File, onLine func(string)) {
	s.reader.Go(func() error {
		defer r.Close()
		return FrameLines(io.TeeReader(r, &s.output), onLine)
	})
}

// Stdin returns the writer connected to the agent's standard input, used to
// relay input the agent asks for (credentials, confirmations).
func (s *Session) Stdin() io.WriteCloser {
	return s.stdin
}

// PID returns the operating system process ID of the agent.
func (s *Session) PID() int {
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Wait blocks until the reader goroutine has drained all output and the
// process has exited, then returns the result. The merged output is reported
// as Stdout. Wait is safe to call more than once; later calls return the
// first result.
//
// If the session context was canceled or its timeout expired, the process
// group has been killed and the context error is returned with the partial result.
func (s *Session) Wait() (domain.ProcessResult, error) {
	s.waitOnce.Do(func() {
		readErr := s.reader.Wait()
		err := s.cmd.Wait()
		ctxErr := s.ctx.Err()
		s.cancel()

		s.result = domain.ProcessResult{
			ExitCode: process.ExitCode(err),
			Stdout:   s.output.String(),
		}
		switch {
		case ctxErr != nil:
			s.waitErr = ctxErr
		case readErr != nil:
			s.waitErr = fmt.Errorf("failed to read agent output: %w", readErr)
		}
	})
	return s.result, s.waitErr
}
