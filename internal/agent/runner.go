package agent

import (
	"context"
	"io"
	"strings"

	"github.com/forgeloop/forge/internal/domain"
)

// InteractiveRunner starts agent invocations as interactive sessions.
type InteractiveRunner struct {
	svc *Service
}

// NewInteractiveRunner wraps svc.RunInteractive as a Runner.
func NewInteractiveRunner(svc *Service) *InteractiveRunner {
	return &InteractiveRunner{svc: svc}
}

// Start implements Runner.
func (r *InteractiveRunner) Start(ctx context.Context, prompt string, onLine func(string)) (Handle, error) {
	s, err := r.svc.RunInteractive(ctx, prompt, onLine)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// BatchRunner runs each invocation to completion with RunBatch and replays
// the captured output to onLine afterwards. It is used when no terminal is
// attached for relaying input, and it honors the skip-execution switch.
type BatchRunner struct {
	svc   *Service
	label string
}

// NewBatchRunner wraps svc.RunBatch as a Runner. label is passed as the
// context label of every invocation.
func NewBatchRunner(svc *Service, label string) *BatchRunner {
	return &BatchRunner{svc: svc, label: label}
}

// Start implements Runner. The returned Handle has already finished.
func (r *BatchRunner) Start(ctx context.Context, prompt string, onLine func(string)) (Handle, error) {
	result, err := r.svc.RunBatch(ctx, prompt, r.label)
	if err != nil && result == (domain.ProcessResult{}) {
		return nil, err
	}
	_ = FrameLines(strings.NewReader(result.Stdout), onLine)
	_ = FrameLines(strings.NewReader(result.Stderr), onLine)
	return &finishedHandle{result: result, err: err}, nil
}

// finishedHandle is a Handle for an invocation that has already exited.
type finishedHandle struct {
	result domain.ProcessResult
	err    error
}

func (h *finishedHandle) Stdin() io.WriteCloser {
	return nopWriteCloser{io.Discard}
}

func (h *finishedHandle) Wait() (domain.ProcessResult, error) {
	return h.result, h.err
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
