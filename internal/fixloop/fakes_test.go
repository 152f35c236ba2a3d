package fixloop

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/forgeloop/forge/internal/agent"
	"github.com/forgeloop/forge/internal/buildplan"
	"github.com/forgeloop/forge/internal/domain"
	"github.com/forgeloop/forge/internal/process"
	"github.com/forgeloop/forge/internal/prompt"
)

func ok() domain.ProcessResult { return domain.ProcessResult{} }

func failed(stderr string) domain.ProcessResult {
	return domain.ProcessResult{ExitCode: 1, Stderr: stderr}
}

// agentStep scripts one agent invocation.
type agentStep struct {
	result   domain.ProcessResult
	startErr error
	waitErr  error
	// block makes Wait block until the context is done.
	block bool
}

type fakeRunner struct {
	mu      sync.Mutex
	dir     string
	steps   []agentStep
	args    []string
	staged  []string
	handles []*fakeHandle
}

func (f *fakeRunner) Start(ctx context.Context, arg string, onLine func(string)) (agent.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(f.args)
	f.args = append(f.args, arg)
	staged, _ := os.ReadFile(filepath.Join(f.dir, prompt.FileName))
	f.staged = append(f.staged, string(staged))

	step := agentStep{}
	if n < len(f.steps) {
		step = f.steps[n]
	}
	if step.startErr != nil {
		return nil, step.startErr
	}
	onLine("agent working")

	h := &fakeHandle{ctx: ctx, step: step, stdin: newCaptureWriter()}
	f.handles = append(f.handles, h)
	return h, nil
}

func (f *fakeRunner) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.args)
}

type fakeHandle struct {
	ctx   context.Context
	step  agentStep
	stdin *captureWriter
}

func (h *fakeHandle) Stdin() io.WriteCloser { return h.stdin }

func (h *fakeHandle) Wait() (domain.ProcessResult, error) {
	if h.step.block {
		<-h.ctx.Done()
		return domain.ProcessResult{ExitCode: -1}, h.ctx.Err()
	}
	return h.step.result, h.step.waitErr
}

type fakeBuilds struct {
	mu       sync.Mutex
	results  []domain.ProcessResult
	errs     map[int]error
	commands []process.Command
	// onRun, when set, is called with the index of each build.
	onRun func(n int)
}

func (f *fakeBuilds) Run(ctx context.Context, cmd process.Command, onLine process.LineFunc) (domain.ProcessResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(f.commands)
	f.commands = append(f.commands, cmd)
	if f.onRun != nil {
		f.onRun(n)
	}
	if err := f.errs[n]; err != nil {
		return domain.ProcessResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.ProcessResult{ExitCode: -1}, err
	}
	if n >= len(f.results) {
		return ok(), nil
	}
	res := f.results[n]
	if res.Stderr != "" {
		onLine(process.Stderr, res.Stderr)
	}
	return res, nil
}

func (f *fakeBuilds) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.commands)
}

type recordingSink struct {
	mu       sync.Mutex
	lines    []string
	statuses []string
}

func (s *recordingSink) OnLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
}

func (s *recordingSink) OnStatus(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, msg)
}

// captureWriter records writes and whether it was closed.
type captureWriter struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed chan struct{}
	once   sync.Once
	fail   bool
}

func newCaptureWriter() *captureWriter {
	return &captureWriter{closed: make(chan struct{})}
}

func (w *captureWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail {
		return 0, os.ErrClosed
	}
	select {
	case <-w.closed:
		return 0, os.ErrClosed
	default:
	}
	return w.buf.Write(p)
}

func (w *captureWriter) Close() error {
	w.once.Do(func() { close(w.closed) })
	return nil
}

func (w *captureWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func singleStepPlan(string, string, buildplan.Config) buildplan.Plan {
	return buildplan.Plan{
		Description: "test build",
		Commands:    []buildplan.Command{{Args: []string{"make"}}},
	}
}

type harness struct {
	dir    string
	runner *fakeRunner
	builds *fakeBuilds
	sink   *recordingSink
	cfg    Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	return &harness{
		dir:    dir,
		runner: &fakeRunner{dir: dir},
		builds: &fakeBuilds{},
		sink:   &recordingSink{},
		cfg:    Config{LockDir: t.TempDir(), Planner: singleStepPlan},
	}
}

func (h *harness) task() domain.Task {
	return domain.Task{Name: "demo", Description: "build a demo", Language: "go", WorkDir: h.dir}
}

func (h *harness) run(t *testing.T, ctx context.Context) Outcome {
	t.Helper()
	c, err := New(h.cfg, h.runner, h.builds, h.sink)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c.Run(ctx, h.task())
}
