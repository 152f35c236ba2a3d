package agent

import (
	"context"
	"errors"

	"github.com/forgeloop/forge/internal/domain"
	"github.com/forgeloop/forge/internal/process"
)

// ErrInteractiveSkipped is returned by RunInteractive when agent execution is
// disabled. A bidirectional session cannot be simulated.
var ErrInteractiveSkipped = errors.New("interactive agent sessions are unavailable while agent execution is skipped")

// SkippedOutputPrefix starts the synthetic output RunBatch returns when
// execution is skipped.
const SkippedOutputPrefix = "agent execution skipped: "

// Service runs the agent CLI using the fixed invocation protocol.
// Each call owns exactly one OS process.
type Service struct {
	cfg  Config
	exec *process.Executor
}

// NewService creates a Service. A nil executor uses process.NewExecutor().
func NewService(cfg Config, exec *process.Executor) *Service {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if exec == nil {
		exec = process.NewExecutor()
	}
	return &Service{cfg: cfg, exec: exec}
}

// Config returns the resolved agent configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// RunBatch runs the agent to completion and returns the aggregated result.
// contextLabel identifies the invocation in the synthetic result produced
// when execution is skipped; no process is spawned in that case.
func (s *Service) RunBatch(ctx context.Context, prompt, contextLabel string) (domain.ProcessResult, error) {
	if s.cfg.SkipExecution {
		return domain.ProcessResult{ExitCode: 0, Stdout: SkippedOutputPrefix + contextLabel}, nil
	}

	args, err := BuildArgs(s.cfg, prompt)
	if err != nil {
		return domain.ProcessResult{}, err
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	return s.exec.Run(ctx, process.Command{Args: args, Dir: s.cfg.WorkDir}, nil)
}

// RunInteractive starts the agent with its streams left open and returns the
// live Session. Output lines, including carriage-return progress redraws, are
// delivered to onLine from a background goroutine. The caller must call Wait.
func (s *Service) RunInteractive(ctx context.Context, prompt string, onLine func(string)) (*Session, error) {
	if s.cfg.SkipExecution {
		return nil, ErrInteractiveSkipped
	}

	args, err := BuildArgs(s.cfg, prompt)
	if err != nil {
		return nil, err
	}

	return startSession(ctx, sessionOptions{
		Args:    args,
		WorkDir: s.cfg.WorkDir,
		Timeout: s.cfg.Timeout,
	}, onLine)
}
