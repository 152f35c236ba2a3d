package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

const spinnerInterval = 200 * time.Millisecond

var spinnerFrames = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

// PhaseSpinner displays a simple spinner for a single phase.
type PhaseSpinner struct {
	w     io.Writer
	isTTY bool
	label string
}

// NewPhaseSpinner creates a new phase spinner on stderr.
func NewPhaseSpinner(label string) *PhaseSpinner {
	return &PhaseSpinner{
		w:     os.Stderr,
		isTTY: IsStderrTTY(),
		label: label,
	}
}

// Run runs the phase spinner until the context is cancelled.
// Without a TTY it only waits.
func (s *PhaseSpinner) Run(ctx context.Context) {
	if !s.isTTY {
		<-ctx.Done()
		return
	}

	idx := 0
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprint(s.w, s.frame(Green, "✓")+"          \n")
			return

		case <-ticker.C:
			fmt.Fprint(s.w, s.frame(Cyan, string(spinnerFrames[idx%len(spinnerFrames)]))+"          ")
			idx++
		}
	}
}

func (s *PhaseSpinner) frame(color, symbol string) string {
	return fmt.Sprintf("\r%s %s%s%s %s", tag(color), Color(color), symbol, Color(Reset), s.label)
}

// Start runs the spinner in the background and returns a function that
// stops it and waits for the final frame to be drawn.
func (s *PhaseSpinner) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}
