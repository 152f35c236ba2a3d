package terminal

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestPhaseSpinner_NonTTY(t *testing.T) {
	var buf bytes.Buffer
	s := &PhaseSpinner{w: &buf, isTTY: false, label: "Probing"}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("phase spinner did not exit")
	}
	if buf.Len() != 0 {
		t.Errorf("non-TTY spinner should draw nothing, got %q", buf.String())
	}
}

func TestPhaseSpinner_TTYDrawsFinalFrame(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	s := &PhaseSpinner{w: &buf, isTTY: true, label: "Probing"}

	stop := s.Start(context.Background())
	time.Sleep(3 * spinnerInterval / 2)
	stop()

	out := buf.String()
	if !strings.HasSuffix(out, "\r[forge] ✓ Probing          \n") {
		t.Errorf("unexpected final frame in %q", out)
	}
}

func TestNewPhaseSpinner(t *testing.T) {
	s := NewPhaseSpinner("Building")
	if s.label != "Building" {
		t.Errorf("label = %q, want %q", s.label, "Building")
	}
}
