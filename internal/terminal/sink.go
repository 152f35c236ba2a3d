package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Sink receives fix loop output: raw agent and build lines via OnLine, and
// phase changes and errors via OnStatus. Every line carries an HH:MM:SS
// timestamp. Writes are serialized so lines from concurrent readers never
// interleave mid-line.
type Sink struct {
	mu     sync.Mutex
	w      io.Writer
	status *Logger
	now    func() time.Time
	quiet  bool
}

// NewSink creates a Sink writing output lines to w and status lines to status.
// When quiet is set, OnLine output is suppressed and only status lines are shown.
func NewSink(w io.Writer, status *Logger, quiet bool) *Sink {
	return &Sink{w: w, status: status, now: time.Now, quiet: quiet}
}

func (s *Sink) stamp() string {
	return s.now().Format("15:04:05")
}

// OnLine writes one line of subprocess output.
func (s *Sink) OnLine(line string) {
	if s.quiet {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s%s%s %s\n", Color(Dim), s.stamp(), Color(Reset), line)
}

// OnStatus writes a status message through the status logger.
func (s *Sink) OnStatus(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Log(s.stamp()+" "+msg, statusStyle(msg))
}

// statusStyle picks a style from the message prefix ("error:", "warning:", ...).
func statusStyle(msg string) Style {
	lower := strings.ToLower(msg)
	switch {
	case strings.HasPrefix(lower, "error"):
		return StyleError
	case strings.HasPrefix(lower, "warning"):
		return StyleWarning
	case strings.HasPrefix(lower, "success"):
		return StyleSuccess
	case strings.HasPrefix(lower, "phase"):
		return StylePhase
	default:
		return StyleInfo
	}
}
