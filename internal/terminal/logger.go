package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Style represents a log message style.
type Style string

const (
	StyleInfo    Style = "info"
	StyleSuccess Style = "success"
	StyleWarning Style = "warning"
	StyleError   Style = "error"
	StyleDim     Style = "dim"
	StylePhase   Style = "phase"
)

// Tag is the prefix shown on every log line.
const Tag = "forge"

// Logger provides styled logging, to stderr by default.
type Logger struct {
	mu    sync.Mutex
	w     io.Writer
	isTTY bool
}

// NewLogger creates a logger writing to stderr.
func NewLogger() *Logger {
	return &Logger{
		w:     os.Stderr,
		isTTY: IsStderrTTY(),
	}
}

// NewLoggerTo creates a logger writing to w. Line clearing is disabled.
func NewLoggerTo(w io.Writer) *Logger {
	return &Logger{w: w}
}

func styleColor(style Style) string {
	switch style {
	case StyleSuccess:
		return Green
	case StyleWarning:
		return Yellow
	case StyleError:
		return Red
	case StyleDim:
		return Dim
	case StylePhase:
		return Magenta + Bold
	default:
		return Cyan
	}
}

// tag renders "[forge]" with the style color.
func tag(color string) string {
	return fmt.Sprintf("%s[%s%s%s%s%s]%s",
		Color(Dim), Color(Reset), Color(color), Tag, Color(Reset), Color(Dim), Color(Reset))
}

// Log prints a styled log message.
func (l *Logger) Log(msg string, style Style) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Clear a spinner line if TTY
	if l.isTTY {
		fmt.Fprint(l.w, "\r"+strings.Repeat(" ", 100)+"\r")
	}
	fmt.Fprintf(l.w, "%s %s\n", tag(styleColor(style)), msg)
}

// Logf prints a formatted styled log message.
func (l *Logger) Logf(style Style, format string, args ...any) {
	l.Log(fmt.Sprintf(format, args...), style)
}

// Writer returns the destination of the logger.
func (l *Logger) Writer() io.Writer {
	return l.w
}

// Log prints a styled log message to stderr (package-level function).
func Log(msg string, style Style) {
	NewLogger().Log(msg, style)
}

// Logf prints a formatted styled log message to stderr (package-level function).
func Logf(style Style, format string, args ...any) {
	Log(fmt.Sprintf(format, args...), style)
}
