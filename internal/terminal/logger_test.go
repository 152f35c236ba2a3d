package terminal

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestLogger_Log_AllStyles(t *testing.T) {
	DisableColors()
	defer EnableColors()

	styles := []Style{StyleInfo, StyleSuccess, StyleWarning, StyleError, StyleDim, StylePhase}
	for _, style := range styles {
		t.Run(string(style), func(t *testing.T) {
			var buf bytes.Buffer
			NewLoggerTo(&buf).Log("test message", style)

			if got := buf.String(); got != "[forge] test message\n" {
				t.Errorf("output = %q", got)
			}
		})
	}
}

func TestLogger_Logf(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	NewLoggerTo(&buf).Logf(StyleInfo, "formatted %s %d", "test", 42)

	if !strings.Contains(buf.String(), "formatted test 42") {
		t.Errorf("expected formatted message, got %q", buf.String())
	}
}

func TestLogger_Log_WithColors(t *testing.T) {
	EnableColors()

	var buf bytes.Buffer
	NewLoggerTo(&buf).Log("colored message", StyleSuccess)

	if !strings.Contains(buf.String(), Green+Tag) {
		t.Errorf("expected green tag in colored output, got %q", buf.String())
	}
}

func TestLogger_Log_TTYClearsLine(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	logger := &Logger{w: &buf, isTTY: true}
	logger.Log("tty message", StyleInfo)

	if !strings.HasPrefix(buf.String(), "\r") {
		t.Errorf("expected carriage return in TTY output, got %q", buf.String())
	}
}

func TestLogger_ConcurrentLinesDoNotInterleave(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	logger := NewLoggerTo(&buf)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Log("abcdefghij", StyleInfo)
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 50 {
		t.Fatalf("expected 50 lines, got %d", len(lines))
	}
	for _, l := range lines {
		if l != "[forge] abcdefghij" {
			t.Fatalf("corrupted line %q", l)
		}
	}
}

func TestNewLogger_WritesToStderr(t *testing.T) {
	if NewLogger().Writer() == nil {
		t.Fatal("NewLogger should have a writer")
	}
}
