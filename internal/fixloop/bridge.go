package fixloop

import (
	"bufio"
	"io"
	"sync"
)

// InputBridge relays lines typed by the user to whichever agent session is
// currently attached. A single pump goroutine owns the reader for the
// bridge's lifetime, so no session ever reads the caller's input directly
// and a line read while no session is attached waits for the next one.
type InputBridge struct {
	lines chan string

	mu      sync.Mutex
	pending []string
}

// NewInputBridge starts pumping lines from r (typically os.Stdin).
// The pump goroutine exits at EOF or on a read error.
func NewInputBridge(r io.Reader) *InputBridge {
	b := &InputBridge{lines: make(chan string)}
	go b.pump(r)
	return b
}

func (b *InputBridge) pump(r io.Reader) {
	defer close(b.lines)
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if line[len(line)-1] != '\n' {
				line += "\n"
			}
			b.lines <- line
		}
		if err != nil {
			return
		}
	}
}

// Attach forwards input to w until the returned detach function is called.
// Once the input reaches EOF, w is closed so the agent sees end-of-input.
// A nil bridge closes w immediately. detach blocks until forwarding stops.
func (b *InputBridge) Attach(w io.WriteCloser) (detach func()) {
	if b == nil {
		_ = w.Close()
		return func() {}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		if !b.flushPending(w) {
			return
		}
		for {
			select {
			case <-stop:
				return
			case line, ok := <-b.lines:
				if !ok {
					_ = w.Close()
					return
				}
				if _, err := io.WriteString(w, line); err != nil {
					// The session ended; keep the line for the next one.
					b.keep(line)
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stop) })
		<-done
	}
}

func (b *InputBridge) keep(line string) {
	b.mu.Lock()
	b.pending = append(b.pending, line)
	b.mu.Unlock()
}

// flushPending writes lines kept from a previous session. It reports false
// if w failed, leaving the remaining lines pending.
func (b *InputBridge) flushPending(w io.Writer) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.pending) > 0 {
		if _, err := io.WriteString(w, b.pending[0]); err != nil {
			return false
		}
		b.pending = b.pending[1:]
	}
	return true
}
