package agent

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
)

// FrameLines reads r one byte at a time and calls onLine for every line.
//
// Both '\n' and '\r' terminate a line. The agent CLI redraws progress
// indicators with a bare '\r'; a line-buffered reader would never surface
// those updates, so a carriage return flushes the buffer just like a newline.
// Delimiters are stripped. A "\r\n" pair produces a single line, an empty
// buffer is not flushed by '\r', and a newline on an empty buffer that does
// not follow '\r' produces an empty line. Any remaining text is flushed once
// at end of stream.
//
// Framing works on bytes, so lines carry the stream's bytes unchanged, even
// when they are not valid UTF-8. Multibyte UTF-8 sequences never contain '\r'
// or '\n' and are never split.
//
// FrameLines returns nil at EOF and the read error otherwise.
func FrameLines(r io.Reader, onLine func(string)) error {
	br := bufio.NewReader(r)
	var buf strings.Builder
	afterCR := false

	flush := func() {
		if onLine != nil {
			onLine(buf.String())
		}
		buf.Reset()
	}

	for {
		b, err := br.ReadByte()
		if err != nil {
			if buf.Len() > 0 {
				flush()
			}
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return err
		}

		switch b {
		case '\r':
			if buf.Len() > 0 {
				flush()
			}
			afterCR = true
			continue
		case '\n':
			if buf.Len() > 0 || !afterCR {
				flush()
			}
		default:
			buf.WriteByte(b)
		}
		afterCR = false
	}
}
