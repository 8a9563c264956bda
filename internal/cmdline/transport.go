package cmdline

import "io"

// Transport is the byte-level shape of the USB-CDC virtual serial link the
// Command Parser/Reporter rides on. It matches the read/write/buffered
// surface tinygo-uartx's *UART exposes, so internal/platform can hand a
// live UART straight to LineReader on-target; tests use a bytes.Buffer or
// io.Pipe pair.
type Transport interface {
	io.Reader
	io.Writer
	Buffered() int
}

// LineReader accumulates bytes from a Transport and dispatches complete
// lines to a Parser. Lines are delimited by '\n', '\r' or NUL. It is
// event-driven in spirit (PumpOnce does one Read sized to whatever is
// currently Buffered) so the scheduler glue can invoke it from a
// USB-RX-notified task.
type LineReader struct {
	src    Transport
	parser *Parser
	buf    []byte
}

// NewLineReader returns a reader dispatching complete lines to p.
func NewLineReader(src Transport, p *Parser) *LineReader {
	return &LineReader{src: src, parser: p}
}

// PumpOnce does one Read from the transport, feeding every complete line to
// the parser, and returns the number of lines handled. The Read asks for
// Buffered() bytes, or for 64 bytes when Buffered reports nothing pending;
// in that case whether PumpOnce blocks depends on the transport's Read.
func (lr *LineReader) PumpOnce() (linesHandled int) {
	n := lr.src.Buffered()
	if n <= 0 {
		n = 64
	}
	chunk := make([]byte, n)
	read, err := lr.src.Read(chunk)
	if read == 0 {
		_ = err
		return 0
	}
	lr.buf = append(lr.buf, chunk[:read]...)

	start := 0
	for i := 0; i < len(lr.buf); i++ {
		switch lr.buf[i] {
		case '\n', '\r', 0:
			if i > start {
				lr.parser.HandleLine(string(lr.buf[start:i]))
				linesHandled++
			}
			start = i + 1
		}
	}
	lr.buf = append(lr.buf[:0], lr.buf[start:]...)
	return linesHandled
}
