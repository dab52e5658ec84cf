package pty

import (
	"bytes"
	"io"
	"sync"
)

// FilterReader decorates a raw process output stream (stdout or stderr)
// with the negotiated output modes. It also carries an injection buffer
// so a paired FilterWriter can echo input into it when ECHO is on;
// injected bytes are delivered ahead of process output.
//
// FilterReader owns the underlying stream and closes it exactly once.
type FilterReader struct {
	mu      sync.Mutex
	r       io.ReadCloser
	modes   Modes
	echoBuf bytes.Buffer
	pending []byte
	closed  bool
}

// NewFilterReader wraps a raw process output stream. Ownership of r
// passes to the returned reader.
func NewFilterReader(r io.ReadCloser, modes Modes) *FilterReader {
	return &FilterReader{r: r, modes: modes}
}

func (f *FilterReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		f.mu.Lock()
		if len(f.pending) > 0 {
			n := copy(p, f.pending)
			f.pending = f.pending[n:]
			f.mu.Unlock()
			return n, nil
		}
		if f.echoBuf.Len() > 0 {
			n, _ := f.echoBuf.Read(p)
			f.mu.Unlock()
			return n, nil
		}
		f.mu.Unlock()

		buf := make([]byte, 4096)
		n, err := f.r.Read(buf)
		if n > 0 {
			f.mu.Lock()
			f.pending = append(f.pending, f.translate(buf[:n])...)
			f.mu.Unlock()
			continue
		}
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
}

// translate applies the output modes to a chunk of process output.
func (f *FilterReader) translate(in []byte) []byte {
	onlcr := f.modes.Enabled(ONlCr)
	ocrnl := f.modes.Enabled(OCrNl)
	if !onlcr && !ocrnl {
		out := make([]byte, len(in))
		copy(out, in)
		return out
	}
	out := make([]byte, 0, len(in)+bytes.Count(in, []byte{'\n'}))
	for _, c := range in {
		switch {
		case c == '\r' && ocrnl:
			out = append(out, '\n')
		case c == '\n' && onlcr:
			out = append(out, '\r', '\n')
		default:
			out = append(out, c)
		}
	}
	return out
}

// inject queues echoed input for delivery ahead of process output.
func (f *FilterReader) inject(p []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.echoBuf.Write(p)
}

// Close closes the underlying stream. Subsequent calls are no-ops.
func (f *FilterReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.r.Close()
}

// FilterWriter decorates the raw process stdin stream with the negotiated
// input modes. When ECHO is negotiated, written bytes are also injected
// into the paired error-stream FilterReader so the remote peer sees its
// own input interleaved with process output.
//
// FilterWriter owns the underlying stream and closes it exactly once.
type FilterWriter struct {
	mu     sync.Mutex
	w      io.WriteCloser
	echo   *FilterReader
	modes  Modes
	closed bool
}

// NewFilterWriter wraps the raw process stdin stream. echo may be nil
// when no echo destination exists. Ownership of w passes to the returned
// writer.
func NewFilterWriter(w io.WriteCloser, echo *FilterReader, modes Modes) *FilterWriter {
	return &FilterWriter{w: w, echo: echo, modes: modes}
}

func (f *FilterWriter) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	icrnl := f.modes.Enabled(ICrNl)
	inlcr := f.modes.Enabled(INlCr)
	igncr := f.modes.Enabled(IgnCr)

	out := make([]byte, 0, len(p))
	for _, c := range p {
		switch {
		case c == '\r' && igncr:
			// dropped
		case c == '\r' && icrnl:
			out = append(out, '\n')
		case c == '\n' && inlcr:
			out = append(out, '\r')
		default:
			out = append(out, c)
		}
	}

	if _, err := f.w.Write(out); err != nil {
		return 0, err
	}
	if f.echo != nil && f.modes.Enabled(Echo) {
		f.echo.inject(out)
	}
	return len(p), nil
}

// Close closes the underlying stream. Subsequent calls are no-ops.
func (f *FilterWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.w.Close()
}
