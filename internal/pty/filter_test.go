package pty

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closableBuffer adapts bytes.Buffer for stream ownership tests.
type closableBuffer struct {
	bytes.Buffer
	closed int
}

func (b *closableBuffer) Close() error {
	b.closed++
	return nil
}

func readAll(t *testing.T, r io.Reader) string {
	t.Helper()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestFilterReaderPassthrough(t *testing.T) {
	src := io.NopCloser(strings.NewReader("plain\ntext\r"))
	r := NewFilterReader(src, nil)
	assert.Equal(t, "plain\ntext\r", readAll(t, r))
}

func TestFilterReaderONlCr(t *testing.T) {
	src := io.NopCloser(strings.NewReader("a\nb\nc"))
	r := NewFilterReader(src, Modes{ONlCr: 1})
	assert.Equal(t, "a\r\nb\r\nc", readAll(t, r))
}

func TestFilterReaderOCrNl(t *testing.T) {
	src := io.NopCloser(strings.NewReader("a\rb"))
	r := NewFilterReader(src, Modes{OCrNl: 1})
	assert.Equal(t, "a\nb", readAll(t, r))
}

func TestFilterReaderDisabledModeIsIgnored(t *testing.T) {
	src := io.NopCloser(strings.NewReader("a\nb"))
	r := NewFilterReader(src, Modes{ONlCr: 0})
	assert.Equal(t, "a\nb", readAll(t, r))
}

func TestFilterReaderSmallDestination(t *testing.T) {
	src := io.NopCloser(strings.NewReader("x\n"))
	r := NewFilterReader(src, Modes{ONlCr: 1})

	// One-byte reads must deliver the expansion across calls without
	// losing the held-back remainder.
	var got []byte
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, "x\r\n", string(got))
}

func TestFilterReaderCloseOnce(t *testing.T) {
	src := &closableBuffer{}
	r := NewFilterReader(src, nil)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, 1, src.closed)
}

func TestFilterWriterInputModes(t *testing.T) {
	tests := []struct {
		name  string
		modes Modes
		in    string
		want  string
	}{
		{"passthrough", nil, "a\r\nb", "a\r\nb"},
		{"icrnl", Modes{ICrNl: 1}, "a\rb", "a\nb"},
		{"inlcr", Modes{INlCr: 1}, "a\nb", "a\rb"},
		{"igncr", Modes{IgnCr: 1}, "a\r\nb", "a\nb"},
		{"igncr wins over icrnl", Modes{IgnCr: 1, ICrNl: 1}, "a\rb", "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := &closableBuffer{}
			w := NewFilterWriter(dst, nil, tt.modes)
			n, err := w.Write([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, len(tt.in), n, "consumed count reflects input, not output")
			assert.Equal(t, tt.want, dst.String())
		})
	}
}

func TestFilterWriterEchoesToReader(t *testing.T) {
	stderr := NewFilterReader(io.NopCloser(strings.NewReader("")), Modes{Echo: 1})
	dst := &closableBuffer{}
	w := NewFilterWriter(dst, stderr, Modes{Echo: 1, ICrNl: 1})

	_, err := w.Write([]byte("hi\r"))
	require.NoError(t, err)

	// The echo carries the translated bytes, ahead of stream data.
	buf := make([]byte, 8)
	n, err := stderr.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hi\n", string(buf[:n]))
}

func TestFilterWriterNoEchoWhenDisabled(t *testing.T) {
	stderr := NewFilterReader(io.NopCloser(strings.NewReader("tail")), nil)
	w := NewFilterWriter(&closableBuffer{}, stderr, Modes{Echo: 0})

	_, err := w.Write([]byte("typed"))
	require.NoError(t, err)

	// Only the stream contents come back; nothing was injected.
	assert.Equal(t, "tail", readAll(t, stderr))
}

func TestFilterWriterCloseOnce(t *testing.T) {
	dst := &closableBuffer{}
	w := NewFilterWriter(dst, nil, nil)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Equal(t, 1, dst.closed)
}
