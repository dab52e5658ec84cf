package pty

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func encodeModes(pairs ...uint32) []byte {
	// pairs come as opcode, value, opcode, value, ...
	var out []byte
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, byte(pairs[i]))
		out = binary.BigEndian.AppendUint32(out, pairs[i+1])
	}
	return append(out, byte(OpEnd))
}

func TestParseModes(t *testing.T) {
	data := encodeModes(
		uint32(Echo), 1,
		uint32(ICrNl), 0,
		uint32(ONlCr), 1,
		uint32(TtyOpISpeed), 38400,
	)

	modes := ParseModes(data)
	assert.Equal(t, Modes{
		Echo:        1,
		ICrNl:       0,
		ONlCr:       1,
		TtyOpISpeed: 38400,
	}, modes)

	assert.True(t, modes.Enabled(Echo))
	assert.False(t, modes.Enabled(ICrNl)) // present but zero
	assert.False(t, modes.Enabled(OCrNl)) // absent
}

func TestParseModesStopsAtTerminator(t *testing.T) {
	data := encodeModes(uint32(Echo), 1)
	data = append(data, byte(ICrNl), 0, 0, 0, 1) // trailing garbage past OpEnd

	modes := ParseModes(data)
	assert.Equal(t, Modes{Echo: 1}, modes)
}

func TestParseModesMalformed(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, ParseModes(nil))
	})
	t.Run("truncated pair", func(t *testing.T) {
		data := []byte{byte(Echo), 0, 0}
		assert.Empty(t, ParseModes(data))
	})
	t.Run("undefined opcode range", func(t *testing.T) {
		data := []byte{200, 0, 0, 0, 1}
		assert.Empty(t, ParseModes(data))
	})
	t.Run("valid prefix before truncation", func(t *testing.T) {
		data := []byte{byte(Echo), 0, 0, 0, 1, byte(ONlCr), 0}
		assert.Equal(t, Modes{Echo: 1}, ParseModes(data))
	})
}

func TestModesClone(t *testing.T) {
	orig := Modes{Echo: 1, ONlCr: 1}
	clone := orig.Clone()
	clone[Echo] = 0
	clone[ICrNl] = 1

	assert.Equal(t, Modes{Echo: 1, ONlCr: 1}, orig)
	assert.Equal(t, Modes{Echo: 0, ONlCr: 1, ICrNl: 1}, clone)
}
