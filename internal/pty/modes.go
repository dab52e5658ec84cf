package pty

import "encoding/binary"

// Mode is a terminal-mode opcode as negotiated in an SSH "pty-req"
// request (RFC 4254 section 8).
type Mode uint8

// Opcodes this package understands. Unknown opcodes are carried through
// ParseModes untouched so resolvers can still see them.
const (
	OpEnd Mode = 0

	// Input modes
	INlCr Mode = 34 // map NL to CR on input
	IgnCr Mode = 35 // ignore CR on input
	ICrNl Mode = 36 // map CR to NL on input

	// Local modes
	Echo Mode = 53 // enable echoing of input

	// Output modes
	ONlCr Mode = 72 // map NL to CR-NL on output
	OCrNl Mode = 73 // map CR to NL on output

	// Speed pseudo-opcodes; values are baud rates, not flags.
	TtyOpISpeed Mode = 128
	TtyOpOSpeed Mode = 129
)

// Modes maps negotiated terminal-mode opcodes to their values. A value of
// zero disables a flag opcode; any non-zero value enables it.
type Modes map[Mode]uint32

// Enabled reports whether a flag opcode is present with a non-zero value.
func (m Modes) Enabled(op Mode) bool {
	return m[op] != 0
}

// Clone returns an independent copy of the mode map.
func (m Modes) Clone() Modes {
	out := make(Modes, len(m))
	for op, v := range m {
		out[op] = v
	}
	return out
}

// ParseModes decodes the encoded terminal-mode stream carried in a
// pty-req payload: a sequence of (opcode, uint32 big-endian) pairs
// terminated by OpEnd. Opcodes 160-255 are not defined by the protocol
// and stop the parse, as do truncated pairs. Parsing is total: malformed
// tails simply end the map early.
func ParseModes(data []byte) Modes {
	modes := make(Modes)
	for len(data) > 0 {
		op := Mode(data[0])
		if op == OpEnd || op >= 160 {
			break
		}
		if len(data) < 5 {
			break
		}
		modes[op] = binary.BigEndian.Uint32(data[1:5])
		data = data[5:]
	}
	return modes
}
