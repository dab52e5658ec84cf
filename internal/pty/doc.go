// Package pty models negotiated pseudo-terminal mode options and provides
// the stream decorators that translate raw process bytes to and from those
// modes.
//
// This is byte translation only (CR/NL mapping and input echo), not
// terminal emulation: escape sequences pass through untouched.
//
// Wiring:
//   - FilterReader wraps process stdout/stderr (output direction)
//   - FilterWriter wraps process stdin (input direction) and, when ECHO
//     is negotiated, echoes input into the paired error FilterReader
package pty
