// Package shell spawns an OS process to fulfill an interactive command or
// shell request and bridges the session's logical input/output/error
// streams to the process's standard streams.
//
// The package is the seam between the session abstraction (terminal
// modes, environment variables, session identity) and the host's
// process-spawning facility. It deliberately does not implement terminal
// emulation, does not parse process output, and never retries: retry
// policy belongs to the caller.
//
// Two implementations exist:
//   - ProcessShell: plain pipes decorated with terminal-mode filters
//   - PtyShell: a real pseudo-terminal, for sessions that requested one
//
// Both follow the InvertedShell lifecycle contract; see its doc comment.
package shell
