package shell

import (
	"github.com/openmux/shellbridge/internal/pty"
	"github.com/openmux/shellbridge/internal/session"
)

// EnvironmentResolver maps the session's advertised environment variables
// to the variables actually passed to the child process. Implementations
// must not mutate their input; they may return it unchanged, or return a
// new map with variables filtered, rewritten, or added.
type EnvironmentResolver func(vars map[string]string) map[string]string

// ResolveEnvironmentIdentity is the default resolver: the advertised
// variables pass through unchanged.
func ResolveEnvironmentIdentity(vars map[string]string) map[string]string {
	return vars
}

// TtyOptionResolver maps negotiated terminal-mode options to the options
// actually honored by the stream filters. It is total: every input
// produces a usable option set.
type TtyOptionResolver func(sess session.Session, modes pty.Modes) pty.Modes

// ResolveTtyOptions is the default resolver: pass-through, except for
// PuTTY-family clients, which get a fixed alternate option set.
func ResolveTtyOptions(sess session.Session, modes pty.Modes) pty.Modes {
	if session.IsPuttyClient(sess) {
		return PuttyTtyOptions(modes)
	}
	return modes
}

// PuttyTtyOptions returns the alternate option set for PuTTY-family
// clients. Forcing echo and CR/NL mapping on top of whatever was
// negotiated gives correct output with both PuTTY and conforming clients.
func PuttyTtyOptions(modes pty.Modes) pty.Modes {
	resolved := modes.Clone()
	resolved[pty.Echo] = 1
	resolved[pty.ICrNl] = 1
	resolved[pty.ONlCr] = 1
	return resolved
}
