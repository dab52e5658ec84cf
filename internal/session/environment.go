package session

import "github.com/openmux/shellbridge/internal/pty"

// Environment bundles what the session negotiated before the shell
// request: advertised environment variables and terminal-mode options.
// It is immutable once built; accessors hand out copies so resolver
// policies can never alias state owned by a running adapter.
type Environment struct {
	vars  map[string]string
	modes pty.Modes
}

// NewEnvironment copies the supplied maps into an immutable bundle.
// Either map may be nil.
func NewEnvironment(vars map[string]string, modes pty.Modes) *Environment {
	e := &Environment{
		vars:  make(map[string]string, len(vars)),
		modes: make(pty.Modes, len(modes)),
	}
	for k, v := range vars {
		e.vars[k] = v
	}
	for op, v := range modes {
		e.modes[op] = v
	}
	return e
}

// Variables returns a copy of the advertised environment variables.
func (e *Environment) Variables() map[string]string {
	out := make(map[string]string, len(e.vars))
	for k, v := range e.vars {
		out[k] = v
	}
	return out
}

// Value looks up a single variable.
func (e *Environment) Value(name string) (string, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// PtyModes returns a copy of the negotiated terminal-mode options.
func (e *Environment) PtyModes() pty.Modes {
	return e.modes.Clone()
}
