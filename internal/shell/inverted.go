package shell

import (
	"context"
	"fmt"
	"io"

	"github.com/openmux/shellbridge/internal/session"
)

// InvertedShell is a shell seen from the server's side: its input is an
// endpoint the server writes to and its output/error are endpoints the
// server reads from, inverted relative to the process's own view.
//
// Lifecycle contract shared by all implementations:
//   - SetSession at most once, before Start
//   - Start at most once; a failed Start leaves the shell unusable
//   - IsAlive and ExitValue are valid only after Start
//   - ExitValue returns the same code on every call once observed,
//     including after Destroy
//   - Destroy is idempotent and callable from any state
type InvertedShell interface {
	fmt.Stringer

	SetSession(sess session.Session) error
	Start(env *session.Environment) error

	Stdin() io.WriteCloser
	Stdout() io.ReadCloser
	Stderr() io.ReadCloser

	IsAlive() (bool, error)
	ExitValue(ctx context.Context) (int, error)
	Destroy()
}

var (
	_ InvertedShell = (*ProcessShell)(nil)
	_ InvertedShell = (*PtyShell)(nil)
)
