package shell

import (
	"errors"
	"strconv"
)

// Sentinel errors for adapter misuse and startup failures.
//
// Contract violations (nil/double session binding, double start, querying
// an unstarted adapter) indicate programmer error in the calling layer
// and are never recoverable by retrying against the same adapter.
var (
	// ErrEmptyCommand indicates construction with no command tokens.
	ErrEmptyCommand = errors.New("shell: empty command")

	// ErrNilSession indicates binding a nil session handle.
	ErrNilSession = errors.New("shell: nil session")

	// ErrSessionBound indicates a second session binding, or one made
	// after the process started.
	ErrSessionBound = errors.New("shell: session already bound")

	// ErrNoSession indicates Start was called before binding a session.
	ErrNoSession = errors.New("shell: no session bound")

	// ErrStarted indicates a second Start on the same adapter.
	ErrStarted = errors.New("shell: process already started")

	// ErrNotStarted indicates a liveness or exit query before Start.
	ErrNotStarted = errors.New("shell: process not started")

	// ErrNoUser indicates the command contains the user placeholder but
	// the resolved environment carries no USER value to substitute.
	ErrNoUser = errors.New("shell: no USER value for placeholder")

	// ErrWaitInterrupted indicates a blocked ExitValue was cancelled via
	// its context. It is distinct from any process exit status.
	ErrWaitInterrupted = errors.New("shell: wait interrupted")
)

// SpawnError reports that the operating system refused or failed to
// create the process. The adapter that produced it is unusable and must
// be discarded; it retains no partial state.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return "shell: spawn " + strconv.Quote(e.Command) + ": " + e.Err.Error()
}

func (e *SpawnError) Unwrap() error { return e.Err }
