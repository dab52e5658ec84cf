package shell

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/openmux/shellbridge/internal/session"
)

// PtyShell is the pseudo-terminal-backed variant of the adapter, used
// when the session negotiated a real terminal. The kernel's line
// discipline performs the byte translation that ProcessShell's filters
// do, so no mode filtering is layered on top; stderr is merged into the
// terminal stream, as a real terminal does.
//
// PtyShell follows the same lifecycle contract as ProcessShell.
type PtyShell struct {
	log        *zap.Logger
	resolveEnv EnvironmentResolver
	cols, rows uint16

	mu      sync.Mutex
	spec    *CommandSpec
	sess    session.Session
	cmd     *exec.Cmd
	ptmx    *os.File
	started bool
	killed  bool

	ptmxClose sync.Once
	closeErr  error

	done     chan struct{}
	exitCode int
}

// PtyOption customizes a PtyShell at construction.
type PtyOption func(*PtyShell)

// WithPtyLogger sets the adapter's logger. Defaults to a no-op logger.
func WithPtyLogger(log *zap.Logger) PtyOption {
	return func(s *PtyShell) { s.log = log }
}

// WithPtyEnvironmentResolver overrides the environment policy hook.
func WithPtyEnvironmentResolver(r EnvironmentResolver) PtyOption {
	return func(s *PtyShell) { s.resolveEnv = r }
}

// NewPty creates a PTY-backed adapter with the given initial window size.
// Zero dimensions fall back to 80x24.
func NewPty(tokens []string, cols, rows uint16, opts ...PtyOption) (*PtyShell, error) {
	spec, err := NewCommandSpec(tokens)
	if err != nil {
		return nil, err
	}
	if cols == 0 {
		cols = 80
	}
	if rows == 0 {
		rows = 24
	}
	s := &PtyShell{
		log:        zap.NewNop(),
		resolveEnv: ResolveEnvironmentIdentity,
		cols:       cols,
		rows:       rows,
		spec:       spec,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Session returns the bound session handle, or nil before binding.
func (s *PtyShell) Session() session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

// SetSession binds the owning session. It may be called exactly once,
// and only before Start.
func (s *PtyShell) SetSession(sess session.Session) error {
	if sess == nil {
		return ErrNilSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.sess != nil {
		return ErrSessionBound
	}
	s.sess = sess
	return nil
}

// Start spawns the process attached to a freshly allocated terminal.
func (s *PtyShell) Start(env *session.Environment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess == nil {
		return ErrNoSession
	}
	if s.started {
		return ErrStarted
	}

	vars := s.resolveEnv(env.Variables())

	spec := s.spec
	if spec.needsUser() {
		user, ok := vars["USER"]
		if !ok || user == "" {
			return ErrNoUser
		}
		spec = spec.substituteUser(user)
	}

	tokens := spec.Tokens()
	cmd := exec.Command(tokens[0], tokens[1:]...)
	environ := os.Environ()
	environ = append(environ, "TERM=xterm-256color")
	for k, v := range vars {
		if k == "" || k == "TERM" {
			continue
		}
		environ = append(environ, k+"="+v)
	}
	cmd.Env = environ

	s.log.Debug("starting pty shell",
		zap.String("command", spec.String()),
		zap.String("session", s.sess.ID().String()))

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: s.rows, Cols: s.cols})
	if err != nil {
		return &SpawnError{Command: spec.String(), Err: err}
	}

	s.spec = spec
	s.cmd = cmd
	s.ptmx = ptmx
	s.started = true

	go s.reap()
	return nil
}

func (s *PtyShell) reap() {
	err := s.cmd.Wait()
	s.exitCode = s.cmd.ProcessState.ExitCode()
	close(s.done)

	if err != nil {
		s.log.Debug("pty shell exited", zap.String("command", s.String()), zap.Error(err))
	}
}

// Resize changes the terminal dimensions of a running shell.
func (s *PtyShell) Resize(cols, rows uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return ErrNotStarted
	}
	if s.killed {
		return nil
	}
	s.cols, s.rows = cols, rows
	return pty.Setsize(s.ptmx, &pty.Winsize{Rows: rows, Cols: cols})
}

// closePtmx closes the terminal exactly once, no matter how many
// endpoints or Destroy calls ask for it.
func (s *PtyShell) closePtmx() error {
	s.ptmxClose.Do(func() {
		if s.ptmx != nil {
			s.closeErr = s.ptmx.Close()
		}
	})
	return s.closeErr
}

// Stdin is the adapter-input endpoint, writing into the terminal.
func (s *PtyShell) Stdin() io.WriteCloser {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ptmx == nil {
		return nil
	}
	return &ptmxEndpoint{shell: s}
}

// Stdout is the adapter-output endpoint; the terminal merges the
// process's stdout and stderr into this stream.
func (s *PtyShell) Stdout() io.ReadCloser {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ptmx == nil {
		return nil
	}
	return &ptmxEndpoint{shell: s}
}

// Stderr is always empty for a PTY-backed shell.
func (s *PtyShell) Stderr() io.ReadCloser {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ptmx == nil {
		return nil
	}
	return emptyStream{}
}

// IsAlive reports whether the process is still running. Querying before
// Start is a contract violation.
func (s *PtyShell) IsAlive() (bool, error) {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return false, ErrNotStarted
	}
	select {
	case <-s.done:
		return false, nil
	default:
		return true, nil
	}
}

// ExitValue blocks until the process exits and returns its exit code;
// see ProcessShell.ExitValue for the full contract.
func (s *PtyShell) ExitValue(ctx context.Context) (int, error) {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return 0, ErrNotStarted
	}
	select {
	case <-s.done:
		return s.exitCode, nil
	case <-ctx.Done():
		return 0, errors.Join(ErrWaitInterrupted, ctx.Err())
	}
}

// Destroy terminates the process and releases the terminal. Idempotent;
// the process handle is never cleared, so ExitValue stays valid.
func (s *PtyShell) Destroy() {
	s.mu.Lock()
	if !s.started || s.killed {
		s.mu.Unlock()
		return
	}
	s.killed = true
	cmd := s.cmd
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		s.log.Debug("destroying pty shell", zap.String("command", s.String()))
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.log.Debug("kill failed", zap.String("command", s.String()), zap.Error(err))
		}
	}
	if err := s.closePtmx(); err != nil {
		s.log.Warn("failed to close pty", zap.String("command", s.String()), zap.Error(err))
	}
}

// String returns the command's display string.
func (s *PtyShell) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spec == nil || s.spec.String() == "" {
		return "shell.PtyShell"
	}
	return s.spec.String()
}

// ptmxEndpoint exposes the shared terminal file as a stream endpoint
// whose Close tears the terminal down exactly once.
type ptmxEndpoint struct {
	shell *PtyShell
}

func (e *ptmxEndpoint) Read(p []byte) (int, error)  { return e.shell.ptmx.Read(p) }
func (e *ptmxEndpoint) Write(p []byte) (int, error) { return e.shell.ptmx.Write(p) }
func (e *ptmxEndpoint) Close() error                { return e.shell.closePtmx() }

type emptyStream struct{}

func (emptyStream) Read([]byte) (int, error) { return 0, io.EOF }
func (emptyStream) Close() error             { return nil }
