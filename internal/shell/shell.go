package shell

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/openmux/shellbridge/internal/pty"
	"github.com/openmux/shellbridge/internal/session"
)

// ProcessShell bridges the I/O streams between a remote shell request and
// the OS process that executes it. One adapter owns exactly one process
// for its whole lifetime; it cannot be restarted.
type ProcessShell struct {
	log        *zap.Logger
	resolveEnv EnvironmentResolver
	resolveTty TtyOptionResolver

	mu      sync.Mutex
	spec    *CommandSpec
	sess    session.Session
	cmd     *exec.Cmd
	started bool
	killed  bool

	in     *pty.FilterWriter
	out    *pty.FilterReader
	errOut *pty.FilterReader

	// done closes once the reaper observes process exit; exitCode is
	// written before the close and never changes afterwards.
	done     chan struct{}
	exitCode int
}

// Option customizes a ProcessShell at construction.
type Option func(*ProcessShell)

// WithLogger sets the adapter's logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *ProcessShell) { s.log = log }
}

// WithEnvironmentResolver overrides the environment policy hook.
func WithEnvironmentResolver(r EnvironmentResolver) Option {
	return func(s *ProcessShell) { s.resolveEnv = r }
}

// WithTtyOptionResolver overrides the terminal-mode policy hook.
func WithTtyOptionResolver(r TtyOptionResolver) Option {
	return func(s *ProcessShell) { s.resolveTty = r }
}

// New creates an adapter for the given command tokens. The tokens are
// copied; the overall sequence must be non-empty.
func New(tokens []string, opts ...Option) (*ProcessShell, error) {
	spec, err := NewCommandSpec(tokens)
	if err != nil {
		return nil, err
	}
	s := &ProcessShell{
		log:        zap.NewNop(),
		resolveEnv: ResolveEnvironmentIdentity,
		resolveTty: ResolveTtyOptions,
		spec:       spec,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Session returns the bound session handle, or nil before binding.
func (s *ProcessShell) Session() session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

// SetSession binds the owning session. It may be called exactly once,
// and only before Start.
func (s *ProcessShell) SetSession(sess session.Session) error {
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

// Start resolves the environment and terminal modes, substitutes the user
// placeholder, spawns the process, and binds the three stream endpoints.
//
// A spawn failure leaves the adapter unusable; it retains no partial
// state and must be discarded rather than restarted.
func (s *ProcessShell) Start(env *session.Environment) error {
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
	cmd.Env = s.buildEnviron(vars, spec.String())

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return &SpawnError{Command: spec.String(), Err: err}
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		return &SpawnError{Command: spec.String(), Err: err}
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		stdoutR.Close()
		stdoutW.Close()
		return &SpawnError{Command: spec.String(), Err: err}
	}
	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	s.log.Debug("starting shell",
		zap.String("command", spec.String()),
		zap.String("session", s.sess.ID().String()))

	if err := cmd.Start(); err != nil {
		stdinR.Close()
		stdinW.Close()
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		return &SpawnError{Command: spec.String(), Err: err}
	}

	// The child owns its pipe ends now; keeping ours open would block
	// EOF on stdout/stderr after exit.
	stdinR.Close()
	stdoutW.Close()
	stderrW.Close()

	// Record the process before binding streams so Destroy can reach it
	// even if wiring fails.
	s.spec = spec
	s.cmd = cmd
	s.started = true

	modes := s.resolveTty(s.sess, env.PtyModes())
	s.out = pty.NewFilterReader(stdoutR, modes)
	s.errOut = pty.NewFilterReader(stderrR, modes)
	s.in = pty.NewFilterWriter(stdinW, s.errOut, modes)

	go s.reap()
	return nil
}

// buildEnviron merges the resolved variables over the inherited process
// environment. Malformed variables are skipped with a warning; shaping
// the environment is best-effort and never aborts startup.
func (s *ProcessShell) buildEnviron(vars map[string]string, display string) []string {
	environ := os.Environ()
	for k, v := range vars {
		if k == "" || strings.ContainsAny(k, "=\x00") || strings.ContainsRune(v, 0) {
			s.log.Warn("skipping malformed environment variable",
				zap.String("name", k),
				zap.String("command", display))
			continue
		}
		environ = append(environ, k+"="+v)
	}
	return environ
}

// reap waits for the process to exit and publishes its exit code. It is
// the only caller of Wait, so concurrent ExitValue callers all block on
// the done channel instead of racing over the OS wait.
func (s *ProcessShell) reap() {
	err := s.cmd.Wait()
	code := s.cmd.ProcessState.ExitCode()
	s.exitCode = code
	close(s.done)

	if err != nil && code < 0 {
		s.log.Debug("shell terminated by signal",
			zap.String("command", s.String()),
			zap.Error(err))
	} else {
		s.log.Debug("shell exited",
			zap.String("command", s.String()),
			zap.Int("code", code))
	}
}

// Stdin is the adapter-input endpoint: bytes written here reach the
// process's standard input after terminal-mode encoding.
func (s *ProcessShell) Stdin() io.WriteCloser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.in
}

// Stdout is the adapter-output endpoint for the process's standard output.
func (s *ProcessShell) Stdout() io.ReadCloser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out
}

// Stderr is the adapter-error endpoint for the process's standard error.
func (s *ProcessShell) Stderr() io.ReadCloser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errOut
}

// IsAlive reports whether the process is still running. Querying before
// Start is a contract violation.
func (s *ProcessShell) IsAlive() (bool, error) {
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

// ExitValue blocks until the process exits and returns its exit code.
// Once the code has been observed it is returned immediately on every
// subsequent call, including after Destroy. Context cancellation surfaces
// as ErrWaitInterrupted, never as an exit status.
func (s *ProcessShell) ExitValue(ctx context.Context) (int, error) {
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

// Destroy terminates the process (best-effort) and closes all three
// stream endpoints, continuing past individual close failures and logging
// them as one aggregated report. It is idempotent and safe to call from
// any state, including before Start and concurrently with a blocked
// ExitValue.
//
// The process handle is never cleared: ExitValue stays valid after
// Destroy.
func (s *ProcessShell) Destroy() {
	s.mu.Lock()
	if !s.started || s.killed {
		// No process handle exists yet, or teardown already ran.
		s.mu.Unlock()
		return
	}
	s.killed = true
	cmd := s.cmd
	in, out, errOut := s.in, s.out, s.errOut
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		s.log.Debug("destroying shell process", zap.String("command", s.String()))
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.log.Debug("kill failed", zap.String("command", s.String()), zap.Error(err))
		}
	}

	// Nil checks happen on the concrete pointers; a typed nil wrapped in
	// io.Closer would compare non-nil.
	var closers []io.Closer
	if in != nil {
		closers = append(closers, in)
	}
	if out != nil {
		closers = append(closers, out)
	}
	if errOut != nil {
		closers = append(closers, errOut)
	}

	var closeErrs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			closeErrs = append(closeErrs, err)
		}
	}
	if err := errors.Join(closeErrs...); err != nil {
		s.log.Warn("failed to close shell streams",
			zap.String("command", s.String()),
			zap.Error(err))
	}
}

// String returns the command's display string, or a generic identity if
// the command is somehow empty (construction already forbids this).
func (s *ProcessShell) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spec == nil || s.spec.String() == "" {
		return "shell.ProcessShell"
	}
	return s.spec.String()
}
