package server

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/time/rate"

	"github.com/openmux/shellbridge/internal/config"
	"github.com/openmux/shellbridge/internal/monitoring"
)

// Server accepts SSH connections and bridges session channels to shell
// adapters.
type Server struct {
	cfg      *config.Config
	log      *zap.Logger
	metrics  *monitoring.Metrics
	registry *Registry

	sshConfig *ssh.ServerConfig
	limiter   *rate.Limiter

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// New creates a server instance. The host key is loaded from
// cfg.SSH.HostKeyPath, or an ephemeral ed25519 key is generated when the
// path is empty.
func New(cfg *config.Config, log *zap.Logger, metrics *monitoring.Metrics) (*Server, error) {
	if len(cfg.SSH.ShellTokens()) == 0 {
		return nil, errors.New("server: empty shell command")
	}

	sshConfig, err := buildSSHConfig(cfg.SSH)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.RateLimit.Enabled {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst)
	}

	return &Server{
		cfg:       cfg,
		log:       log,
		metrics:   metrics,
		registry:  NewRegistry(),
		sshConfig: sshConfig,
		limiter:   limiter,
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

func buildSSHConfig(cfg config.SSHConfig) (*ssh.ServerConfig, error) {
	sshConfig := &ssh.ServerConfig{}

	switch {
	case cfg.NoClientAuth:
		sshConfig.NoClientAuth = true
	case cfg.AuthUser != "" && cfg.AuthPassword != "":
		user, password := cfg.AuthUser, cfg.AuthPassword
		sshConfig.PasswordCallback = func(conn ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			userOK := subtle.ConstantTimeCompare([]byte(conn.User()), []byte(user)) == 1
			passOK := subtle.ConstantTimeCompare(pass, []byte(password)) == 1
			if userOK && passOK {
				return &ssh.Permissions{}, nil
			}
			return nil, fmt.Errorf("password rejected for %q", conn.User())
		}
	default:
		return nil, errors.New("server: no auth configured (set AUTH_USER/AUTH_PASSWORD or NO_CLIENT_AUTH)")
	}

	signer, err := loadHostKey(cfg.HostKeyPath)
	if err != nil {
		return nil, err
	}
	sshConfig.AddHostKey(signer)
	return sshConfig, nil
}

func loadHostKey(path string) (ssh.Signer, error) {
	if path == "" {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("server: generate host key: %w", err)
		}
		return ssh.NewSignerFromKey(priv)
	}
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server: read host key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("server: parse host key: %w", err)
	}
	return signer, nil
}

// Registry exposes the live-session registry for the debug API.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Addr returns the bound listener address, or nil before Run.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run listens on the configured address and serves connections until
// Close. It blocks.
func (s *Server) Run() error {
	listener, err := net.Listen("tcp", s.cfg.SSH.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.SSH.Addr, err)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		listener.Close()
		return errors.New("server: already closed")
	}
	s.listener = listener
	s.mu.Unlock()

	s.log.Info("listening", zap.String("addr", listener.Addr().String()))

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			return fmt.Errorf("server: accept: %w", err)
		}

		if s.limiter != nil && !s.limiter.Allow() {
			s.log.Warn("connection rejected by rate limit",
				zap.String("remote", conn.RemoteAddr().String()))
			conn.Close()
			continue
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.mu.Lock()
				delete(s.conns, conn)
				s.mu.Unlock()
			}()
			s.handleConn(conn)
		}()
	}
}

// Close stops accepting connections, waits for in-flight handlers, and
// destroys any shells still registered.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	listener := s.listener
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}
	for _, c := range conns {
		c.Close()
	}
	s.wg.Wait()

	s.registry.Each(func(rec *Record) {
		rec.Shell().Destroy()
		s.registry.Remove(rec.SessionID)
	})
	return err
}
