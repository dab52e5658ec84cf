package server

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/openmux/shellbridge/internal/pty"
	"github.com/openmux/shellbridge/internal/session"
	"github.com/openmux/shellbridge/internal/shared/id"
	"github.com/openmux/shellbridge/internal/shell"
)

// sshSession adapts an ssh.ServerConn to the session.Session interface
// consumed by the shell core.
type sshSession struct {
	id   id.SessionID
	conn *ssh.ServerConn
}

func (s *sshSession) ID() id.SessionID      { return s.id }
func (s *sshSession) User() string          { return s.conn.User() }
func (s *sshSession) ClientVersion() string { return string(s.conn.ClientVersion()) }
func (s *sshSession) RemoteAddr() net.Addr  { return s.conn.RemoteAddr() }

// ptyRequest carries what a pty-req negotiated.
type ptyRequest struct {
	Term  string
	Cols  uint32
	Rows  uint32
	Modes pty.Modes
}

func (s *Server) handleConn(nc net.Conn) {
	sshConn, chans, reqs, err := ssh.NewServerConn(nc, s.sshConfig)
	if err != nil {
		s.log.Debug("handshake failed",
			zap.String("remote", nc.RemoteAddr().String()),
			zap.Error(err))
		nc.Close()
		return
	}
	defer sshConn.Close()

	s.metrics.ConnectionsTotal.Inc()
	connID := uuid.NewString()
	log := s.log.With(
		zap.String("conn", connID),
		zap.String("user", sshConn.User()),
		zap.String("remote", sshConn.RemoteAddr().String()))
	log.Info("connection established",
		zap.String("client", string(sshConn.ClientVersion())))

	go ssh.DiscardRequests(reqs)

	var wg sync.WaitGroup
	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			log.Warn("channel accept failed", zap.Error(err))
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleSession(log, connID, sshConn, channel, requests)
		}()
	}
	wg.Wait()
}

// handleSession runs one session channel's request loop: environment and
// terminal negotiation, then a single shell or exec start, then
// window-change until the channel dies.
func (s *Server) handleSession(log *zap.Logger, connID string, conn *ssh.ServerConn, channel ssh.Channel, requests <-chan *ssh.Request) {
	defer channel.Close()

	vars := make(map[string]string)
	var ptyReq *ptyRequest
	var sh shell.InvertedShell

	for req := range requests {
		switch req.Type {
		case "env":
			var envReq struct{ Name, Value string }
			if sh == nil && ssh.Unmarshal(req.Payload, &envReq) == nil {
				vars[envReq.Name] = envReq.Value
			}
			reply(req, true)

		case "pty-req":
			var p struct {
				Term          string
				Cols, Rows    uint32
				Width, Height uint32
				Modes         string
			}
			if sh != nil || ssh.Unmarshal(req.Payload, &p) != nil {
				reply(req, false)
				continue
			}
			ptyReq = &ptyRequest{
				Term:  p.Term,
				Cols:  p.Cols,
				Rows:  p.Rows,
				Modes: pty.ParseModes([]byte(p.Modes)),
			}
			reply(req, true)

		case "shell":
			if sh != nil {
				reply(req, false)
				continue
			}
			started, err := s.startShell(log, connID, conn, channel, s.cfg.SSH.ShellTokens(), vars, ptyReq)
			if err != nil {
				log.Error("shell start failed", zap.Error(err))
				reply(req, false)
				continue
			}
			sh = started
			reply(req, true)

		case "exec":
			var execReq struct{ Command string }
			if sh != nil || ssh.Unmarshal(req.Payload, &execReq) != nil {
				reply(req, false)
				continue
			}
			// The configured shell template's interpreter runs exec
			// commands too. ShellTokens is validated non-empty in New.
			tokens := []string{s.cfg.SSH.ShellTokens()[0], "-c", execReq.Command}
			started, err := s.startShell(log, connID, conn, channel, tokens, vars, ptyReq)
			if err != nil {
				log.Error("exec start failed",
					zap.String("command", execReq.Command),
					zap.Error(err))
				reply(req, false)
				continue
			}
			sh = started
			reply(req, true)

		case "window-change":
			var win struct {
				Cols, Rows    uint32
				Width, Height uint32
			}
			if ssh.Unmarshal(req.Payload, &win) == nil {
				if resizable, ok := sh.(*shell.PtyShell); ok {
					if err := resizable.Resize(uint16(win.Cols), uint16(win.Rows)); err != nil {
						log.Debug("resize failed", zap.Error(err))
					}
				}
			}
			reply(req, true)

		default:
			reply(req, false)
		}
	}
}

func reply(req *ssh.Request, ok bool) {
	if req.WantReply {
		req.Reply(ok, nil)
	}
}

// startShell spawns the adapter for a session channel and wires its
// streams to the channel. The spawned process's lifetime is bounded by
// runShell, which sends exit-status and destroys the adapter.
func (s *Server) startShell(log *zap.Logger, connID string, conn *ssh.ServerConn, channel ssh.Channel, tokens []string, vars map[string]string, ptyReq *ptyRequest) (shell.InvertedShell, error) {
	sessID := id.NewSessionID()
	sess := &sshSession{id: sessID, conn: conn}

	shellLog := log.With(zap.String("session", sessID.String()))

	// The authenticated username is authoritative unless the client
	// advertised its own USER variable.
	if _, ok := vars["USER"]; !ok && conn.User() != "" {
		vars["USER"] = conn.User()
	}

	var (
		sh  shell.InvertedShell
		err error
	)
	var modes pty.Modes
	if ptyReq != nil {
		modes = ptyReq.Modes
		if ptyReq.Term != "" {
			vars["TERM"] = ptyReq.Term
		}
	}
	if ptyReq != nil && s.cfg.SSH.UsePty {
		sh, err = shell.NewPty(tokens, uint16(ptyReq.Cols), uint16(ptyReq.Rows),
			shell.WithPtyLogger(shellLog))
	} else {
		sh, err = shell.New(tokens, shell.WithLogger(shellLog))
	}
	if err != nil {
		return nil, err
	}
	if err := sh.SetSession(sess); err != nil {
		return nil, err
	}

	if err := sh.Start(session.NewEnvironment(vars, modes)); err != nil {
		s.metrics.SpawnFailures.Inc()
		return nil, err
	}
	s.metrics.ShellsSpawned.Inc()
	s.metrics.SessionsActive.Inc()

	rec := NewRecord(sessID, connID, conn.User(), conn.RemoteAddr().String(), sh)
	s.registry.Add(rec)

	go s.runShell(shellLog, channel, rec)
	return sh, nil
}

// runShell pipes channel and adapter streams, waits for the process to
// exit, reports the exit status, and tears the adapter down.
func (s *Server) runShell(log *zap.Logger, channel ssh.Channel, rec *Record) {
	sh := rec.Shell()

	// Client input; client EOF closes the process's stdin.
	go func() {
		stdin := sh.Stdin()
		io.Copy(stdin, channel)
		stdin.Close()
	}()

	// Drain both output endpoints fully before reporting the exit
	// status, so no trailing bytes are lost.
	var outputs sync.WaitGroup
	outputs.Add(2)
	go func() {
		defer outputs.Done()
		io.Copy(channel, sh.Stdout())
	}()
	go func() {
		defer outputs.Done()
		io.Copy(channel.Stderr(), sh.Stderr())
	}()

	code, err := sh.ExitValue(context.Background())
	outputs.Wait()

	if err != nil {
		log.Error("exit wait failed", zap.Error(err))
	} else {
		s.metrics.ObserveExit(code)
		status := struct{ Status uint32 }{Status: uint32(code)}
		if code < 0 {
			// Signal-killed; the wire format has no slot for -1.
			status.Status = 128
		}
		channel.SendRequest("exit-status", false, ssh.Marshal(&status))
		log.Info("session finished", zap.Int("code", code))
	}

	sh.Destroy()
	s.registry.Remove(rec.SessionID)
	s.metrics.SessionsActive.Dec()
	channel.CloseWrite()
	channel.Close()
}
