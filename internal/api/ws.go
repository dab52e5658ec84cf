package api

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/openmux/shellbridge/internal/server"
	"github.com/openmux/shellbridge/internal/session"
	"github.com/openmux/shellbridge/internal/shared/id"
	"github.com/openmux/shellbridge/internal/shell"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // debug listener binds loopback in practice
	},
}

// wsAddr satisfies net.Addr for websocket peers.
type wsAddr string

func (a wsAddr) Network() string { return "tcp" }
func (a wsAddr) String() string  { return string(a) }

// webSession adapts a websocket attach to the session.Session interface.
type webSession struct {
	sessID id.SessionID
	user   string
	remote string
}

func (s *webSession) ID() id.SessionID      { return s.sessID }
func (s *webSession) User() string          { return s.user }
func (s *webSession) ClientVersion() string { return "websocket" }
func (s *webSession) RemoteAddr() net.Addr  { return wsAddr(s.remote) }

// attachShell upgrades the connection, spawns a shell session, and
// bridges websocket messages to the adapter's streams: binary frames in
// both directions, a close frame carrying the exit code at the end.
func (a *API) attachShell(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	user := c.DefaultQuery("user", "web")
	sessID := id.NewSessionID()
	log := a.log.With(zap.String("session", sessID.String()))

	sh, err := shell.New(a.shellTokens, shell.WithLogger(log))
	if err != nil {
		log.Error("shell construction failed", zap.Error(err))
		return
	}
	if err := sh.SetSession(&webSession{
		sessID: sessID,
		user:   user,
		remote: c.Request.RemoteAddr,
	}); err != nil {
		log.Error("session binding failed", zap.Error(err))
		return
	}

	vars := map[string]string{"USER": user}
	if err := sh.Start(session.NewEnvironment(vars, nil)); err != nil {
		a.metrics.SpawnFailures.Inc()
		log.Error("shell start failed", zap.Error(err))
		return
	}
	a.metrics.ShellsSpawned.Inc()
	a.metrics.SessionsActive.Inc()

	a.registry.Add(server.NewRecord(sessID, uuid.NewString(), user, c.Request.RemoteAddr, sh))

	defer func() {
		sh.Destroy()
		a.registry.Remove(sessID)
		a.metrics.SessionsActive.Dec()
	}()

	// Writes to a websocket connection must come from one goroutine;
	// funnel stdout, stderr, and the final close frame through it.
	frames := make(chan []byte, 16)
	var pumps sync.WaitGroup
	pumps.Add(2)
	go func() {
		defer pumps.Done()
		pump(sh.Stdout(), frames)
	}()
	go func() {
		defer pumps.Done()
		pump(sh.Stderr(), frames)
	}()
	go func() {
		pumps.Wait()
		close(frames)
	}()

	go func() {
		code, err := sh.ExitValue(context.Background())
		if err == nil {
			a.metrics.ObserveExit(code)
		}
		// Let in-flight frames drain before announcing the exit.
		time.Sleep(50 * time.Millisecond)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, fmt.Sprintf("exit %d", code)),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	go func() {
		// Keep receiving after a write error: a pump blocked on a send
		// can only exit once its frame is taken, and the channel only
		// closes once both pumps exit.
		discard := false
		for frame := range frames {
			if discard {
				continue
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				discard = true
			}
		}
	}()

	stdin := sh.Stdin()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			stdin.Close()
			return
		}
		if _, err := stdin.Write(data); err != nil {
			return
		}
	}
}

// pump copies a stream into the frame channel until EOF.
func pump(r io.Reader, frames chan<- []byte) {
	for {
		buf := make([]byte, 4096)
		n, err := r.Read(buf)
		if n > 0 {
			frames <- buf[:n]
		}
		if err != nil {
			return
		}
	}
}
