// Package session defines the boundary between the channel transport and
// the shell adapter: who the remote peer is, and what it negotiated.
package session

import (
	"net"
	"strings"

	"github.com/openmux/shellbridge/internal/shared/id"
)

// Session is the adapter's view of the owning remote session. The
// transport layer implements it; the shell core only reads from it.
type Session interface {
	// ID returns the stable identifier assigned when the session opened.
	ID() id.SessionID

	// User returns the authenticated username for the session.
	User() string

	// ClientVersion returns the raw client identification string
	// advertised during the handshake (e.g. "SSH-2.0-PuTTY_Release_0.81").
	ClientVersion() string

	// RemoteAddr returns the peer's network address.
	RemoteAddr() net.Addr
}

// IsPuttyClient reports whether the session belongs to the PuTTY client
// family, which negotiates terminal modes that misbehave with
// pass-through handling.
func IsPuttyClient(s Session) bool {
	if s == nil {
		return false
	}
	return strings.Contains(strings.ToLower(s.ClientVersion()), "putty")
}
