package server

import (
	"sync"
	"time"

	"github.com/openmux/shellbridge/internal/shared/id"
	"github.com/openmux/shellbridge/internal/shell"
)

// Record tracks one live shell adapter and the identity of the session
// that owns it.
type Record struct {
	SessionID    id.SessionID
	ConnectionID string
	User         string
	RemoteAddr   string
	Command      string
	StartedAt    time.Time

	shell shell.InvertedShell
}

// NewRecord builds a registry record for a freshly started adapter.
func NewRecord(sessionID id.SessionID, connectionID, user, remoteAddr string, sh shell.InvertedShell) *Record {
	return &Record{
		SessionID:    sessionID,
		ConnectionID: connectionID,
		User:         user,
		RemoteAddr:   remoteAddr,
		Command:      sh.String(),
		StartedAt:    time.Now(),
		shell:        sh,
	}
}

// Shell returns the adapter backing this record.
func (r *Record) Shell() shell.InvertedShell {
	return r.shell
}

// Info is the public representation of a session record.
type Info struct {
	ID         string    `json:"id"`
	Connection string    `json:"connection"`
	User       string    `json:"user"`
	RemoteAddr string    `json:"remote_addr"`
	Command    string    `json:"command"`
	StartedAt  time.Time `json:"started_at"`
	Active     bool      `json:"active"`
}

// Registry tracks live sessions for the debug API and metrics.
type Registry struct {
	sessions sync.Map // map[id.SessionID]*Record
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a record under its session ID.
func (r *Registry) Add(rec *Record) {
	r.sessions.Store(rec.SessionID, rec)
}

// Remove drops a record.
func (r *Registry) Remove(sessionID id.SessionID) {
	r.sessions.Delete(sessionID)
}

// Get retrieves a record by session ID.
func (r *Registry) Get(sessionID id.SessionID) (*Record, bool) {
	value, ok := r.sessions.Load(sessionID)
	if !ok {
		return nil, false
	}
	return value.(*Record), true
}

// Snapshot returns the public view of all tracked sessions.
func (r *Registry) Snapshot() []Info {
	var infos []Info
	r.sessions.Range(func(_, value interface{}) bool {
		rec := value.(*Record)
		alive, err := rec.shell.IsAlive()
		infos = append(infos, Info{
			ID:         rec.SessionID.String(),
			Connection: rec.ConnectionID,
			User:       rec.User,
			RemoteAddr: rec.RemoteAddr,
			Command:    rec.Command,
			StartedAt:  rec.StartedAt,
			Active:     err == nil && alive,
		})
		return true
	})
	return infos
}

// Each visits every record; used during shutdown to destroy stragglers.
func (r *Registry) Each(fn func(*Record)) {
	r.sessions.Range(func(_, value interface{}) bool {
		fn(value.(*Record))
		return true
	})
}
