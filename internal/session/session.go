// Package session bridges accepted SSH connections and the hub. Each
// connection gets a client id and an outbound mailbox; the handler turns
// newline-delimited JSON requests into hub commands and streams hub
// notifications back over the wire. The hub's registries are never touched
// directly from here.
package session

import (
	"time"

	"github.com/gliderlabs/ssh"
	"github.com/google/uuid"

	"github.com/coterm/coterm/internal/hub"
	"github.com/coterm/coterm/internal/protocol"
)

// Session is the per-connection state. All fields are set once at accept
// time; the joined player is tracked by the read loop alone.
type Session struct {
	ID         uuid.UUID
	Conn       ssh.Session
	Out        *hub.Mailbox[protocol.Notification]
	Username   string
	RemoteAddr string
	StartTime  time.Time
}

// NewSession wraps an accepted SSH session.
func NewSession(s ssh.Session) *Session {
	return &Session{
		ID:         uuid.New(),
		Conn:       s,
		Out:        hub.NewMailbox[protocol.Notification](),
		Username:   s.User(),
		RemoteAddr: s.RemoteAddr().String(),
		StartTime:  time.Now(),
	}
}
