package relay

import "github.com/google/uuid"

// Role of a connection inside a room.
type Role string

const (
	RolePublisher  Role = "publisher"
	RoleSubscriber Role = "subscriber"
)

// ParseRole maps a wire role string to a Role
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RolePublisher:
		return RolePublisher, true
	case RoleSubscriber:
		return RoleSubscriber, true
	}
	return "", false
}

// Sender delivers an outbound envelope to one connection.
// Implementations must not block (queue or drop).
type Sender interface {
	Send(env Envelope)
}

// Session is the typed per-connection record: who is connected, with which
// role, and in which room. The engine is the only writer; each session is
// touched from its own connection's read loop.
type Session struct {
	ConnID string // throttle + log key, never sent to clients
	UserID string
	Role   Role
	RoomID string // empty when not joined

	sender Sender
}

// NewSession creates a session for a freshly opened connection
func NewSession(sender Sender) *Session {
	return &Session{ConnID: uuid.NewString(), sender: sender}
}

// Send forwards an envelope to the session's connection
func (s *Session) Send(env Envelope) {
	if s.sender != nil {
		s.sender.Send(env)
	}
}
