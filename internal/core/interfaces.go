package core

import "github.com/dkeye/Pages/internal/domain"

// Frame is a marshaled event payload.
type Frame []byte

// ConnID is the transport-assigned identity of one live connection.
type ConnID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// ClientSession binds an authenticated user to its transport endpoint.
// This is what the presence router fans out to.
type ClientSession interface {
	User() *domain.User
	Signal() SignalConnection
}

type clientSession struct {
	user *domain.User
	conn SignalConnection
}

func NewClientSession(user *domain.User, conn SignalConnection) ClientSession {
	return &clientSession{user: user, conn: conn}
}

func (s *clientSession) User() *domain.User       { return s.user }
func (s *clientSession) Signal() SignalConnection { return s.conn }
