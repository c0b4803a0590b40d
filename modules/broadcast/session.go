package broadcast

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// Conn is the part of a WebSocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

const defaultWriteTimeout = 10 * time.Second

// Session is one live client connection.
type Session struct {
	ID string

	conn         Conn
	writeMu      sync.Mutex
	writeTimeout time.Duration

	// mu guards username and room. Lock order is session, then bucket.
	mu       sync.Mutex
	username string
	room     string
}

// NewSession creates a session that is not yet in any room.
func NewSession(id, username string, conn Conn) *Session {
	return &Session{
		ID:           id,
		conn:         conn,
		writeTimeout: defaultWriteTimeout,
		username:     username,
	}
}

// Username returns the name the session last declared.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// Room returns the current room, or "" if the session is in none.
func (s *Session) Room() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// Send writes one text frame. Concurrent senders are serialized and a peer
// that stops reading fails the write after the session's write timeout.
func (s *Session) Send(frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

// close does not take writeMu: closing the connection is what unblocks a
// write in progress.
func (s *Session) close() error {
	return s.conn.Close()
}
