package chat

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event names carried in Envelope.Event.
const (
	EventJoinRoom    = "join room"
	EventLeaveRoom   = "leave room"
	EventChatMessage = "chat message"
	EventToggleLike  = "toggle like"
	EventError       = "error"
)

// Defaults applied when a payload omits the field.
const (
	DefaultUsername = "Unknown"
	DefaultRoom     = "general"
)

// Sentinel errors for payload validation.
var (
	ErrMissingMessageID = errors.New("message id is required")
	ErrInvalidDelta     = errors.New("delta must be +1 or -1")
)

// Envelope is a single WebSocket text frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode marshals payload into an envelope frame for event.
func Encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %q payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// Decode unmarshals the envelope data into v.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %q has no data", e.Event)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("invalid %q payload: %w", e.Event, err)
	}
	return nil
}

// RoomEvent is the payload of join room and leave room.
type RoomEvent struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// Normalize fills in missing fields.
func (p *RoomEvent) Normalize() {
	if p.Username == "" {
		p.Username = DefaultUsername
	}
	if p.Room == "" {
		p.Room = DefaultRoom
	}
}

// Message is a chat message as sent on the wire and persisted by clients.
type Message struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Likes     int    `json:"likes"`
	Room      string `json:"room"`
}

// Normalize fills in missing fields and clamps the like counter.
func (m *Message) Normalize() {
	if m.Username == "" {
		m.Username = DefaultUsername
	}
	if m.Room == "" {
		m.Room = DefaultRoom
	}
	if m.Likes < 0 {
		m.Likes = 0
	}
}

// Validate reports whether the message can be relayed.
func (m Message) Validate() error {
	if m.ID == "" {
		return ErrMissingMessageID
	}
	return nil
}

// LikeToggle is the payload of toggle like. Likes is set only by a relay
// that keeps an authoritative counter.
type LikeToggle struct {
	ID    string `json:"id"`
	Delta int    `json:"delta"`
	Room  string `json:"room"`
	Likes *int   `json:"likes,omitempty"`
}

// Normalize fills in a missing room.
func (l *LikeToggle) Normalize() {
	if l.Room == "" {
		l.Room = DefaultRoom
	}
}

// Validate reports whether the toggle can be relayed.
func (l LikeToggle) Validate() error {
	if l.ID == "" {
		return ErrMissingMessageID
	}
	if l.Delta != 1 && l.Delta != -1 {
		return ErrInvalidDelta
	}
	return nil
}

// ErrorEvent is sent by the relay to a client whose frame was rejected.
type ErrorEvent struct {
	Message string `json:"message"`
}
