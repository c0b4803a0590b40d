package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// SessionJoinedEvent is emitted when a session joins a room.
type SessionJoinedEvent struct {
	SessionID string    `json:"session_id"`
	Username  string    `json:"username"`
	Room      string    `json:"room"`
	Previous  string    `json:"previous,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionLeftEvent is emitted when a session leaves a room, explicitly or by
// disconnecting.
type SessionLeftEvent struct {
	SessionID    string    `json:"session_id"`
	Username     string    `json:"username"`
	Room         string    `json:"room"`
	Disconnected bool      `json:"disconnected"`
	Timestamp    time.Time `json:"timestamp"`
}

// MessageRelayedEvent is emitted after a chat message was fanned out.
type MessageRelayedEvent struct {
	MessageID  string    `json:"message_id"`
	SessionID  string    `json:"session_id"`
	Username   string    `json:"username"`
	Room       string    `json:"room"`
	Recipients int       `json:"recipients"`
	Timestamp  time.Time `json:"timestamp"`
}

// LikeRelayedEvent is emitted after a like toggle was fanned out.
type LikeRelayedEvent struct {
	MessageID  string    `json:"message_id"`
	SessionID  string    `json:"session_id"`
	Room       string    `json:"room"`
	Delta      int       `json:"delta"`
	Likes      *int      `json:"likes,omitempty"`
	Recipients int       `json:"recipients"`
	Timestamp  time.Time `json:"timestamp"`
}

// Event definitions for the relay.
var (
	SessionJoinedV1 = helper.EventDefinition[SessionJoinedEvent](
		"relay",
		"SessionJoined",
		"v1",
	)

	SessionLeftV1 = helper.EventDefinition[SessionLeftEvent](
		"relay",
		"SessionLeft",
		"v1",
	)

	MessageRelayedV1 = helper.EventDefinition[MessageRelayedEvent](
		"relay",
		"MessageRelayed",
		"v1",
	)

	LikeRelayedV1 = helper.EventDefinition[LikeRelayedEvent](
		"relay",
		"LikeRelayed",
		"v1",
	)
)
