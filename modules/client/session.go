package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	nanoid "github.com/jaevor/go-nanoid"

	"github.com/example/likechat/domain/chat"
	"github.com/example/likechat/modules/store"
)

// Emitter sends events to the relay. *Conn satisfies it.
type Emitter interface {
	Emit(event string, payload any) error
}

// Session ties a relay connection to the local session store.
type Session struct {
	store  *store.SessionStore
	relay  Emitter
	logger types.Logger
	newID  func() string
	now    func() time.Time

	mu sync.Mutex
	// relayRoom is the room the relay currently has us in. It differs from
	// the store's current room after a local rename.
	relayRoom string
}

// NewSession creates a controller over st that emits through relay.
func NewSession(st *store.SessionStore, relay Emitter, logger types.Logger) (*Session, error) {
	newID, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("failed to create id generator: %w", err)
	}
	return &Session{
		store:  st,
		relay:  relay,
		logger: logger,
		newID:  newID,
		now:    time.Now,
	}, nil
}

// Store returns the underlying session store.
func (s *Session) Store() *store.SessionStore {
	return s.store
}

// Room returns the open room.
func (s *Session) Room() string {
	return s.store.CurrentRoom()
}

// Join leaves the previous relay room, joins room and opens its stored
// messages. Nothing sent before the join is replayed.
func (s *Session) Join(ctx context.Context, room string) ([]chat.Message, error) {
	room = strings.TrimSpace(room)
	if room == "" {
		return nil, store.ErrInvalidRoomName
	}
	user := s.store.User()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.relayRoom != "" && s.relayRoom != room {
		if err := s.relay.Emit(chat.EventLeaveRoom, chat.RoomEvent{Username: user, Room: s.relayRoom}); err != nil {
			return nil, err
		}
		s.relayRoom = ""
	}
	if err := s.relay.Emit(chat.EventJoinRoom, chat.RoomEvent{Username: user, Room: room}); err != nil {
		return nil, err
	}
	s.relayRoom = room

	if err := s.store.AddRoom(ctx, room); err != nil {
		return nil, err
	}
	messages, err := s.store.LoadRoomMessages(ctx, room)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Joined room", "room", room, "messages", len(messages))
	return messages, nil
}

// Leave tells the relay to stop delivering the joined room. The room stays
// in the local list.
func (s *Session) Leave() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.relayRoom == "" {
		return store.ErrNoRoom
	}
	ev := chat.RoomEvent{Username: s.store.User(), Room: s.relayRoom}
	if err := s.relay.Emit(chat.EventLeaveRoom, ev); err != nil {
		return err
	}
	s.logger.Info("Left room", "room", s.relayRoom)
	s.relayRoom = ""
	return nil
}

// Send appends text to the open room as a new message and relays it.
func (s *Session) Send(ctx context.Context, text string) (chat.Message, error) {
	if strings.TrimSpace(text) == "" {
		return chat.Message{}, ErrEmptyMessage
	}
	room := s.store.CurrentRoom()
	if room == "" {
		return chat.Message{}, store.ErrNoRoom
	}

	msg := chat.Message{
		ID:        s.newID(),
		Username:  s.store.User(),
		Message:   text,
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Room:      room,
	}
	if err := s.store.AppendLocal(ctx, msg); err != nil {
		return chat.Message{}, err
	}
	if err := s.relay.Emit(chat.EventChatMessage, msg); err != nil {
		return msg, err
	}
	return msg, nil
}

// ToggleLike flips the local like on message id and relays the delta.
func (s *Session) ToggleLike(ctx context.Context, id string) (chat.LikeToggle, error) {
	toggle, err := s.store.ToggleLike(ctx, id)
	if err != nil {
		return chat.LikeToggle{}, err
	}
	if err := s.relay.Emit(chat.EventToggleLike, toggle); err != nil {
		return toggle, err
	}
	return toggle, nil
}

// Rename relabels a room locally. Relay membership is unchanged.
func (s *Session) Rename(ctx context.Context, oldName, newName string) error {
	return s.store.RenameRoom(ctx, oldName, strings.TrimSpace(newName))
}

// Delete removes a room from the local list. Relay membership is unchanged.
func (s *Session) Delete(ctx context.Context, room string) error {
	return s.store.DeleteRoom(ctx, room)
}

// Rooms returns the joined-room list.
func (s *Session) Rooms(ctx context.Context) ([]string, error) {
	return s.store.JoinedRooms(ctx)
}

// Messages returns the open room's messages.
func (s *Session) Messages() []chat.Message {
	return s.store.Messages()
}

// Invite returns an invite link for the open room.
func (s *Session) Invite(base string) (string, error) {
	return BuildInvite(base, s.store.CurrentRoom())
}

// Handle applies one event received from the relay and reports whether the
// open room changed.
func (s *Session) Handle(ctx context.Context, env chat.Envelope) (bool, error) {
	switch env.Event {
	case chat.EventChatMessage:
		var msg chat.Message
		if err := env.Decode(&msg); err != nil {
			return false, err
		}
		return s.store.AppendIncoming(ctx, msg)

	case chat.EventToggleLike:
		var toggle chat.LikeToggle
		if err := env.Decode(&toggle); err != nil {
			return false, err
		}
		toggle.Normalize()
		return s.store.ApplyLikeDelta(ctx, toggle)

	case chat.EventError:
		var ev chat.ErrorEvent
		if err := env.Decode(&ev); err != nil {
			return false, err
		}
		s.logger.Warn("Relay rejected frame", "message", ev.Message)
		return false, nil

	default:
		s.logger.Debug("Ignoring event", "event", env.Event)
		return false, nil
	}
}

// IsRoomError reports whether err is a user-facing room error.
func IsRoomError(err error) bool {
	return errors.Is(err, store.ErrNoRoom) ||
		errors.Is(err, store.ErrRoomNotFound) ||
		errors.Is(err, store.ErrRoomExists) ||
		errors.Is(err, store.ErrInvalidRoomName)
}
