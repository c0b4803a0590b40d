package store

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/likechat/domain/chat"
)

// SessionStore is a chat client's local state: the joined-room list of the
// current user, and the message list and like map of the open room.
// Every mutation is persisted before the call returns.
type SessionStore struct {
	storage Storage
	logger  types.Logger

	mu       sync.Mutex
	user     string
	room     string
	messages []chat.Message
	liked    map[string]bool
}

// NewSessionStore creates a store for user with no room open.
func NewSessionStore(storage Storage, user string, logger types.Logger) *SessionStore {
	if user == "" {
		user = chat.DefaultUsername
	}
	return &SessionStore{
		storage: storage,
		logger:  logger,
		user:    user,
		liked:   make(map[string]bool),
	}
}

// User returns the current user.
func (s *SessionStore) User() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// CurrentRoom returns the open room, or "".
func (s *SessionStore) CurrentRoom() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// Messages returns a copy of the open room's messages.
func (s *SessionStore) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// Liked reports whether the current user likes message id in the open room.
func (s *SessionStore) Liked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liked[id]
}

// SetUser switches the user and reloads the like map for the open room.
func (s *SessionStore) SetUser(ctx context.Context, user string) error {
	if user == "" {
		user = chat.DefaultUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = user
	s.liked = make(map[string]bool)
	if s.room == "" {
		return nil
	}
	liked, err := s.readLikes(ctx, user, s.room)
	if err != nil {
		return err
	}
	s.liked = liked
	return nil
}

// LoadRoomMessages opens room and returns its persisted messages. A stored
// list that does not parse is discarded and the room starts empty.
func (s *SessionStore) LoadRoomMessages(ctx context.Context, room string) ([]chat.Message, error) {
	if room == "" {
		return nil, ErrInvalidRoomName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	messages, err := s.readMessages(ctx, room)
	if err != nil {
		return nil, err
	}
	liked, err := s.readLikes(ctx, s.user, room)
	if err != nil {
		return nil, err
	}

	s.room = room
	s.messages = messages
	s.liked = liked
	return slices.Clone(messages), nil
}

// AppendLocal appends a message the current user just sent.
func (s *SessionStore) AppendLocal(ctx context.Context, msg chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room == "" {
		return ErrNoRoom
	}
	msg.Room = s.room
	msg.Normalize()
	if s.indexOf(msg.ID) >= 0 {
		return nil
	}
	s.messages = append(s.messages, msg)
	return s.writeJSON(ctx, messagesKey(s.room), s.messages)
}

// AppendIncoming appends a relayed message. Messages for any room other than
// the open one, and ids already present, are ignored and reported as false.
func (s *SessionStore) AppendIncoming(ctx context.Context, msg chat.Message) (bool, error) {
	msg.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room == "" || msg.Room != s.room {
		s.logger.Debug("Ignoring message for other room", "room", msg.Room, "current", s.room)
		return false, nil
	}
	if s.indexOf(msg.ID) >= 0 {
		return false, nil
	}

	s.messages = append(s.messages, msg)
	if err := s.writeJSON(ctx, messagesKey(s.room), s.messages); err != nil {
		return false, err
	}
	return true, nil
}

// ApplyLikeDelta updates a message's like counter from a relayed toggle.
// When the relay supplies an absolute count it wins over the delta. Unknown
// ids and other rooms are a no-op reported as false.
func (s *SessionStore) ApplyLikeDelta(ctx context.Context, toggle chat.LikeToggle) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room == "" || toggle.Room != s.room {
		return false, nil
	}
	i := s.indexOf(toggle.ID)
	if i < 0 {
		return false, nil
	}

	likes := s.messages[i].Likes + toggle.Delta
	if toggle.Likes != nil {
		likes = *toggle.Likes
	}
	s.messages[i].Likes = max(likes, 0)

	if err := s.writeJSON(ctx, messagesKey(s.room), s.messages); err != nil {
		return false, err
	}
	return true, nil
}

// ToggleLike flips the current user's like on message id, updates the local
// counter and returns the toggle to send to the relay.
func (s *SessionStore) ToggleLike(ctx context.Context, id string) (chat.LikeToggle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room == "" {
		return chat.LikeToggle{}, ErrNoRoom
	}
	i := s.indexOf(id)
	if i < 0 {
		return chat.LikeToggle{}, fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}

	liked := maps.Clone(s.liked)
	delta := 1
	if liked[id] {
		delta = -1
		delete(liked, id)
	} else {
		liked[id] = true
	}
	messages := slices.Clone(s.messages)
	messages[i].Likes = max(messages[i].Likes+delta, 0)

	if err := s.writeJSON(ctx, likesKey(s.user, s.room), liked); err != nil {
		return chat.LikeToggle{}, err
	}
	if err := s.writeJSON(ctx, messagesKey(s.room), messages); err != nil {
		// Put the like record back so it matches the stored messages.
		if rerr := s.writeJSON(ctx, likesKey(s.user, s.room), s.liked); rerr != nil {
			s.logger.Warn("Failed to restore like record", "room", s.room, "error", rerr)
		}
		return chat.LikeToggle{}, err
	}
	s.liked = liked
	s.messages = messages
	return chat.LikeToggle{ID: id, Delta: delta, Room: s.room}, nil
}

// JoinedRooms returns the current user's room list in the order added.
func (s *SessionStore) JoinedRooms(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readRooms(ctx)
}

// AddRoom appends room to the joined-room list unless already present.
func (s *SessionStore) AddRoom(ctx context.Context, room string) error {
	if room == "" {
		return ErrInvalidRoomName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rooms, err := s.readRooms(ctx)
	if err != nil {
		return err
	}
	if slices.Contains(rooms, room) {
		return nil
	}
	return s.writeJSON(ctx, roomsKey(s.user), append(rooms, room))
}

// RenameRoom relabels a room locally: the list entry is rewritten in place
// and the stored messages and likes move to the new name. Nothing is sent to
// the relay.
func (s *SessionStore) RenameRoom(ctx context.Context, oldName, newName string) error {
	if oldName == "" || newName == "" {
		return ErrInvalidRoomName
	}
	if oldName == newName {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rooms, err := s.readRooms(ctx)
	if err != nil {
		return err
	}
	i := slices.Index(rooms, oldName)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, oldName)
	}
	if slices.Contains(rooms, newName) {
		return fmt.Errorf("%w: %s", ErrRoomExists, newName)
	}
	// Message lists are shared by every user of the device.
	existing, err := s.storage.GetWithContext(ctx, messagesKey(newName))
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", messagesKey(newName), err)
	}
	if len(existing) > 0 {
		return fmt.Errorf("%w: %s", ErrRoomExists, newName)
	}

	messages, err := s.readMessages(ctx, oldName)
	if err != nil {
		return err
	}
	for j := range messages {
		messages[j].Room = newName
	}
	liked, err := s.readLikes(ctx, s.user, oldName)
	if err != nil {
		return err
	}

	if err := s.writeJSON(ctx, messagesKey(newName), messages); err != nil {
		return err
	}
	if err := s.writeJSON(ctx, likesKey(s.user, newName), liked); err != nil {
		return err
	}
	if err := s.deleteRoomKeys(ctx, oldName); err != nil {
		return err
	}

	rooms[i] = newName
	if err := s.writeJSON(ctx, roomsKey(s.user), rooms); err != nil {
		return err
	}

	if s.room == oldName {
		s.room = newName
		s.messages = messages
		s.liked = liked
	}
	s.logger.Info("Renamed room", "from", oldName, "to", newName)
	return nil
}

// DeleteRoom removes a room from the list together with its stored messages
// and likes. Nothing is sent to the relay.
func (s *SessionStore) DeleteRoom(ctx context.Context, room string) error {
	if room == "" {
		return ErrInvalidRoomName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rooms, err := s.readRooms(ctx)
	if err != nil {
		return err
	}
	if i := slices.Index(rooms, room); i >= 0 {
		rooms = slices.Delete(rooms, i, i+1)
		if err := s.writeJSON(ctx, roomsKey(s.user), rooms); err != nil {
			return err
		}
	}
	if err := s.deleteRoomKeys(ctx, room); err != nil {
		return err
	}

	if s.room == room {
		s.room = ""
		s.messages = nil
		s.liked = make(map[string]bool)
	}
	s.logger.Info("Deleted room", "room", room)
	return nil
}

func (s *SessionStore) indexOf(id string) int {
	return slices.IndexFunc(s.messages, func(m chat.Message) bool { return m.ID == id })
}

func (s *SessionStore) deleteRoomKeys(ctx context.Context, room string) error {
	if err := s.storage.DeleteWithContext(ctx, messagesKey(room)); err != nil {
		return fmt.Errorf("failed to delete messages of %q: %w", room, err)
	}
	if err := s.storage.DeleteWithContext(ctx, likesKey(s.user, room)); err != nil {
		return fmt.Errorf("failed to delete likes of %q: %w", room, err)
	}
	return nil
}

func (s *SessionStore) readMessages(ctx context.Context, room string) ([]chat.Message, error) {
	messages, err := readJSON[[]chat.Message](ctx, s, messagesKey(room))
	if err != nil {
		return nil, err
	}
	for i := range messages {
		if messages[i].Room == "" {
			messages[i].Room = room
		}
		messages[i].Normalize()
	}
	return messages, nil
}

func (s *SessionStore) readLikes(ctx context.Context, user, room string) (map[string]bool, error) {
	liked, err := readJSON[map[string]bool](ctx, s, likesKey(user, room))
	if err != nil {
		return nil, err
	}
	if liked == nil {
		liked = make(map[string]bool)
	}
	return liked, nil
}

func (s *SessionStore) readRooms(ctx context.Context) ([]string, error) {
	return readJSON[[]string](ctx, s, roomsKey(s.user))
}

// readJSON decodes the value at key. A value that fails to parse is deleted
// and the zero value returned.
func readJSON[T any](ctx context.Context, s *SessionStore, key string) (T, error) {
	var v T
	data, err := s.storage.GetWithContext(ctx, key)
	if err != nil {
		return v, fmt.Errorf("failed to read %q: %w", key, err)
	}
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		s.logger.Warn("Discarding corrupted entry", "key", key, "error", err)
		if err := s.storage.DeleteWithContext(ctx, key); err != nil {
			var zero T
			return zero, fmt.Errorf("failed to discard %q: %w", key, err)
		}
		var zero T
		return zero, nil
	}
	return v, nil
}

func (s *SessionStore) writeJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	if err := s.storage.SetWithContext(ctx, key, data, 0); err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}
