package client

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/likechat/domain/chat"
	"github.com/example/likechat/modules/store"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

type emitted struct {
	event   string
	payload any
}

type fakeEmitter struct {
	mu     sync.Mutex
	frames []emitted
	err    error
}

func (f *fakeEmitter) Emit(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.frames = append(f.frames, emitted{event, payload})
	return nil
}

func (f *fakeEmitter) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.frames))
	for i, fr := range f.frames {
		names[i] = fr.event
	}
	return names
}

func (f *fakeEmitter) last() emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames[len(f.frames)-1]
}

func newTestStore(t *testing.T, user string) *store.SessionStore {
	t.Helper()
	storage, err := store.NewSQLiteStorage(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })
	return store.NewSessionStore(storage, user, &mockLogger{})
}

func newTestSession(t *testing.T, user string) (*Session, *fakeEmitter) {
	t.Helper()
	relay := &fakeEmitter{}
	s, err := NewSession(newTestStore(t, user), relay, &mockLogger{})
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	return s, relay
}

func envelope(t *testing.T, event string, payload any) chat.Envelope {
	t.Helper()
	data, err := chat.Encode(event, payload)
	require.NoError(t, err)
	var env chat.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestSession_JoinEmitsLeaveForPreviousRoom(t *testing.T) {
	s, relay := newTestSession(t, "alice")
	ctx := context.Background()

	_, err := s.Join(ctx, "general")
	require.NoError(t, err)
	_, err = s.Join(ctx, "random")
	require.NoError(t, err)

	assert.Equal(t, []string{chat.EventJoinRoom, chat.EventLeaveRoom, chat.EventJoinRoom}, relay.events())
	assert.Equal(t, chat.RoomEvent{Username: "alice", Room: "random"}, relay.last().payload)
	assert.Equal(t, "random", s.Room())

	rooms, err := s.Rooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"general", "random"}, rooms)
}

func TestSession_JoinSameRoomTwice(t *testing.T) {
	s, relay := newTestSession(t, "alice")
	ctx := context.Background()

	_, err := s.Join(ctx, "general")
	require.NoError(t, err)
	_, err = s.Join(ctx, "general")
	require.NoError(t, err)

	assert.Equal(t, []string{chat.EventJoinRoom, chat.EventJoinRoom}, relay.events())
}

func TestSession_JoinRejectsBlankRoom(t *testing.T) {
	s, relay := newTestSession(t, "alice")

	_, err := s.Join(context.Background(), "  ")

	assert.ErrorIs(t, err, store.ErrInvalidRoomName)
	assert.Empty(t, relay.events())
}

func TestSession_Leave(t *testing.T) {
	s, relay := newTestSession(t, "alice")
	ctx := context.Background()

	assert.ErrorIs(t, s.Leave(), store.ErrNoRoom)

	_, err := s.Join(ctx, "general")
	require.NoError(t, err)
	require.NoError(t, s.Leave())

	assert.Equal(t, chat.RoomEvent{Username: "alice", Room: "general"}, relay.last().payload)
	assert.ErrorIs(t, s.Leave(), store.ErrNoRoom)
}

func TestSession_SendAppendsLocallyThenEmits(t *testing.T) {
	s, relay := newTestSession(t, "alice")
	ctx := context.Background()
	_, err := s.Join(ctx, "general")
	require.NoError(t, err)

	msg, err := s.Send(ctx, "hello")
	require.NoError(t, err)

	assert.Len(t, msg.ID, 21)
	assert.Equal(t, "alice", msg.Username)
	assert.Equal(t, "2024-01-01T12:00:00Z", msg.Timestamp)
	assert.Equal(t, "general", msg.Room)
	assert.Zero(t, msg.Likes)

	assert.Equal(t, []chat.Message{msg}, s.Messages())
	assert.Equal(t, emitted{chat.EventChatMessage, msg}, relay.last())
}

func TestSession_SendErrors(t *testing.T) {
	s, relay := newTestSession(t, "alice")
	ctx := context.Background()

	_, err := s.Send(ctx, "hello")
	assert.ErrorIs(t, err, store.ErrNoRoom)

	_, err = s.Join(ctx, "general")
	require.NoError(t, err)
	_, err = s.Send(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	assert.Equal(t, []string{chat.EventJoinRoom}, relay.events())
}

func TestSession_SendKeepsMessageWhenEmitFails(t *testing.T) {
	s, relay := newTestSession(t, "alice")
	ctx := context.Background()
	_, err := s.Join(ctx, "general")
	require.NoError(t, err)

	relay.err = errors.New("boom")
	_, err = s.Send(ctx, "hello")

	assert.Error(t, err)
	assert.Len(t, s.Messages(), 1)
}

func TestSession_ToggleLikeAlternates(t *testing.T) {
	s, relay := newTestSession(t, "alice")
	ctx := context.Background()
	_, err := s.Join(ctx, "general")
	require.NoError(t, err)
	msg, err := s.Send(ctx, "hello")
	require.NoError(t, err)

	var deltas []int
	for range 3 {
		toggle, err := s.ToggleLike(ctx, msg.ID)
		require.NoError(t, err)
		deltas = append(deltas, toggle.Delta)
		assert.Equal(t, emitted{chat.EventToggleLike, toggle}, relay.last())
	}

	assert.Equal(t, []int{1, -1, 1}, deltas)
	assert.True(t, s.Store().Liked(msg.ID))
	assert.Equal(t, 1, s.Messages()[0].Likes)
}

func TestSession_RenameKeepsRelayMembership(t *testing.T) {
	s, relay := newTestSession(t, "alice")
	ctx := context.Background()
	_, err := s.Join(ctx, "work")
	require.NoError(t, err)
	_, err = s.Send(ctx, "standup at 10")
	require.NoError(t, err)

	require.NoError(t, s.Rename(ctx, "work", "team"))

	assert.Equal(t, "team", s.Room())
	assert.Len(t, s.Messages(), 1)
	assert.Equal(t, "team", s.Messages()[0].Room)

	// The relay still has us in "work".
	require.NoError(t, s.Leave())
	assert.Equal(t, chat.RoomEvent{Username: "alice", Room: "work"}, relay.last().payload)
}

func TestSession_DeleteIsLocal(t *testing.T) {
	s, relay := newTestSession(t, "alice")
	ctx := context.Background()
	_, err := s.Join(ctx, "general")
	require.NoError(t, err)
	before := len(relay.events())

	require.NoError(t, s.Delete(ctx, "general"))

	assert.Len(t, relay.events(), before)
	assert.Empty(t, s.Room())
	rooms, err := s.Rooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestSession_Invite(t *testing.T) {
	s, _ := newTestSession(t, "alice")

	_, err := s.Invite("http://h/")
	assert.ErrorIs(t, err, ErrNoInviteRoom)

	_, err = s.Join(context.Background(), "general")
	require.NoError(t, err)
	link, err := s.Invite("http://h/")
	require.NoError(t, err)
	assert.Equal(t, "http://h/?room=general", link)
}

func TestSession_HandleChatMessage(t *testing.T) {
	s, _ := newTestSession(t, "bob")
	ctx := context.Background()
	_, err := s.Join(ctx, "general")
	require.NoError(t, err)

	msg := chat.Message{ID: "m1", Username: "alice", Message: "hi", Timestamp: "2024-01-01T00:00:00Z", Room: "general"}
	changed, err := s.Handle(ctx, envelope(t, chat.EventChatMessage, msg))
	require.NoError(t, err)
	assert.True(t, changed)

	// Duplicate delivery is ignored.
	changed, err = s.Handle(ctx, envelope(t, chat.EventChatMessage, msg))
	require.NoError(t, err)
	assert.False(t, changed)

	other := msg
	other.ID, other.Room = "m2", "random"
	changed, err = s.Handle(ctx, envelope(t, chat.EventChatMessage, other))
	require.NoError(t, err)
	assert.False(t, changed)

	assert.Equal(t, []chat.Message{msg}, s.Messages())
}

func TestSession_HandleToggleLike(t *testing.T) {
	s, _ := newTestSession(t, "bob")
	ctx := context.Background()
	_, err := s.Join(ctx, "general")
	require.NoError(t, err)
	msg := chat.Message{ID: "m1", Username: "alice", Message: "hi", Room: "general"}
	_, err = s.Handle(ctx, envelope(t, chat.EventChatMessage, msg))
	require.NoError(t, err)

	changed, err := s.Handle(ctx, envelope(t, chat.EventToggleLike, chat.LikeToggle{ID: "m1", Delta: 1, Room: "general"}))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, s.Messages()[0].Likes)

	likes := 5
	_, err = s.Handle(ctx, envelope(t, chat.EventToggleLike, chat.LikeToggle{ID: "m1", Delta: 1, Room: "general", Likes: &likes}))
	require.NoError(t, err)
	assert.Equal(t, 5, s.Messages()[0].Likes)
}

func TestSession_HandleOtherEvents(t *testing.T) {
	s, _ := newTestSession(t, "bob")
	ctx := context.Background()

	changed, err := s.Handle(ctx, envelope(t, chat.EventError, chat.ErrorEvent{Message: "bad frame"}))
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = s.Handle(ctx, envelope(t, "typing", map[string]string{}))
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = s.Handle(ctx, chat.Envelope{Event: chat.EventChatMessage})
	assert.Error(t, err)
}

func TestIsRoomError(t *testing.T) {
	assert.True(t, IsRoomError(store.ErrNoRoom))
	assert.True(t, IsRoomError(store.ErrRoomExists))
	assert.False(t, IsRoomError(ErrConnectionLost))
}
