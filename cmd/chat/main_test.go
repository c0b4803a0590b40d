package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/likechat/config"
	"github.com/example/likechat/modules/client"
	"github.com/example/likechat/modules/store"
)

type nopEmitter struct{ events []string }

func (e *nopEmitter) Emit(event string, _ any) error {
	e.events = append(e.events, event)
	return nil
}

func newTestSession(t *testing.T) (*client.Session, *nopEmitter) {
	t.Helper()
	storage, err := store.NewSQLiteStorage(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	logger := newLogger(slog.New(slog.DiscardHandler))
	relay := &nopEmitter{}
	sess, err := client.NewSession(store.NewSessionStore(storage, "alice", logger), relay, logger)
	require.NoError(t, err)
	return sess, relay
}

func TestExecute_Commands(t *testing.T) {
	sess, relay := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, execute(ctx, sess, "http://h/", "/join work"))
	require.NoError(t, execute(ctx, sess, "http://h/", "hello there"))
	require.NoError(t, execute(ctx, sess, "http://h/", "/rename work team"))
	require.NoError(t, execute(ctx, sess, "http://h/", "/history"))
	require.NoError(t, execute(ctx, sess, "http://h/", "/nope"))

	assert.Equal(t, "team", sess.Room())
	require.Len(t, sess.Messages(), 1)
	assert.Equal(t, "hello there", sess.Messages()[0].Message)

	id := sess.Messages()[0].ID
	require.NoError(t, execute(ctx, sess, "http://h/", "/like "+id))
	assert.Equal(t, 1, sess.Messages()[0].Likes)

	assert.Equal(t, []string{"join room", "chat message", "toggle like"}, relay.events)

	assert.ErrorIs(t, execute(ctx, sess, "http://h/", "/quit"), errQuit)
}

func TestExecute_RoomErrors(t *testing.T) {
	sess, _ := newTestSession(t)
	ctx := context.Background()

	assert.ErrorIs(t, execute(ctx, sess, "http://h/", "/leave"), store.ErrNoRoom)
	assert.ErrorIs(t, execute(ctx, sess, "http://h/", "hi"), store.ErrNoRoom)
	assert.ErrorIs(t, execute(ctx, sess, "http://h/", "/invite"), client.ErrNoInviteRoom)
}

func TestRepl_StopsOnEOF(t *testing.T) {
	sess, relay := newTestSession(t)

	err := repl(context.Background(), sess, "http://h/", strings.NewReader("/join general\n/leave\n/leave\n"))

	assert.ErrorIs(t, err, errQuit)
	assert.Equal(t, []string{"join room", "leave room"}, relay.events)
}

func TestOpenStorage_UnknownBackend(t *testing.T) {
	_, err := openStorage(config.ClientConfig{Store: "etcd"})
	assert.Error(t, err)
}
