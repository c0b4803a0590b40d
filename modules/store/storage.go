// Package store persists a chat client's rooms, messages and likes in a
// key-value backend.
package store

import (
	"context"
	"errors"
	"time"
)

// Storage is the key-value backend behind a SessionStore. A missing key
// reads as nil with no error.
type Storage interface {
	GetWithContext(ctx context.Context, key string) ([]byte, error)
	SetWithContext(ctx context.Context, key string, val []byte, exp time.Duration) error
	DeleteWithContext(ctx context.Context, key string) error
	Close() error
}

// Sentinel errors for session store operations.
var (
	// ErrRoomNotFound is returned when a room is not in the joined-room list.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomExists is returned when renaming onto a room already in the list.
	ErrRoomExists = errors.New("room already exists")

	// ErrInvalidRoomName is returned for empty room names.
	ErrInvalidRoomName = errors.New("invalid room name")

	// ErrNoRoom is returned when an operation needs an open room.
	ErrNoRoom = errors.New("no room open")

	// ErrMessageNotFound is returned when a message id is not in the open room.
	ErrMessageNotFound = errors.New("message not found")
)

func messagesKey(room string) string {
	return "messages:" + room
}

func likesKey(user, room string) string {
	return "likes:" + user + ":" + room
}

func roomsKey(user string) string {
	return "rooms:" + user
}
