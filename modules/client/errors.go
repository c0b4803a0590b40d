package client

import "errors"

// Sentinel errors for client operations.
var (
	// ErrRelayUnreachable is returned when the relay cannot be dialed.
	ErrRelayUnreachable = errors.New("relay unreachable")

	// ErrConnectionLost is returned when an open connection fails.
	ErrConnectionLost = errors.New("connection to relay lost")

	// ErrNoInviteRoom is returned for invite links that name no room.
	ErrNoInviteRoom = errors.New("invite link has no room")

	// ErrEmptyMessage is returned when sending blank text.
	ErrEmptyMessage = errors.New("message is empty")
)
