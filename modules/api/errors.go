package api

import "errors"

// Sentinel errors reported to a client in an error frame.
var (
	// ErrMalformedFrame is returned when a frame is not a JSON envelope.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrUnknownEvent is returned for event names the relay does not handle.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrMessageTooLong is returned when a chat message exceeds the limit.
	ErrMessageTooLong = errors.New("message too long")
)
