package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gorilla/websocket"

	"github.com/example/likechat/domain/chat"
)

const writeWait = 10 * time.Second

// Conn is a client connection to the relay.
type Conn struct {
	ws     *websocket.Conn
	logger types.Logger

	writeMu sync.Mutex
}

// Dial connects to the relay WebSocket endpoint as username.
func Dial(ctx context.Context, relayURL, username string, logger types.Logger) (*Conn, error) {
	u, err := url.Parse(relayURL)
	if err != nil {
		return nil, fmt.Errorf("invalid relay url: %w", err)
	}
	if username != "" {
		q := u.Query()
		q.Set("username", username)
		u.RawQuery = q.Encode()
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRelayUnreachable, err)
	}
	logger.Info("Connected to relay", "url", u.Redacted())
	return &Conn{ws: ws, logger: logger}, nil
}

// Emit sends one event to the relay.
func (c *Conn) Emit(event string, payload any) error {
	frame, err := chat.Encode(event, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("failed to emit %q: %w", event, err)
	}
	return nil
}

// Listen reads frames until ctx is done or the connection closes, passing
// each decoded envelope to handle. Frames that are not envelopes are logged
// and skipped.
func (c *Conn) Listen(ctx context.Context, handle func(chat.Envelope)) error {
	stop := context.AfterFunc(ctx, func() {
		_ = c.ws.Close()
	})
	defer stop()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("%w: %v", ErrConnectionLost, err)
		}

		var env chat.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn("Skipping malformed frame", "error", err)
			continue
		}
		handle(env)
	}
}

// Close sends a close frame and closes the connection.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.ws.Close()
}
