package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/likechat/domain/chat"
	"github.com/example/likechat/events"
	"github.com/example/likechat/modules/broadcast"
)

const frameOverhead = 4096

// healthHandler handles GET /health.
func (m *Module) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":            "api",
			"connected_clients": m.hub.SessionCount(),
			"rooms":             len(m.hub.Rooms()),
		},
	})
}

// listRooms handles GET /api/v1/rooms.
func (m *Module) listRooms(c *fiber.Ctx) error {
	rooms := m.hub.Rooms()

	response := RoomListResponse{
		Rooms: make([]RoomResponse, 0, len(rooms)),
	}
	for _, room := range rooms {
		response.Rooms = append(response.Rooms, RoomResponse{
			Name:    room.Name,
			Members: room.Members,
		})
	}
	return c.JSON(response)
}

// getRoom handles GET /api/v1/rooms/:name.
func (m *Module) getRoom(c *fiber.Ctx) error {
	name := c.Params("name")

	response := RoomResponse{
		Name:    name,
		Members: m.hub.RoomMemberCount(name),
	}
	if m.activity != nil {
		if ra, ok := m.activity.Get(name); ok {
			response.Activity = &ra
		}
	}

	if response.Members == 0 && response.Activity == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Room not found",
		})
	}
	return c.JSON(response)
}

// handleWebSocket handles WebSocket connections at /ws.
func (m *Module) handleWebSocket(c *websocket.Conn) {
	if limit := readLimit(m.cfg.MaxMessageLength); limit > 0 {
		c.SetReadLimit(limit)
	}
	session := broadcast.NewSession(uuid.New().String(), c.Query("username", chat.DefaultUsername), c)
	m.hub.Register(session)
	m.logger.Info("Session connected", "session", session.ID, "username", session.Username())

	defer func() {
		if room := m.hub.Disconnect(session); room != "" {
			m.publishLeft(session, room, true)
		}
		m.logger.Info("Session disconnected", "session", session.ID)
	}()

	for {
		_, frame, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				m.logger.Warn("Read error", "session", session.ID, "error", err)
			}
			return
		}

		if err := m.dispatch(session, frame); err != nil {
			m.logger.Debug("Rejected frame", "session", session.ID, "error", err)
			m.sendError(session, err)
		}
	}
}

// readLimit bounds the size of one inbound frame. Escaping can grow the
// message text up to six times, and the other fields need some room.
func readLimit(maxMessageLength int) int64 {
	if maxMessageLength <= 0 {
		return 0
	}
	return int64(maxMessageLength)*6 + frameOverhead
}

// dispatch handles one inbound frame. A returned error is reported to the
// sender only.
func (m *Module) dispatch(s *broadcast.Session, frame []byte) error {
	var env chat.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return ErrMalformedFrame
	}

	switch env.Event {
	case chat.EventJoinRoom:
		return m.handleJoin(s, env)
	case chat.EventLeaveRoom:
		return m.handleLeave(s, env)
	case chat.EventChatMessage:
		return m.handleChatMessage(s, env)
	case chat.EventToggleLike:
		return m.handleToggleLike(s, env)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

func (m *Module) handleJoin(s *broadcast.Session, env chat.Envelope) error {
	var p chat.RoomEvent
	if err := env.Decode(&p); err != nil {
		return err
	}
	p.Normalize()

	previous := m.hub.Join(s, p.Room, p.Username)
	if previous == p.Room {
		return nil
	}
	if previous != "" {
		m.publishLeft(s, previous, false)
	}

	m.logger.Info("Session joined room", "session", s.ID, "username", p.Username, "room", p.Room)
	m.publish(func() error {
		return events.SessionJoinedV1.Publish(m.eventBus, events.SessionJoinedEvent{
			SessionID: s.ID,
			Username:  p.Username,
			Room:      p.Room,
			Previous:  previous,
			Timestamp: time.Now(),
		}, nil)
	})
	return nil
}

func (m *Module) handleLeave(s *broadcast.Session, env chat.Envelope) error {
	var p chat.RoomEvent
	if err := env.Decode(&p); err != nil {
		return err
	}
	p.Normalize()

	if m.hub.Leave(s, p.Room) {
		m.logger.Info("Session left room", "session", s.ID, "username", p.Username, "room", p.Room)
		m.publishLeft(s, p.Room, false)
	}
	return nil
}

func (m *Module) handleChatMessage(s *broadcast.Session, env chat.Envelope) error {
	var msg chat.Message
	if err := env.Decode(&msg); err != nil {
		return err
	}
	msg.Normalize()
	if err := msg.Validate(); err != nil {
		return err
	}
	if limit := m.cfg.MaxMessageLength; limit > 0 && len(msg.Message) > limit {
		return fmt.Errorf("%w (max %d bytes)", ErrMessageTooLong, limit)
	}

	n, err := m.hub.RelayMessage(s, msg)
	if err != nil {
		return err
	}

	m.publish(func() error {
		return events.MessageRelayedV1.Publish(m.eventBus, events.MessageRelayedEvent{
			MessageID:  msg.ID,
			SessionID:  s.ID,
			Username:   msg.Username,
			Room:       msg.Room,
			Recipients: n,
			Timestamp:  time.Now(),
		}, nil)
	})
	return nil
}

func (m *Module) handleToggleLike(s *broadcast.Session, env chat.Envelope) error {
	var toggle chat.LikeToggle
	if err := env.Decode(&toggle); err != nil {
		return err
	}
	toggle.Normalize()
	if err := toggle.Validate(); err != nil {
		return err
	}

	relayed, n, err := m.hub.RelayLike(s, toggle)
	if err != nil {
		return err
	}

	m.publish(func() error {
		return events.LikeRelayedV1.Publish(m.eventBus, events.LikeRelayedEvent{
			MessageID:  relayed.ID,
			SessionID:  s.ID,
			Room:       relayed.Room,
			Delta:      relayed.Delta,
			Likes:      relayed.Likes,
			Recipients: n,
			Timestamp:  time.Now(),
		}, nil)
	})
	return nil
}

func (m *Module) publishLeft(s *broadcast.Session, room string, disconnected bool) {
	m.publish(func() error {
		return events.SessionLeftV1.Publish(m.eventBus, events.SessionLeftEvent{
			SessionID:    s.ID,
			Username:     s.Username(),
			Room:         room,
			Disconnected: disconnected,
			Timestamp:    time.Now(),
		}, nil)
	})
}

// publish runs fn when an event bus is wired. Failures never affect relaying.
func (m *Module) publish(fn func() error) {
	if m.eventBus == nil {
		return
	}
	if err := fn(); err != nil {
		m.logger.Warn("Failed to publish relay event", "error", err)
	}
}

func (m *Module) sendError(s *broadcast.Session, cause error) {
	frame, err := chat.Encode(chat.EventError, chat.ErrorEvent{Message: cause.Error()})
	if err != nil {
		return
	}
	if err := s.Send(frame); err != nil {
		m.logger.Warn("Failed to send error frame", "session", s.ID, "error", err)
	}
}
