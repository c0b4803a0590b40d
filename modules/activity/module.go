package activity

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/likechat/events"
)

// Module consumes relay events and keeps per-room activity counters.
type Module struct {
	store  *ActivityStore
	logger types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new activity module.
func NewModule(logger types.Logger) *Module {
	return &Module{
		store:  NewActivityStore(),
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "activity"
}

// RegisterEventConsumers subscribes to the relay events.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.SessionJoinedV1, m.handleSessionJoined, m); err != nil {
		return fmt.Errorf("failed to register SessionJoined consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.SessionLeftV1, m.handleSessionLeft, m); err != nil {
		return fmt.Errorf("failed to register SessionLeft consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.MessageRelayedV1, m.handleMessageRelayed, m); err != nil {
		return fmt.Errorf("failed to register MessageRelayed consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.LikeRelayedV1, m.handleLikeRelayed, m); err != nil {
		return fmt.Errorf("failed to register LikeRelayed consumer: %w", err)
	}

	m.logger.Info("Registered event consumers",
		"events", []string{"SessionJoined.v1", "SessionLeft.v1", "MessageRelayed.v1", "LikeRelayed.v1"})
	return nil
}

func (m *Module) handleSessionJoined(_ context.Context, event events.SessionJoinedEvent, _ *mono.Msg) error {
	m.store.RecordJoin(event.Room, event.Timestamp)
	m.logger.Debug("Recorded join", "room", event.Room, "username", event.Username)
	return nil
}

func (m *Module) handleSessionLeft(_ context.Context, event events.SessionLeftEvent, _ *mono.Msg) error {
	m.store.RecordLeave(event.Room, event.Disconnected, event.Timestamp)
	m.logger.Debug("Recorded leave", "room", event.Room, "disconnected", event.Disconnected)
	return nil
}

func (m *Module) handleMessageRelayed(_ context.Context, event events.MessageRelayedEvent, _ *mono.Msg) error {
	m.store.RecordMessage(event.Room, event.Recipients, event.Timestamp)
	return nil
}

func (m *Module) handleLikeRelayed(_ context.Context, event events.LikeRelayedEvent, _ *mono.Msg) error {
	m.store.RecordLike(event.Room, event.Recipients, event.Timestamp)
	return nil
}

// Start initializes the activity module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Activity module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Activity module stopped", "rooms_tracked", len(m.store.All()))
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"rooms_tracked": len(m.store.All()),
		},
	}
}

// Store returns the activity store.
func (m *Module) Store() *ActivityStore {
	return m.store
}
