package activity

import (
	"context"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/likechat/events"
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

func TestModule_Name(t *testing.T) {
	m := NewModule(&mockLogger{})

	if name := m.Name(); name != "activity" {
		t.Errorf("Name() = %q, want 'activity'", name)
	}
}

func TestModule_Handlers(t *testing.T) {
	m := NewModule(&mockLogger{})
	ctx := context.Background()
	now := time.Now()

	if err := m.handleSessionJoined(ctx, events.SessionJoinedEvent{Room: "general", Timestamp: now}, nil); err != nil {
		t.Fatalf("handleSessionJoined() error = %v", err)
	}
	if err := m.handleMessageRelayed(ctx, events.MessageRelayedEvent{Room: "general", Recipients: 2, Timestamp: now}, nil); err != nil {
		t.Fatalf("handleMessageRelayed() error = %v", err)
	}
	if err := m.handleLikeRelayed(ctx, events.LikeRelayedEvent{Room: "general", Delta: 1, Recipients: 2, Timestamp: now}, nil); err != nil {
		t.Fatalf("handleLikeRelayed() error = %v", err)
	}
	if err := m.handleSessionLeft(ctx, events.SessionLeftEvent{Room: "general", Disconnected: true, Timestamp: now}, nil); err != nil {
		t.Fatalf("handleSessionLeft() error = %v", err)
	}

	ra, ok := m.Store().Get("general")
	if !ok {
		t.Fatal("expected activity for room general")
	}
	if ra.Joins != 1 || ra.Leaves != 1 || ra.Disconnects != 1 {
		t.Errorf("membership counters = %+v", ra)
	}
	if ra.MessagesRelayed != 1 || ra.LikesRelayed != 1 {
		t.Errorf("relay counters = %+v", ra)
	}
	if ra.Deliveries != 4 {
		t.Errorf("Deliveries = %d, want 4", ra.Deliveries)
	}
}

func TestModule_Health(t *testing.T) {
	m := NewModule(&mockLogger{})
	m.Store().RecordJoin("general", time.Now())

	status := m.Health(context.Background())
	if !status.Healthy {
		t.Error("expected healthy status")
	}
	if status.Details["rooms_tracked"] != 1 {
		t.Errorf("rooms_tracked = %v, want 1", status.Details["rooms_tracked"])
	}
}
