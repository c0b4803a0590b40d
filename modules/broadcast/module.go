package broadcast

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
)

// BroadcastModule owns the room registry hub for the relay.
type BroadcastModule struct {
	hub       *Hub
	cancelHub context.CancelFunc
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)

// NewModule creates a new BroadcastModule.
func NewModule(opts Options) *BroadcastModule {
	return &BroadcastModule{
		hub: NewHub(opts),
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Start starts the hub.
func (m *BroadcastModule) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	log.Printf("[broadcast] Module started - %d buckets, authoritative likes: %t",
		len(m.hub.buckets), m.hub.AuthoritativeLikes())
	return nil
}

// Stop closes every session and waits for the hub to finish.
func (m *BroadcastModule) Stop(ctx context.Context) error {
	sessionCount := m.hub.SessionCount()
	if m.cancelHub != nil {
		m.cancelHub()
		if err := m.hub.Wait(ctx); err != nil {
			return fmt.Errorf("hub did not stop: %w", err)
		}
	}
	log.Printf("[broadcast] Module stopped - %d sessions were connected", sessionCount)
	return nil
}

// Health returns the health status.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_sessions": m.hub.SessionCount(),
			"rooms":              len(m.hub.Rooms()),
		},
	}
}

// Hub returns the registry for the API module to use.
func (m *BroadcastModule) Hub() *Hub {
	return m.hub
}
