package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastModule_StartStop(t *testing.T) {
	m := NewModule(Options{Buckets: 2})
	require.NoError(t, m.Start(context.Background()))

	s, conn := newTestSession(m.Hub(), "s1")
	m.Hub().Join(s, "general", "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Stop(ctx))

	assert.True(t, conn.isClosed())
	assert.Equal(t, "broadcast", m.Name())
}

func TestBroadcastModule_StopHonorsContext(t *testing.T) {
	// A hub whose Run never finishes.
	m := &BroadcastModule{hub: NewHub(Options{}), cancelHub: func() {}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := m.Stop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
