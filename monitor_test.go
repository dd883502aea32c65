package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_SweepEvictsStaleParticipants(t *testing.T) {
	h, clock := newTestHub(t)
	stale, fresh := &fakeConn{}, &fakeConn{}
	h.Connect("stale", stale)
	h.Connect("fresh", fresh)
	require.NoError(t, h.Join("stale", "r1"))
	require.NoError(t, h.Join("fresh", "r1"))
	fresh.reset()

	clock.Advance(50 * time.Second)
	h.Touch("fresh")
	clock.Advance(11 * time.Second)

	evicted := h.Sweep()

	assert.Equal(t, []string{"stale"}, evicted)
	assert.True(t, stale.isClosed())
	assert.False(t, fresh.isClosed())
	assert.Equal(t, []string{"fresh"}, h.Members("r1"))

	evs := fresh.events(t)
	require.Len(t, evs, 1)
	assert.Equal(t, TypeUserLeft, evs[0].Type)
	assert.Equal(t, "stale", evs[0].UserID)
	requireConsistent(t, h)
}

func TestHub_SweepKeepsParticipantsWithinTimeout(t *testing.T) {
	h, clock := newTestHub(t)
	h.Connect("a", &fakeConn{})

	clock.Advance(60 * time.Second)

	assert.Nil(t, h.Sweep())
	assert.Equal(t, 1, h.ParticipantCount())
}

func TestHub_RunSweepsOnInterval(t *testing.T) {
	cfg := testConfig()
	cfg.HeartbeatInterval = 10 * time.Millisecond
	cfg.HeartbeatTimeout = 20 * time.Millisecond
	h := NewHub(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	conn := &fakeConn{}
	h.Connect("idle", conn)

	require.Eventually(t, func() bool { return h.ParticipantCount() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, conn.isClosed())
}

func TestHub_RunAndShutdown(t *testing.T) {
	h := NewHub(testConfig())
	conn := &fakeConn{}
	h.Connect("a", conn)
	require.NoError(t, h.Join("a", "r1"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub.Run did not return after cancel")
	}
	assert.True(t, conn.isClosed())
	assert.Equal(t, 0, h.ParticipantCount())
	assert.Equal(t, 0, h.RoomCount())
}
