package durasock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalString(t *testing.T) {
	assert.Equal(t, "Foreground", Foreground.String())
	assert.Equal(t, "Background", Background.String())
	assert.Equal(t, "InvalidSignal", Signal(9).String())
}

func TestVisibilitySuspend(t *testing.T) {
	conn, d := newTestConn(t, Config{})
	var closes atomic.Int32
	conn.OnClose = func(error) { closes.Add(1) }
	require.NoError(t, conn.Connect(context.Background()))
	first := d.latest()

	signals := make(chan Signal)
	gate := conn.WatchVisibility(signals)
	defer gate.Stop()

	signals <- Background

	assert.Eventually(t, func() bool {
		return conn.State() == StateReconnecting
	}, time.Second, 5*time.Millisecond)
	assert.True(t, first.isClosed())
	assert.EqualValues(t, 1, closes.Load())

	// Suspended means parked: no reconnect timer may be ticking.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, d.dialCount())
	assert.False(t, conn.IsClosed(), "suspension must not look like a manual close")
}

func TestVisibilityResume(t *testing.T) {
	// A long ReconnectDelay proves the resume dial bypasses the backoff.
	conn, d := newTestConn(t, Config{ReconnectDelay: time.Hour, MaxReconnectDelay: time.Hour})
	var opens atomic.Int32
	conn.OnOpen = func() { opens.Add(1) }
	require.NoError(t, conn.Connect(context.Background()))

	signals := make(chan Signal)
	gate := conn.WatchVisibility(signals)
	defer gate.Stop()

	signals <- Background
	assert.Eventually(t, func() bool {
		return conn.State() == StateReconnecting
	}, time.Second, 5*time.Millisecond)

	signals <- Foreground
	assert.Eventually(t, func() bool {
		return conn.State() == StateOpen
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, d.dialCount())
	assert.EqualValues(t, 2, opens.Load())
}

func TestVisibilityForegroundWithoutSuspension(t *testing.T) {
	conn, d := newTestConn(t, Config{})
	require.NoError(t, conn.Connect(context.Background()))

	signals := make(chan Signal)
	gate := conn.WatchVisibility(signals)
	defer gate.Stop()

	signals <- Foreground
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateOpen, conn.State())
	assert.Equal(t, 1, d.dialCount())
}

func TestVisibilityResumeFailureFallsBackToScheduler(t *testing.T) {
	conn, d := newTestConn(t, Config{})
	require.NoError(t, conn.Connect(context.Background()))

	signals := make(chan Signal)
	gate := conn.WatchVisibility(signals)
	defer gate.Stop()

	signals <- Background
	assert.Eventually(t, func() bool {
		return conn.State() == StateReconnecting
	}, time.Second, 5*time.Millisecond)

	// Make the immediate resume dial fail once; the scheduler takes over
	// with the configured 20ms delay and eventually reopens.
	d.mu.Lock()
	d.failAfter = 1
	d.mu.Unlock()
	signals <- Foreground

	assert.Eventually(t, func() bool {
		return d.dialCount() >= 2 && conn.State() == StateReconnecting
	}, time.Second, 5*time.Millisecond)

	d.mu.Lock()
	d.failAfter = 0
	d.mu.Unlock()
	assert.Eventually(t, func() bool {
		return conn.State() == StateOpen
	}, time.Second, 5*time.Millisecond)
}

func TestVisibilityGateStops(t *testing.T) {
	conn, d := newTestConn(t, Config{})
	require.NoError(t, conn.Connect(context.Background()))

	t.Run("after Stop", func(t *testing.T) {
		signals := make(chan Signal, 1)
		gate := conn.WatchVisibility(signals)
		gate.Stop()
		gate.Stop() // idempotent

		signals <- Background
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, StateOpen, conn.State())
	})

	t.Run("after channel close", func(t *testing.T) {
		signals := make(chan Signal)
		conn.WatchVisibility(signals)
		close(signals)

		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, StateOpen, conn.State())
		assert.Equal(t, 1, d.dialCount())
	})
}
