package signal

import (
	"context"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type calls struct {
	stops atomic.Int32
	kills atomic.Int32
}

func (c *calls) handler() *OSSignalHandler {
	return NewOSSignalHandler(func() { c.stops.Add(1) }, func() { c.kills.Add(1) })
}

func isRunning(h *OSSignalHandler) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

func TestOSSignalHandler_StartStop(t *testing.T) {
	var c calls
	handler := c.handler()

	handler.Start()
	assert.True(t, isRunning(handler))

	handler.Stop()
	assert.False(t, isRunning(handler))
}

func TestOSSignalHandler_DoubleStartAndStop(t *testing.T) {
	var c calls
	handler := c.handler()

	handler.Start()
	handler.Start()
	assert.True(t, isRunning(handler))

	handler.Stop()
	handler.Stop()
	assert.False(t, isRunning(handler))

	handler.Start()
	assert.True(t, isRunning(handler), "restartable after stop")
	handler.Stop()
}

func TestOSSignalHandler_FirstInterruptStops(t *testing.T) {
	var c calls
	handler := c.handler()

	handler.handleSignal(syscall.SIGINT)

	assert.Equal(t, int32(1), c.stops.Load())
	assert.Equal(t, int32(0), c.kills.Load())
	assert.True(t, handler.interruptReceived.Load())
}

func TestOSSignalHandler_SecondInterruptKills(t *testing.T) {
	var c calls
	handler := c.handler()

	handler.handleSignal(syscall.SIGINT)
	handler.handleSignal(syscall.SIGINT)

	assert.Equal(t, int32(1), c.stops.Load())
	assert.Equal(t, int32(1), c.kills.Load())
}

func TestOSSignalHandler_SecondInterruptWithoutKill(t *testing.T) {
	stops := 0
	handler := NewOSSignalHandler(func() { stops++ }, nil)

	handler.handleSignal(syscall.SIGINT)
	handler.handleSignal(syscall.SIGINT)

	assert.Equal(t, 1, stops)
}

func TestOSSignalHandler_TerminateStops(t *testing.T) {
	var c calls
	handler := c.handler()

	handler.handleSignal(syscall.SIGTERM)
	handler.handleSignal(syscall.SIGTERM)

	assert.Equal(t, int32(2), c.stops.Load())
	assert.Equal(t, int32(0), c.kills.Load())
}

func TestOSSignalHandler_DeliveredSignal(t *testing.T) {
	var c calls
	handler := c.handler()
	handler.Start()
	defer handler.Stop()

	handler.sigCh <- syscall.SIGTERM

	assert.Eventually(t, func() bool { return c.stops.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWithSignals_ReleaseCancels(t *testing.T) {
	ctx, release := WithSignals(context.Background(), nil)
	assert.NoError(t, ctx.Err())

	release()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestWithSignals_ParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, release := WithSignals(parent, nil)
	defer release()

	cancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
