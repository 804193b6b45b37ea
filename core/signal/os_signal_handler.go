// Package signal turns operator stop requests, OS signals or a "stop" line
// on an input stream, into context cancellation.
package signal

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// OSSignalHandler maps SIGINT and SIGTERM onto a graceful stop. A second
// interrupt while the stop is pending triggers kill, when one is set.
type OSSignalHandler struct {
	stop func()
	kill func()

	mu                sync.Mutex
	running           bool
	interruptReceived atomic.Bool
	stopCh            chan struct{}
	sigCh             chan os.Signal
}

// NewOSSignalHandler returns a handler calling stop on the first signal and
// kill, if non-nil, on a repeated interrupt.
func NewOSSignalHandler(stop, kill func()) *OSSignalHandler {
	return &OSSignalHandler{
		stop:   stop,
		kill:   kill,
		stopCh: make(chan struct{}),
		sigCh:  make(chan os.Signal, 1),
	}
}

func (h *OSSignalHandler) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return
	}

	h.running = true
	signal.Notify(h.sigCh, syscall.SIGINT, syscall.SIGTERM)
	go h.listen(h.stopCh)
}

func (h *OSSignalHandler) listen(stopCh <-chan struct{}) {
	for {
		select {
		case <-stopCh:
			return
		case sig := <-h.sigCh:
			h.handleSignal(sig)
		}
	}
}

func (h *OSSignalHandler) handleSignal(sig os.Signal) {
	switch sig {
	case syscall.SIGINT:
		h.handleInterrupt()
	case syscall.SIGTERM:
		h.stop()
	}
}

func (h *OSSignalHandler) handleInterrupt() {
	if h.interruptReceived.Swap(true) {
		if h.kill != nil {
			h.kill()
		}
		return
	}
	h.stop()
}

func (h *OSSignalHandler) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return
	}

	signal.Stop(h.sigCh)
	close(h.stopCh)
	h.stopCh = make(chan struct{})
	h.running = false
}

// WithSignals returns a context cancelled by SIGINT or SIGTERM. The returned
// stop function releases the signal registration.
func WithSignals(parent context.Context, kill func()) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	handler := NewOSSignalHandler(cancel, kill)
	handler.Start()

	return ctx, func() {
		handler.Stop()
		cancel()
	}
}
