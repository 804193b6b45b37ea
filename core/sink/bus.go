package sink

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/adalundhe/dirsentry/core/change"
)

// DefaultBufferSize is the default number of events queued for the lossy
// sinks before drops.
const DefaultBufferSize = 1024

// =============================================================================
// Bus
// =============================================================================

// BusConfig selects the sinks of a Bus and how each is fed.
type BusConfig struct {
	// BufferSize bounds the lossy queue. Zero means DefaultBufferSize.
	BufferSize int
	Logger     *slog.Logger

	// Durable sinks receive every published event in order. Their queue
	// grows as needed and is drained on Close.
	Durable []Sink

	// Lossy sinks share a bounded buffer. Events are dropped and counted
	// when it is full.
	Lossy []Sink
}

// Bus fans events out to registered sinks. Publish never blocks: durable
// sinks are fed from an unbounded queue, lossy sinks from a bounded buffer
// that drops on overflow.
type Bus struct {
	durable []Sink
	lossy   []Sink
	queue   *eventQueue
	buffer  chan change.Event
	logger  *slog.Logger

	dropped   atomic.Uint64
	delivered atomic.Uint64

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewBus creates a bus for config and starts its dispatchers.
func NewBus(config BusConfig) *Bus {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBufferSize
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	b := &Bus{
		durable: config.Durable,
		lossy:   config.Lossy,
		queue:   newEventQueue(),
		buffer:  make(chan change.Event, config.BufferSize),
		logger:  config.Logger,
	}

	b.wg.Add(2)
	go b.dispatchDurable()
	go b.dispatchLossy()

	return b
}

// Publish queues event for delivery. Durable sinks always get it while the
// bus is open. It returns false if the event was dropped for the lossy sinks
// or the bus is closed.
func (b *Bus) Publish(event change.Event) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.dropped.Add(1)
		return false
	}

	if len(b.durable) > 0 {
		b.queue.push(event)
	}

	select {
	case b.buffer <- event:
		return true
	default:
		b.dropped.Add(1)
		b.logger.Warn("event bus full, dropping event for lossy sinks",
			"path", event.Path,
			"kind", event.Kind.String(),
		)
		return false
	}
}

// Emit implements Sink so a bus can be nested or passed where a Sink is
// expected.
func (b *Bus) Emit(event change.Event) {
	b.Publish(event)
}

// Dropped returns the number of events the lossy sinks never saw.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Delivered returns the number of events handed to the lossy sinks.
func (b *Bus) Delivered() uint64 {
	return b.delivered.Load()
}

// dispatchDurable drains the durable queue until it is closed and empty.
func (b *Bus) dispatchDurable() {
	defer b.wg.Done()

	for {
		batch, ok := b.queue.next()
		for _, event := range batch {
			for _, s := range b.durable {
				b.deliver(s, event)
			}
		}
		if !ok {
			return
		}
	}
}

// dispatchLossy delivers buffered events until the buffer is closed and
// drained.
func (b *Bus) dispatchLossy() {
	defer b.wg.Done()

	for event := range b.buffer {
		for _, s := range b.lossy {
			b.deliver(s, event)
		}
		b.delivered.Add(1)
	}
}

// deliver isolates a panicking sink so the others still receive the event.
func (b *Bus) deliver(s Sink, event change.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("sink panicked", "panic", r, "path", event.Path)
		}
	}()
	s.Emit(event)
}

// Close stops accepting events, waits for queued events to be delivered and
// closes every sink that implements io.Closer.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.queue.close()
	close(b.buffer)
	b.mu.Unlock()

	b.wg.Wait()

	var firstErr error
	for _, group := range [][]Sink{b.durable, b.lossy} {
		for _, s := range group {
			if c, ok := s.(io.Closer); ok {
				if err := c.Close(); err != nil && firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	return firstErr
}

// =============================================================================
// Event Queue
// =============================================================================

// eventQueue is an unbounded FIFO with a single consumer.
type eventQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	events []change.Event
	closed bool
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *eventQueue) push(event change.Event) {
	q.mu.Lock()
	q.events = append(q.events, event)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// next waits for queued events and takes all of them. ok is false once the
// queue is closed and this batch is the last.
func (q *eventQueue) next() (batch []change.Event, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.events) == 0 && !q.closed {
		q.cond.Wait()
	}
	batch, q.events = q.events, nil
	return batch, !q.closed
}
