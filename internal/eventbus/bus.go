// Package eventbus is an in-memory, asynchronous event bus. Events go through
// a buffered channel and are dispatched to every listener by a small worker pool.
package eventbus

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultWorkers    = 3
	defaultBufferSize = 100
)

// EventBus is the interface for publishing events and managing subscribers.
type EventBus interface {
	// Publish enqueues an event. It never blocks: when the buffer is full the
	// event is dropped and a warning is logged.
	Publish(eventType string, payload map[string]string)

	// Subscribe registers a listener for every event. Register listeners
	// before the first Publish.
	Subscribe(listener Listener)

	// SubscribeType registers a listener for one event type only.
	SubscribeType(eventType string, listener Listener)

	// Dropped returns how many events were discarded because the buffer was full.
	Dropped() uint64

	// Close stops accepting events and waits until queued events are dispatched.
	Close()
}

type inMemoryBus struct {
	ch        chan Event
	listeners []Listener
	mu        sync.RWMutex
	wg        sync.WaitGroup
	workers   int
	logger    *slog.Logger
	dropped   atomic.Uint64

	closeMu sync.RWMutex
	closed  bool
}

// New creates an in-memory EventBus. workers <= 0 uses 3; a nil logger uses slog.Default().
func New(workers int, logger *slog.Logger) EventBus {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &inMemoryBus{
		ch:      make(chan Event, defaultBufferSize),
		workers: workers,
		logger:  logger,
	}
	b.startWorkers()
	return b
}

func (b *inMemoryBus) startWorkers() {
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for e := range b.ch {
				b.dispatch(e)
			}
		}()
	}
}

// dispatch calls every listener; a panicking listener does not stop the others.
func (b *inMemoryBus) dispatch(e Event) {
	b.mu.RLock()
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("eventbus listener panicked", "event", e.Type, "panic", r)
				}
			}()
			l(e)
		}()
	}
}

func (b *inMemoryBus) Publish(eventType string, payload map[string]string) {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	if b.closed {
		b.logger.Warn("eventbus closed, dropping event", "event", eventType)
		b.dropped.Add(1)
		return
	}
	e := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	select {
	case b.ch <- e:
	default:
		b.dropped.Add(1)
		b.logger.Warn("eventbus buffer full, dropping event", "event", eventType)
	}
}

func (b *inMemoryBus) Subscribe(listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, listener)
}

func (b *inMemoryBus) SubscribeType(eventType string, listener Listener) {
	b.Subscribe(func(e Event) {
		if e.Type == eventType {
			listener(e)
		}
	})
}

func (b *inMemoryBus) Dropped() uint64 { return b.dropped.Load() }

func (b *inMemoryBus) Close() {
	b.closeMu.Lock()
	if b.closed {
		b.closeMu.Unlock()
		return
	}
	b.closed = true
	close(b.ch)
	b.closeMu.Unlock()
	b.wg.Wait()
}
