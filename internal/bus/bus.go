package bus

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Free-Rat/type-racer-wars/internal/protocol"
)

// Event is a room-scoped message published for every session to see.
// Origin identifies the session whose input produced the event; it is
// uuid.Nil for events synthesized by the server itself (countdown ticks,
// reconnect replay), which no forwarder may suppress.
type Event struct {
	Room   string
	Origin uuid.UUID
	Msg    protocol.ServerMessage
}

// Stats contains runtime statistics for the bus.
type Stats struct {
	Subscribers int
	Published   int64
	Dropped     int64
}

// Bus fans events out to all subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the event and its lag counter
// grows instead.
type Bus struct {
	logger  *slog.Logger
	bufSize int

	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool

	published atomic.Int64
	dropped   atomic.Int64
}

// Subscription is one subscriber's handle on the bus.
type Subscription struct {
	ch     chan Event
	lagged atomic.Int64
}

// Events returns the channel of delivered events. It is closed when the
// subscription is cancelled or the bus shuts down.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Lagged returns the total number of events this subscriber has missed.
func (s *Subscription) Lagged() int64 {
	return s.lagged.Load()
}

// New creates a bus whose subscribers buffer up to bufSize events.
func New(bufSize int, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	if bufSize < 1 {
		bufSize = 1
	}
	return &Bus{
		logger:  logger,
		bufSize: bufSize,
		subs:    make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a new subscriber. Events published after Subscribe
// returns are visible to it.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan Event, b.bufSize)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
}

// Publish delivers ev to every live subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			sub.lagged.Add(1)
			b.dropped.Add(1)
			b.logger.Warn("subscriber lagging, event dropped",
				"room", ev.Room,
				"tag", ev.Msg.Tag(),
			)
		}
	}
	b.published.Add(1)
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.ch)
		delete(b.subs, sub)
	}
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{
		Subscribers: len(b.subs),
		Published:   b.published.Load(),
		Dropped:     b.dropped.Load(),
	}
}
