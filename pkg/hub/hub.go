package hub

import (
	"context"
	"log/slog"
	"sync"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 256

// Subscription is one registered receiver. C is closed when the hub drops
// the subscriber, either because it unsubscribed, fell behind or the hub
// stopped.
type Subscription struct {
	C <-chan Message

	send chan Message
	hub  *Hub
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	select {
	case s.hub.unregister <- s:
	case <-s.hub.done:
	}
}

// Hub maintains the set of active subscribers and broadcasts messages to them
type Hub struct {
	name   string
	logger *slog.Logger

	subs map[*Subscription]bool

	broadcast  chan Message
	register   chan *Subscription
	unregister chan *Subscription
	done       chan struct{}

	// guards the subscriber count for readers outside Run
	mu sync.RWMutex
}

// New creates a new Hub
func New(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		name:       name,
		logger:     logger.With("component", "hub", "hub", name),
		subs:       make(map[*Subscription]bool),
		broadcast:  make(chan Message, DefaultBuffer),
		register:   make(chan *Subscription),
		unregister: make(chan *Subscription),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns when ctx is done, closing every
// subscriber channel.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for s := range h.subs {
			close(s.send)
			delete(h.subs, s)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case s := <-h.register:
			h.mu.Lock()
			h.subs[s] = true
			count := len(h.subs)
			h.mu.Unlock()
			h.logger.Debug("subscriber connected", "total", count)

		case s := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.subs[s]; ok {
				delete(h.subs, s)
				close(s.send)
			}
			count := len(h.subs)
			h.mu.Unlock()
			h.logger.Debug("subscriber disconnected", "remaining", count)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for s := range h.subs {
				select {
				case s.send <- msg:
				default:
					// too slow
					close(s.send)
					delete(h.subs, s)
					h.logger.Warn("dropped slow subscriber")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Subscribe registers a receiver with a queue of the given length. It
// returns nil once the hub has stopped.
func (h *Hub) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	send := make(chan Message, buffer)
	s := &Subscription{C: send, send: send, hub: h}
	select {
	case h.register <- s:
		return s
	case <-h.done:
		return nil
	}
}

// Broadcast queues a message for all subscribers. Messages are dropped when
// the queue is full.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast queue full, dropping message")
	}
}

// Publish encodes and broadcasts an event.
func (h *Hub) Publish(ev Event) error {
	msg, err := ev.Encode()
	if err != nil {
		return err
	}
	h.Broadcast(msg)
	return nil
}

// BroadcastBinary broadcasts binary data such as a preview JPEG.
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(NewBinaryMessage(data))
}

// ClientCount returns the number of subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Done is closed after Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
