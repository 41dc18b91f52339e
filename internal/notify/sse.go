package notify

import (
	"context"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/inventoryd/internal/logfields"
)

// Hub broadcasts notifications to connected event-stream clients. The HTTP
// layer subscribes one channel per open SSE connection; the scheduler delivers
// through the Sink interface.
type Hub struct {
	mu          sync.RWMutex
	subscribers []chan Notification
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{}
}

func (h *Hub) Name() string { return "sse" }

// Subscribe registers a new listener. The returned channel receives every
// notification delivered while subscribed; call the returned function to
// unsubscribe and close the channel.
func (h *Hub) Subscribe() (chan Notification, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Notification, 10)
	h.subscribers = append(h.subscribers, ch)

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, sub := range h.subscribers {
			if sub == ch {
				h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
				close(ch)
				break
			}
		}
	}

	return ch, unsubscribe
}

// SubscriberCount returns the number of connected listeners.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Probe succeeds whenever the hub exists; a hub with no listeners still
// accepts notifications (they are simply broadcast to nobody).
func (h *Hub) Probe(context.Context) error { return nil }

// Deliver broadcasts to every subscriber without blocking the caller.
func (h *Hub) Deliver(_ context.Context, n Notification) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- n:
		default:
			slog.Warn("Event channel full, dropping notification",
				logfields.Sink(h.Name()), slog.String("tag", n.Tag))
		}
	}
	return nil
}
