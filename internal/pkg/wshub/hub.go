package wshub

import (
	"sync"
)

// Event is a realtime event pushed to websocket subscribers
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// Hub manages websocket subscribers and event broadcasting, keyed by the
// user the subscription belongs to.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers a new subscriber for a user and returns the event
// channel and a cleanup function.
func (h *Hub) Subscribe(userEmail string) (chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 10)

	if h.subscribers[userEmail] == nil {
		h.subscribers[userEmail] = make(map[chan Event]struct{})
	}
	h.subscribers[userEmail][ch] = struct{}{}

	cleanup := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subscribers[userEmail], ch)
		close(ch)
		if len(h.subscribers[userEmail]) == 0 {
			delete(h.subscribers, userEmail)
		}
	}

	return ch, cleanup
}

// Publish sends an event to all subscribers of a specific user.
func (h *Hub) Publish(userEmail string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if subs, ok := h.subscribers[userEmail]; ok {
		for ch := range subs {
			select {
			case ch <- event:
			default:
				// Skip if channel is full (non-blocking to prevent deadlock)
			}
		}
	}
}

// Broadcast sends an event to every subscriber of every user.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, subs := range h.subscribers {
		for ch := range subs {
			select {
			case ch <- event:
			default:
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers for a user.
func (h *Hub) SubscriberCount(userEmail string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if subs, ok := h.subscribers[userEmail]; ok {
		return len(subs)
	}
	return 0
}
