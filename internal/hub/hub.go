package hub

import (
	"sync"
)

// Sink is one live delivery channel. Send must not block; it reports false
// when the payload was dropped (slow or closing client).
type Sink interface {
	Send(v any) bool
}

// Hub maps a user id to the set of live channels subscribed under it. A
// user may hold several concurrent connections (devices, tabs); delivery is
// best-effort fan-out to all of them and publishing to an empty topic is a
// no-op. There is exactly one Hub per process, owned by the server and
// passed by reference to session handlers.
type Hub struct {
	mu     sync.RWMutex
	topics map[int64]map[Sink]struct{}
}

func NewHub() *Hub {
	return &Hub{topics: make(map[int64]map[Sink]struct{})}
}

func (h *Hub) Subscribe(userID int64, s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.topics[userID]; !ok {
		h.topics[userID] = make(map[Sink]struct{})
	}
	h.topics[userID][s] = struct{}{}
}

// Unsubscribe removes that specific channel and drops the topic entry once
// no channels remain, so abandoned users do not accumulate in the map.
func (h *Hub) Unsubscribe(userID int64, s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.topics[userID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.topics, userID)
		}
	}
}

// Publish fans the payload out to every channel currently subscribed for
// the user and returns how many accepted it. Offline users simply get zero
// deliveries; history is the only durable record.
func (h *Hub) Publish(userID int64, v any) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for s := range h.topics[userID] {
		if s.Send(v) {
			delivered++
		}
	}
	return delivered
}

// Online reports whether the user has at least one live channel.
func (h *Hub) Online(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[userID]) > 0
}
