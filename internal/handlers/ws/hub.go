package ws

import (
	"sync"
)

// Subscriber receives events published to a group it has joined. Room and
// chat-list sessions both implement it; each decides how (and whether) an
// event reaches its client.
type Subscriber interface {
	Deliver(event interface{})
}

// Hub is the in-process broadcast layer: named multicast groups with
// join/leave/publish. Publishing walks the group's members sequentially, so
// two events published by the same goroutine reach every member in order.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{groups: make(map[string]map[Subscriber]struct{})}
}

func (h *Hub) Join(group string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.groups[group] == nil {
		h.groups[group] = make(map[Subscriber]struct{})
	}
	h.groups[group][sub] = struct{}{}
}

func (h *Hub) Leave(group string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.groups[group]; ok {
		delete(members, sub)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

// Publish delivers event to every current member of the group. Deliver must
// not block: sessions enqueue to a buffered per-client channel.
func (h *Hub) Publish(group string, event interface{}) {
	h.mu.RLock()
	members := make([]Subscriber, 0, len(h.groups[group]))
	for sub := range h.groups[group] {
		members = append(members, sub)
	}
	h.mu.RUnlock()

	for _, sub := range members {
		sub.Deliver(event)
	}
}

// GroupSize reports the current member count of a group.
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}
