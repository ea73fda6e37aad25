// Package realtime fans leaderboard events out to live subscribers such as
// WebSocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"leaderbot/core"
)

type subscriber struct {
	ch    chan core.Event
	types map[core.EventType]struct{}
}

func (s subscriber) wants(t core.EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Hub is a simple pub/sub for broadcasting events to channels. Slow
// subscribers lose events rather than blocking the publisher.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]subscriber
	next    int
	dropped atomic.Int64
}

func NewHub() *Hub { return &Hub{subs: map[int]subscriber{}} }

// Subscribe registers a buffered receiver. With no types every event is
// delivered; otherwise only the listed types are.
func (h *Hub) Subscribe(buffer int, types ...core.EventType) (int, <-chan core.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	sub := subscriber{ch: make(chan core.Event, buffer)}
	if len(types) > 0 {
		sub.types = make(map[core.EventType]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}
	h.subs[id] = sub
	return id, sub.ch
}

func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

// Broadcast has the event handler signature so it can be subscribed to the
// engine bus directly.
func (h *Hub) Broadcast(_ context.Context, ev core.Event) {
	// hold the read lock while sending so Unsubscribe cannot close a channel
	// mid-send; sends never block
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !sub.wants(ev.Type) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Len returns the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped because a buffer was full.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// MarshalJSON is a helper to convert events to JSON bytes for WebSocket/SSE.
func MarshalJSON(ev core.Event) []byte {
	b, _ := json.Marshal(ev)
	return b
}
