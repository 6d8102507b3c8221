// Package livequery implements standing subscriptions over store queries.
// A subscriber receives the full current result set of its query — never a
// diff — once eagerly on subscribe and again after every change to the
// query's collection. Invalidation comes from two feeders: local mutation
// services report their own writes, and an optional change-stream watcher
// reports writes made by other processes.
package livequery

import "sync"

// Hub fans collection invalidations out to registered subscriptions.
type Hub struct {
	mu      sync.Mutex
	nextID  int64
	waiters map[string]map[int64]chan struct{}
}

func NewHub() *Hub {
	return &Hub{waiters: map[string]map[int64]chan struct{}{}}
}

// Invalidate signals every subscription on the collection that its result
// set may have changed. Never blocks; signals coalesce per subscription, so
// a burst of writes can surface as a single re-query.
func (h *Hub) Invalidate(collection string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.waiters[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) register(collection string) (int64, chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	ch := make(chan struct{}, 1)
	if h.waiters[collection] == nil {
		h.waiters[collection] = map[int64]chan struct{}{}
	}
	h.waiters[collection][id] = ch
	return id, ch
}

func (h *Hub) unregister(collection string, id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.waiters[collection], id)
}
