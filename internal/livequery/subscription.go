package livequery

import (
	"context"
	"sync"

	"github.com/pulsewire/pulse/pkg/logger"
	"github.com/pulsewire/pulse/pkg/metrics"
)

// Runner re-executes the subscription's query and returns the full current
// result set.
type Runner[T any] func(ctx context.Context) ([]T, error)

// Subscription is a live handle on a query. Snapshots delivers full result
// sets in commit order for this query; a slow consumer sees the latest
// snapshot, intermediate ones may be skipped. Cancel is the only
// cancellation primitive and must be called on consumer teardown —
// a leaked subscription keeps re-querying the store until its context ends.
type Subscription[T any] struct {
	ch   chan []T
	stop chan struct{}
	once sync.Once
}

// Snapshots returns the snapshot stream. The channel is closed after Cancel
// or when the subscription's context ends.
func (s *Subscription[T]) Snapshots() <-chan []T { return s.ch }

// Cancel releases the subscription. Safe to call more than once.
func (s *Subscription[T]) Cancel() {
	s.once.Do(func() { close(s.stop) })
}

// Subscribe registers a standing query against the hub. The runner executes
// once immediately so the consumer starts from current state, then once per
// invalidation of the collection.
func Subscribe[T any](ctx context.Context, h *Hub, collection string, run Runner[T]) *Subscription[T] {
	s := &Subscription[T]{
		ch:   make(chan []T, 1),
		stop: make(chan struct{}),
	}
	id, notify := h.register(collection)
	metrics.LiveSubscriptions.Inc()

	go func() {
		defer func() {
			h.unregister(collection, id)
			metrics.LiveSubscriptions.Dec()
			close(s.ch)
		}()

		if !s.deliver(ctx, collection, run) {
			return
		}
		for {
			select {
			case <-notify:
				if !s.deliver(ctx, collection, run) {
					return
				}
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return s
}

// deliver re-runs the query and hands the consumer the result. Returns false
// when the subscription should end. A failed re-query keeps the subscription
// alive; the next invalidation retries.
func (s *Subscription[T]) deliver(ctx context.Context, collection string, run Runner[T]) bool {
	docs, err := run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		logger.Warnf("livequery %s: re-query failed: %v", collection, err)
		return true
	}
	// drop the stale pending snapshot, if any, so the consumer always reads
	// the latest state
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- docs:
		metrics.SnapshotsDelivered.WithLabelValues(collection).Inc()
		return true
	case <-s.stop:
		return false
	case <-ctx.Done():
		return false
	}
}
