// Package notify fans new notifications out to live subscribers. Delivery is
// best effort; the notification collection remains the source of truth.
package notify

import (
	"context"
	"sync"
	"sync/atomic"

	"maptss.ao/internal/model"
)

const bufferSize = 16

type subscriber struct {
	userID string
	ch     chan model.Notification
}

// Hub fans out notifications to subscribers of the addressed user. An empty
// user id subscribes to every notification.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]subscriber
	next    int
	dropped atomic.Int64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]subscriber)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// notifications for userID. The channel is closed when ctx ends.
func (h *Hub) Subscribe(ctx context.Context, userID string) <-chan model.Notification {
	ch := make(chan model.Notification, bufferSize)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = subscriber{userID: userID, ch: ch}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

// Publish delivers n to matching subscribers and reports how many got it.
// Slow subscribers miss the notification rather than block the caller.
func (h *Hub) Publish(n model.Notification) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, sub := range h.subs {
		if sub.userID != "" && sub.userID != n.UserID {
			continue
		}
		select {
		case sub.ch <- n:
			delivered++
		default:
			h.dropped.Add(1)
		}
	}
	return delivered
}

// Dropped reports how many deliveries were skipped because a subscriber's
// buffer was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
