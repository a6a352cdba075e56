// Package buffer provides a bounded replay buffer for recently delivered
// messages.
package buffer

import (
	"sync"

	"github.com/blackroad/websocket-manager/internal/model"
)

// Replay is a thread-safe circular buffer holding the most recent delivered
// messages up to a fixed capacity. When full, the oldest message is
// discarded to make room.
//
// The WebSocket gateway uses it to hand a newly attached client the recent
// deliveries for its session without a store round-trip.
type Replay struct {
	mu       sync.RWMutex
	items    []*model.Message
	capacity int
	start    int
	size     int
}

// NewReplay creates a Replay buffer with the specified capacity.
// The capacity must be greater than 0; if not, it defaults to 1.
func NewReplay(capacity int) *Replay {
	if capacity <= 0 {
		capacity = 1
	}
	return &Replay{
		items:    make([]*model.Message, capacity),
		capacity: capacity,
	}
}

// Add appends a message, discarding the oldest one when the buffer is full.
func (r *Replay) Add(msg *model.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size < r.capacity {
		r.items[(r.start+r.size)%r.capacity] = msg
		r.size++
		return
	}

	r.items[r.start] = msg
	r.start = (r.start + 1) % r.capacity
}

// Recent returns the buffered messages addressed to sessionID, oldest
// first. The returned slice is independent of the buffer.
func (r *Replay) Recent(sessionID string) []*model.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.Message
	for i := 0; i < r.size; i++ {
		msg := r.items[(r.start+i)%r.capacity]
		if msg.RecipientID == sessionID {
			result = append(result, msg)
		}
	}
	return result
}

// Clear removes all buffered messages.
func (r *Replay) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.items {
		r.items[i] = nil
	}
	r.start = 0
	r.size = 0
}

// Len returns the number of buffered messages.
func (r *Replay) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Cap returns the capacity of the buffer.
func (r *Replay) Cap() int {
	return r.capacity
}
