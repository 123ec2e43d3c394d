// Package buffer provides a bounded message history for workspaces.
package buffer

import (
	"sync"

	"github.com/collab-workspace/backend/internal/model"
)

// History is a thread-safe, insertion-ordered message buffer that keeps the
// most recent entries up to a fixed capacity. When the buffer is full, the
// oldest entry is evicted first (FIFO) to make room for new entries.
//
// This backs the per-workspace broadcast history: a reconnecting client
// recovers state via the join-time snapshot, and the history is a bounded
// record of recent traffic, never a redelivery queue.
type History struct {
	entries  []*model.Message
	capacity int
	mu       sync.RWMutex
}

// NewHistory creates a new History with the specified capacity.
// The capacity must be greater than 0; if not, it defaults to 1.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 1
	}
	return &History{
		entries:  make([]*model.Message, 0, capacity),
		capacity: capacity,
	}
}

// Append adds a message to the history. If the history is at capacity, the
// oldest entry is discarded so the length never exceeds the capacity.
func (h *History) Append(msg *model.Message) {
	if msg == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) >= h.capacity {
		// Evict the oldest entry, shifting the remainder left
		copy(h.entries, h.entries[1:])
		h.entries[len(h.entries)-1] = msg
		return
	}

	h.entries = append(h.entries, msg)
}

// Snapshot returns a copy of the current entries in insertion order.
// The returned slice is safe to use without holding the lock.
func (h *History) Snapshot() []*model.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.entries) == 0 {
		return nil
	}

	result := make([]*model.Message, len(h.entries))
	copy(result, h.entries)
	return result
}

// Len returns the current number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.entries)
}

// Cap returns the capacity of the history.
func (h *History) Cap() int {
	return h.capacity
}
