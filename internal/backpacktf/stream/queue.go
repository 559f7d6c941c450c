/**
 * @description
 * In-memory buffers between the websocket ingestor and the update
 * dispatcher. The Queue holds raw event messages in arrival order; the
 * UpdateSet coalesces changed items (one entry per sku) between drains of
 * the internal /item-updates endpoint.
 *
 * Both are unbounded on purpose: the ingestor's adaptive sleep is the
 * backpressure mechanism, messages are never dropped to shed load.
 */

package stream

import (
	"sync"

	"github.com/buger/jsonparser"
	json "github.com/goccy/go-json"

	"github.com/tf2-stack/listings-backend/internal/models"
)

// Queue is a FIFO buffer of raw stream messages. Safe for concurrent use.
type Queue struct {
	mu    sync.Mutex
	items []json.RawMessage
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Append adds messages to the tail of the queue.
func (q *Queue) Append(msgs ...json.RawMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, msgs...)
}

// Drain pops up to max messages from the head of the queue.
func (q *Queue) Drain(max int) []json.RawMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	if max > len(q.items) {
		max = len(q.items)
	}

	batch := q.items[:max:max]
	q.items = q.items[max:]
	return batch
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// RemoveByItemName drops every queued message whose payload.item.name
// matches, and returns how many were removed. Called after a snapshot
// refresh makes the queued deltas for that item stale.
func (q *Queue) RemoveByItemName(name string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	removed := 0
	for _, msg := range q.items {
		itemName, err := jsonparser.GetString(msg, "payload", "item", "name")
		if err == nil && itemName == name {
			removed++
			continue
		}
		kept = append(kept, msg)
	}
	q.items = kept
	return removed
}

// UpdateSet accumulates the items whose listings changed since the last
// drain. Entries are deduplicated by sku. Safe for concurrent use.
type UpdateSet struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	items []models.ItemUpdate
}

// NewUpdateSet creates an empty update set.
func NewUpdateSet() *UpdateSet {
	return &UpdateSet{seen: make(map[string]struct{})}
}

// Add records a changed item unless its sku is already pending.
func (s *UpdateSet) Add(sku, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[sku]; ok {
		return
	}
	s.seen[sku] = struct{}{}
	s.items = append(s.items, models.ItemUpdate{Sku: sku, Name: name})
}

// Drain atomically returns all pending updates and resets the set.
func (s *UpdateSet) Drain() []models.ItemUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.items
	s.items = nil
	s.seen = make(map[string]struct{})
	return items
}

// Len returns the number of pending updates.
func (s *UpdateSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
