package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tf2-stack/listings-backend/internal/logger"
	"github.com/tf2-stack/listings-backend/internal/models"
)

// UpdateSource is the WS-Manager endpoint that drains the changed-item set.
type UpdateSource interface {
	ItemUpdates(ctx context.Context) ([]models.ItemUpdate, error)
}

// UpdateHub multiplexes item updates to many websocket clients without
// giving each connection its own poll loop against the WS-Manager.
type UpdateHub struct {
	source   UpdateSource
	interval time.Duration

	mu          sync.RWMutex
	subscribers map[chan []byte]string
}

func NewUpdateHub(source UpdateSource) *UpdateHub {
	return &UpdateHub{
		source:      source,
		interval:    time.Second,
		subscribers: make(map[chan []byte]string),
	}
}

// Run polls the changed-item set until ctx is canceled. Each non-empty
// batch is serialized once and fanned out to every subscriber.
func (h *UpdateHub) Run(ctx context.Context) {
	logger.Info("Update broadcaster started")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.poll(ctx)
		}
	}
}

func (h *UpdateHub) poll(ctx context.Context) {
	updates, err := h.source.ItemUpdates(ctx)
	if err != nil {
		logger.Error("Failed to poll item updates: %v", err)
		return
	}
	if len(updates) == 0 {
		return
	}

	payload, err := json.Marshal(updates)
	if err != nil {
		logger.Error("Failed to serialize item updates: %v", err)
		return
	}

	h.broadcast(payload)
}

func (h *UpdateHub) broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		select {
		case sub <- payload:
		default:
			// Subscriber is too slow; drop its oldest message to keep the hub responsive
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- payload:
			default:
			}
		}
	}
}

// Subscribe registers a new listener and returns its id, the message
// channel and a cleanup function.
func (h *UpdateHub) Subscribe() (string, <-chan []byte, func()) {
	id := uuid.NewString()
	ch := make(chan []byte, 256)

	h.mu.Lock()
	h.subscribers[ch] = id
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}

	return id, ch, unsubscribe
}

// Subscribers returns the current subscriber count.
func (h *UpdateHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
