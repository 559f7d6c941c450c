/**
 * @description
 * Websocket fan-out handler for the edge API.
 * Each connected client gets a subscription to the update hub and receives
 * the coalesced changed-item batches as JSON text frames. A client that
 * stops reading is disconnected and removed from the hub.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - github.com/gofiber/websocket/v2: Connection upgrade and frames
 * - internal/services: Update hub
 */

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/tf2-stack/listings-backend/internal/logger"
	"github.com/tf2-stack/listings-backend/internal/services"
)

type StreamHandler struct {
	Hub *services.UpdateHub
}

func NewStreamHandler(hub *services.UpdateHub) *StreamHandler {
	return &StreamHandler{Hub: hub}
}

// UpgradeRequired gates the websocket route: plain HTTP requests get a 426
// instead of reaching the upgrade handler.
func UpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Serve returns the websocket handler that pumps hub broadcasts to one
// client until it disconnects or falls behind.
func (h *StreamHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		id, updates, unsubscribe := h.Hub.Subscribe()
		defer unsubscribe()

		logger.Info("Websocket client %s connected (%d total)", id, h.Hub.Subscribers())
		defer logger.Info("Websocket client %s disconnected", id)

		// Drain inbound frames so close messages are processed; clients
		// are write-only from our side.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case payload, ok := <-updates:
				if !ok {
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					logger.Error("Websocket write to client %s failed: %v", id, err)
					return
				}
			}
		}
	})
}
