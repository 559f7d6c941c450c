/**
 * @description
 * Listings-Manager internal API handlers.
 * Runs a synchronous snapshot fetch for one item and, when listings come
 * back, registers the item with the WS-Manager so stream deltas for it
 * are kept from now on.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - internal/backpacktf/snapshot: Snapshot fetcher
 * - internal/clients: WS-Manager client
 */

package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/tf2-stack/listings-backend/internal/backpacktf/snapshot"
	"github.com/tf2-stack/listings-backend/internal/clients"
	"github.com/tf2-stack/listings-backend/internal/logger"
)

type SnapshotsHandler struct {
	Fetcher   *snapshot.Client
	WSManager *clients.WSManager
}

func NewSnapshotsHandler(fetcher *snapshot.Client, wsManager *clients.WSManager) *SnapshotsHandler {
	return &SnapshotsHandler{Fetcher: fetcher, WSManager: wsManager}
}

// GetListings fetches a fresh snapshot for one item and returns it.
// GET /listings?item_sku=...
func (h *SnapshotsHandler) GetListings(c *fiber.Ctx) error {
	ctx := c.Context()

	sku := c.Query("item_sku")
	if sku == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "item_sku is required."})
	}

	docs, err := h.Fetcher.Fetch(ctx, sku)
	if err != nil {
		switch {
		case errors.Is(err, snapshot.ErrInvalidSku):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid SKU."})
		case errors.Is(err, snapshot.ErrSnapshotUnavailable):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listings not found."})
		default:
			logger.Error("Snapshot fetch for %s failed: %v", sku, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch listings."})
		}
	}
	if len(docs) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listings not found."})
	}

	// Registration is best-effort: the snapshot is already stored, a
	// missed registration only delays stream updates until the next one.
	if err := h.WSManager.AddItem(ctx, sku); err != nil {
		logger.Error("Failed to register %s with the WS-Manager: %v", sku, err)
	}

	return c.JSON(docs)
}
