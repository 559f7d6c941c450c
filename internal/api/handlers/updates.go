/**
 * @description
 * WS-Manager internal API handlers.
 * Lets the other services register items in the tracked set, purge stale
 * queued stream updates, and drain the coalesced changed-item set.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - internal/backpacktf/stream: Update queue and changed-item set
 * - internal/services: Item cache and sku naming
 */

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tf2-stack/listings-backend/internal/backpacktf/stream"
	"github.com/tf2-stack/listings-backend/internal/logger"
	"github.com/tf2-stack/listings-backend/internal/models"
	"github.com/tf2-stack/listings-backend/internal/services"
)

type UpdatesHandler struct {
	Cache   *services.ItemCache
	Queue   *stream.Queue
	Updates *stream.UpdateSet
	Schema  services.SkuNamer
}

func NewUpdatesHandler(cache *services.ItemCache, queue *stream.Queue, updates *stream.UpdateSet, schema services.SkuNamer) *UpdatesHandler {
	return &UpdatesHandler{Cache: cache, Queue: queue, Updates: updates, Schema: schema}
}

type itemRequest struct {
	ItemSku string `json:"item_sku"`
}

// AddItem registers a sku in the tracked set so stream events for it are
// persisted from now on.
// POST /item
func (h *UpdatesHandler) AddItem(c *fiber.Ctx) error {
	var req itemRequest
	if err := c.BodyParser(&req); err != nil || req.ItemSku == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "SKU is required."})
	}

	h.Cache.AddSku(c.Context(), req.ItemSku)
	return c.JSON(fiber.Map{"success": true})
}

// PurgeQueue removes queued stream updates for one item. Called by the
// Listings-Manager after a snapshot supersedes them.
// DELETE /queue
func (h *UpdatesHandler) PurgeQueue(c *fiber.Ctx) error {
	var req itemRequest
	if err := c.BodyParser(&req); err != nil || req.ItemSku == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "SKU is required."})
	}

	name, err := h.Schema.NameFromSku(c.Context(), req.ItemSku)
	if err != nil {
		logger.Error("Failed to resolve name for %s: %v", req.ItemSku, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to resolve item name."})
	}

	removed := h.Queue.RemoveByItemName(name)
	logger.Info("Removed %d queued updates for %s", removed, name)
	return c.JSON(fiber.Map{"success": true, "removed": removed})
}

// ItemUpdates drains and returns the changed-item set.
// GET /item-updates
func (h *UpdatesHandler) ItemUpdates(c *fiber.Ctx) error {
	updates := h.Updates.Drain()
	if updates == nil {
		updates = []models.ItemUpdate{}
	}
	return c.JSON(updates)
}
