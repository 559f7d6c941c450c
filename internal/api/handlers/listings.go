/**
 * @description
 * Edge listings handlers.
 * Serves cached listing snapshots from the store, and triggers an
 * on-demand snapshot through the Listings-Manager for items that are not
 * tracked yet.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - internal/services: Item cache
 * - internal/store: Listings persistence
 * - internal/clients: Listings-Manager client
 */

package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/tf2-stack/listings-backend/internal/clients"
	"github.com/tf2-stack/listings-backend/internal/logger"
	"github.com/tf2-stack/listings-backend/internal/services"
	"github.com/tf2-stack/listings-backend/internal/store"
	"github.com/tf2-stack/listings-backend/internal/tf2"
)

type ListingsHandler struct {
	Cache   *services.ItemCache
	Store   *store.ListingsStore
	Manager *clients.ListingsManager
}

func NewListingsHandler(cache *services.ItemCache, listings *store.ListingsStore, manager *clients.ListingsManager) *ListingsHandler {
	return &ListingsHandler{Cache: cache, Store: listings, Manager: manager}
}

// GetListings returns all listings for one item. Tracked items are served
// from the store; unknown ones are registered and hydrated synchronously
// through the Listings-Manager.
// GET /listings?sku=...
func (h *ListingsHandler) GetListings(c *fiber.Ctx) error {
	ctx := c.Context()

	sku := c.Query("sku")
	if !tf2.TestSku(sku) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid SKU."})
	}

	if h.Cache.CheckSku(ctx, sku) {
		docs, err := h.Store.Get(ctx, sku)
		if err != nil {
			logger.Error("Failed to read listings for %s: %v", sku, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch listings."})
		}
		if len(docs) == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listings not found."})
		}
		return c.JSON(docs)
	}

	// First request for this item: track it and hydrate from the
	// marketplace before answering.
	h.Cache.AddSku(ctx, sku)

	docs, err := h.Manager.GetListings(ctx, sku)
	if err != nil {
		logger.Error("On-demand snapshot for %s failed: %v", sku, err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listings not found."})
	}
	if len(docs) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Listings not found."})
	}
	return c.JSON(docs)
}

// DeleteListings stops tracking an item and removes its stored listings.
// DELETE /listings/:sku
func (h *ListingsHandler) DeleteListings(c *fiber.Ctx) error {
	ctx := c.Context()

	sku, err := url.PathUnescape(c.Params("sku"))
	if err != nil || !tf2.TestSku(sku) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid SKU."})
	}

	h.Cache.RemoveSku(sku)
	if err := h.Store.DeleteAll(ctx, sku); err != nil {
		logger.Error("Failed to delete listings for %s: %v", sku, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete listings."})
	}

	logger.Info("Stopped tracking %s", sku)
	return c.JSON(fiber.Map{"success": true})
}
