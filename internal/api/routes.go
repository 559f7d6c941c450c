/**
 * @description
 * API Route definitions for the three services.
 * Each service gets its own setup function; handlers are built here from
 * the shared components the caller already owns.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - internal/api/handlers
 * - internal/api/middleware
 */

package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tf2-stack/listings-backend/internal/api/handlers"
	"github.com/tf2-stack/listings-backend/internal/api/middleware"
	"github.com/tf2-stack/listings-backend/internal/backpacktf/snapshot"
	"github.com/tf2-stack/listings-backend/internal/backpacktf/stream"
	"github.com/tf2-stack/listings-backend/internal/clients"
	"github.com/tf2-stack/listings-backend/internal/services"
	"github.com/tf2-stack/listings-backend/internal/store"
	"github.com/tf2-stack/listings-backend/internal/tf2"
)

func healthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// SetupEdgeRoutes configures the Listings-Service edge API. Every route
// except health requires the shared access token, the websocket included.
func SetupEdgeRoutes(app *fiber.App, authToken string, saveUserData bool, cache *services.ItemCache, listings *store.ListingsStore, users *store.UsersStore, manager *clients.ListingsManager, hub *services.UpdateHub) {
	// 1. Initialize Handlers
	listingsHandler := handlers.NewListingsHandler(cache, listings, manager)
	usersHandler := handlers.NewUsersHandler(users, saveUserData)
	streamHandler := handlers.NewStreamHandler(hub)

	protected := middleware.Protected(authToken)

	// 2. Define Routes
	app.Get("/health", healthCheck)

	app.Get("/listings", protected, listingsHandler.GetListings)
	app.Delete("/listings/:sku", protected, listingsHandler.DeleteListings)
	app.Get("/user", protected, usersHandler.GetUser)

	app.Use("/ws", protected, handlers.UpgradeRequired)
	app.Get("/ws", streamHandler.Serve())
}

// SetupWorkerRoutes configures the WS-Manager internal API. It is meant
// to be reachable only by the other services, so it carries no auth.
func SetupWorkerRoutes(app *fiber.App, cache *services.ItemCache, queue *stream.Queue, updates *stream.UpdateSet, schema *tf2.SchemaProvider) {
	updatesHandler := handlers.NewUpdatesHandler(cache, queue, updates, schema)

	app.Get("/health", healthCheck)

	app.Post("/item", updatesHandler.AddItem)
	app.Delete("/queue", updatesHandler.PurgeQueue)
	app.Get("/item-updates", updatesHandler.ItemUpdates)
}

// SetupSyncRoutes configures the Listings-Manager internal API.
func SetupSyncRoutes(app *fiber.App, fetcher *snapshot.Client, wsManager *clients.WSManager) {
	snapshotsHandler := handlers.NewSnapshotsHandler(fetcher, wsManager)

	app.Get("/health", healthCheck)

	app.Get("/listings", snapshotsHandler.GetListings)
}
