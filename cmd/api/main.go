/**
 * @description
 * Listings-Service entry point: the edge API.
 * Serves stored listing snapshots, triggers on-demand hydration for
 * unknown items through the Listings-Manager, and fans the WS-Manager's
 * changed-item batches out to websocket subscribers.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2: Web framework
 * - internal/config: Config loader
 * - internal/db: Database connections
 * - internal/services: Item cache and update hub
 *
 * @notes
 * - Requires the shared access token on every route except /health.
 * - Connects to Postgres and Redis on startup.
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/tf2-stack/listings-backend/internal/api"
	"github.com/tf2-stack/listings-backend/internal/clients"
	"github.com/tf2-stack/listings-backend/internal/config"
	"github.com/tf2-stack/listings-backend/internal/db"
	"github.com/tf2-stack/listings-backend/internal/logger"
	"github.com/tf2-stack/listings-backend/internal/services"
	"github.com/tf2-stack/listings-backend/internal/store"
	"github.com/tf2-stack/listings-backend/internal/tf2"
)

func main() {
	logger.Info("🔥 Starting Listings-Service...")

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	// 2. Connect DBs
	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("Postgres connection failed: %v", err)
	}
	if err := db.Migrate(pgDB); err != nil {
		logger.Fatal("Migration failed: %v", err)
	}

	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Fatal("Redis connection failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Item Schema
	schemaProvider := tf2.NewSchemaProvider(redisClient, cfg.Steam.APIKey, cfg.BackpackTF.AppID)
	if _, err := schemaProvider.Schema(ctx); err != nil {
		logger.Fatal("Failed to load item schema: %v", err)
	}
	go schemaProvider.Run(ctx)

	// 4. Stores
	listingsStore := store.NewListingsStore(pgDB)
	usersStore := store.NewUsersStore(pgDB)
	if !cfg.Services.SaveUserData {
		if err := usersStore.Drop(ctx); err != nil {
			logger.Error("Failed to clear users table: %v", err)
		}
	}

	// 5. Services
	cache := services.NewItemCache(listingsStore, schemaProvider)
	wsManager := clients.NewWSManager(cfg.Services.WSManagerURL)
	listingsManager := clients.NewListingsManager(cfg.Services.ListingsManagerURL)

	hub := services.NewUpdateHub(wsManager)
	go hub.Run(ctx)

	// 6. Edge API
	app := fiber.New(fiber.Config{
		AppName:       "tf2-stack Listings-Service",
		StrictRouting: true,
		CaseSensitive: true,
	})
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	api.SetupEdgeRoutes(app, cfg.Services.AuthToken, cfg.Services.SaveUserData, cache, listingsStore, usersStore, listingsManager, hub)

	go func() {
		logger.Info("🚀 Listings-Service listening on port %s", cfg.Server.Port)
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	// 7. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Listings-Service...")
	cancel()
	if err := app.Shutdown(); err != nil {
		logger.Error("Server shutdown failed: %v", err)
	}
	logger.Info("Listings-Service exited.")
}
