/**
 * @description
 * WS-Manager entry point.
 * Responsible for the real-time half of the pipeline:
 * 1. Ingesting the marketplace event stream over WebSocket.
 * 2. Dispatching queued events into listing documents.
 * 3. Serving the internal API the other services use (item registration,
 *    queue purge, changed-item drain).
 *
 * @dependencies
 * - internal/config
 * - internal/db
 * - internal/backpacktf/stream
 * - internal/services
 * - internal/api
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/tf2-stack/listings-backend/internal/api"
	"github.com/tf2-stack/listings-backend/internal/backpacktf/stream"
	"github.com/tf2-stack/listings-backend/internal/config"
	"github.com/tf2-stack/listings-backend/internal/db"
	"github.com/tf2-stack/listings-backend/internal/logger"
	"github.com/tf2-stack/listings-backend/internal/services"
	"github.com/tf2-stack/listings-backend/internal/store"
	"github.com/tf2-stack/listings-backend/internal/tf2"
)

func main() {
	logger.Info("🔥 Starting WS-Manager...")

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

	// 5. Pipeline: stream -> queue -> dispatcher -> store
	cache := services.NewItemCache(listingsStore, schemaProvider)
	queue := stream.NewQueue()
	updates := stream.NewUpdateSet()

	wsClient := stream.NewClient(cfg.BackpackTF.WSURL, cfg.BackpackTF.AppID, queue)
	dispatcher := &stream.Dispatcher{
		Queue:     queue,
		Updates:   updates,
		Listings:  listingsStore,
		Users:     usersStore,
		Cache:     cache,
		Schema:    schemaProvider,
		AppID:     cfg.BackpackTF.AppID,
		SaveUsers: cfg.Services.SaveUserData,
	}

	go wsClient.Run(ctx)
	go dispatcher.Run(ctx)

	// 6. Internal API
	app := fiber.New(fiber.Config{
		AppName:       "tf2-stack WS-Manager",
		StrictRouting: true,
		CaseSensitive: true,
	})
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	api.SetupWorkerRoutes(app, cache, queue, updates, schemaProvider)

	go func() {
		logger.Info("🚀 WS-Manager listening on port %s", cfg.Server.Port)
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	// 7. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down WS-Manager...")
	cancel()
	if err := app.Shutdown(); err != nil {
		logger.Error("Server shutdown failed: %v", err)
	}

	// Give the in-flight dispatcher batch time to finish its writes.
	time.Sleep(1 * time.Second)
	logger.Info("WS-Manager exited.")
}
