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
	"github.com/tf2-stack/listings-backend/internal/backpacktf/snapshot"
	"github.com/tf2-stack/listings-backend/internal/clients"
	"github.com/tf2-stack/listings-backend/internal/config"
	"github.com/tf2-stack/listings-backend/internal/db"
	"github.com/tf2-stack/listings-backend/internal/logger"
	"github.com/tf2-stack/listings-backend/internal/services"
	"github.com/tf2-stack/listings-backend/internal/store"
	"github.com/tf2-stack/listings-backend/internal/tf2"
)

func main() {
	logger.Info("🔥 Starting Listings-Manager...")

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

	// 4. Snapshot Fetcher
	listingsStore := store.NewListingsStore(pgDB)
	limiter := snapshot.NewSmartRateLimiter(cfg.BackpackTF.Tokens)
	if !limiter.HasTokens() {
		logger.Error("No marketplace tokens configured; snapshot fetches will be rejected upstream")
	}
	fetcher := snapshot.NewClient(cfg.BackpackTF.APIURL, limiter, listingsStore, schemaProvider, cfg.BackpackTF.AppID)

	// 5. Periodic Refresher
	wsManager := clients.NewWSManager(cfg.Services.WSManagerURL)
	refresher := services.NewRefresher(listingsStore, fetcher, wsManager)
	go refresher.Run(ctx)

	// 6. Internal API
	app := fiber.New(fiber.Config{
		AppName:       "tf2-stack Listings-Manager",
		StrictRouting: true,
		CaseSensitive: true,
	})
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	api.SetupSyncRoutes(app, fetcher, wsManager)

	go func() {
		logger.Info("🚀 Listings-Manager listening on port %s", cfg.Server.Port)
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	// 7. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Listings-Manager...")
	cancel()
	if err := app.Shutdown(); err != nil {
		logger.Error("Server shutdown failed: %v", err)
	}
	logger.Info("Listings-Manager exited.")
}
