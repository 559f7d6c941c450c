package handlers

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tf2-stack/listings-backend/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	// A pooled second connection would see its own empty :memory: database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Listing{}, &models.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// stubNamer satisfies both the cache's and the snapshot fetcher's sku
// naming interfaces.
type stubNamer struct {
	names map[string]string
}

func (s *stubNamer) NameFromSku(ctx context.Context, sku string) (string, error) {
	name, ok := s.names[sku]
	if !ok {
		return "", fmt.Errorf("unknown sku %s", sku)
	}
	return name, nil
}

func listingDoc(id, sku, name string) models.ListingDoc {
	return models.ListingDoc{
		ID:         id,
		Sku:        sku,
		Name:       name,
		Intent:     "sell",
		SteamID:    "76561198000000001",
		Currencies: map[string]float64{"metal": 55.11},
		ListedAt:   1700000000,
		BumpAt:     1700000100,
	}
}
