/**
 * @description
 * Persistence layer for marketplace listings. Listings are stored one row
 * per (sku, listing id) pair with the canonical document in a jsonb column,
 * so a sku's snapshot can be swapped atomically per row while stream
 * updates upsert individual listings.
 *
 * @dependencies
 * - gorm.io/gorm: Postgres access.
 * - github.com/jackc/pgconn: deadlock/serialization error codes for retries.
 */

package store

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tf2-stack/listings-backend/internal/models"
)

// ListingsStore reads and writes listing documents.
type ListingsStore struct {
	DB *gorm.DB
}

// NewListingsStore creates a listings store backed by the given database.
func NewListingsStore(db *gorm.DB) *ListingsStore {
	return &ListingsStore{DB: db}
}

// Collections returns the distinct set of skus that currently have rows.
func (s *ListingsStore) Collections(ctx context.Context) ([]string, error) {
	var skus []string
	err := s.DB.WithContext(ctx).
		Model(&models.Listing{}).
		Distinct().
		Pluck("sku", &skus).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return skus, nil
}

// Get returns every listing document stored for a sku.
func (s *ListingsStore) Get(ctx context.Context, sku string) ([]models.ListingDoc, error) {
	var rows []models.Listing
	err := s.DB.WithContext(ctx).
		Where("sku = ?", sku).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get listings for %s: %w", sku, err)
	}

	docs := make([]models.ListingDoc, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row.Doc)
	}
	return docs, nil
}

// Upsert inserts or replaces a single listing document, keyed by
// (sku, listing id). Deadlocks from concurrent batch writers are retried
// with a jittered backoff.
func (s *ListingsStore) Upsert(ctx context.Context, doc models.ListingDoc) error {
	row := models.Listing{
		Sku:       doc.Sku,
		ListingID: doc.ID,
		Doc:       doc,
	}

	const maxRetries = 5
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = s.DB.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sku"}, {Name: "listing_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"doc", "updated_at"}),
		}).Create(&row).Error
		if err == nil {
			break
		}

		if pgErr, ok := err.(*pgconn.PgError); ok && (pgErr.Code == "40P01" || pgErr.Code == "40001") {
			backoff := time.Duration(attempt*100+rand.Intn(100)) * time.Millisecond
			time.Sleep(backoff)
			continue
		}
		break
	}
	if err != nil {
		return fmt.Errorf("failed to upsert listing %s for %s: %w", doc.ID, doc.Sku, err)
	}
	return nil
}

// Delete removes one listing of a sku by its listing id.
func (s *ListingsStore) Delete(ctx context.Context, sku, listingID string) error {
	err := s.DB.WithContext(ctx).
		Where("sku = ? AND listing_id = ?", sku, listingID).
		Delete(&models.Listing{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete listing %s for %s: %w", listingID, sku, err)
	}
	return nil
}

// DeleteAll removes every listing stored for a sku.
func (s *ListingsStore) DeleteAll(ctx context.Context, sku string) error {
	err := s.DB.WithContext(ctx).
		Where("sku = ?", sku).
		Delete(&models.Listing{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete listings for %s: %w", sku, err)
	}
	return nil
}

// ReplaceAll swaps a sku's rows for a fresh snapshot: delete everything,
// then bulk-insert the new documents. The two steps are intentionally not
// wrapped in one transaction; readers may briefly observe an empty set,
// which the refresh cycle tolerates.
func (s *ListingsStore) ReplaceAll(ctx context.Context, sku string, docs []models.ListingDoc) error {
	if err := s.DeleteAll(ctx, sku); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	rows := make([]models.Listing, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, models.Listing{
			Sku:       sku,
			ListingID: doc.ID,
			Doc:       doc,
		})
	}

	err := s.DB.WithContext(ctx).CreateInBatches(rows, 100).Error
	if err != nil {
		return fmt.Errorf("failed to insert snapshot for %s: %w", sku, err)
	}
	return nil
}
