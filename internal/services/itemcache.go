/**
 * @description
 * In-memory index of tracked items, keyed both by item name and by sku.
 * The dispatcher uses it to decide whether a stream event is worth
 * persisting; the edge API uses it to route between the local store and
 * an on-demand snapshot.
 *
 * The index is rebuilt from the store's collection list when it is empty
 * or older than CacheMaxAge. Rebuilds are best-effort: concurrent
 * refreshes may race and the last writer wins.
 *
 * @dependencies
 * - internal/logger: Structured logging.
 */

package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tf2-stack/listings-backend/internal/logger"
)

// CacheMaxAge is how long the item index is trusted before a re-query.
const CacheMaxAge = 30 * time.Minute

// CollectionLister enumerates the skus that have a listings collection.
type CollectionLister interface {
	Collections(ctx context.Context) ([]string, error)
}

// SkuNamer resolves a sku to its human-readable item name.
type SkuNamer interface {
	NameFromSku(ctx context.Context, sku string) (string, error)
}

// ItemCache tracks which items have subscribers.
type ItemCache struct {
	store  CollectionLister
	schema SkuNamer
	maxAge time.Duration

	mu         sync.RWMutex
	byName     map[string]string
	bySku      map[string]string
	lastUpdate time.Time
}

// NewItemCache creates an empty cache backed by the store and schema.
func NewItemCache(store CollectionLister, schema SkuNamer) *ItemCache {
	return &ItemCache{
		store:  store,
		schema: schema,
		maxAge: CacheMaxAge,
		byName: make(map[string]string),
		bySku:  make(map[string]string),
	}
}

// CheckName reports whether an item name is in the tracked set.
func (c *ItemCache) CheckName(ctx context.Context, name string) bool {
	c.refreshIfStale(ctx)

	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.byName[name]
	return ok
}

// CheckSku reports whether a sku is in the tracked set.
func (c *ItemCache) CheckSku(ctx context.Context, sku string) bool {
	c.refreshIfStale(ctx)

	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.bySku[sku]
	return ok
}

// SkuForName returns the sku a tracked name maps to.
func (c *ItemCache) SkuForName(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sku, ok := c.byName[name]
	return sku, ok
}

// AddSku registers a sku with the tracked set, resolving its name through
// the schema. A sku whose name cannot be resolved is tracked by sku only.
func (c *ItemCache) AddSku(ctx context.Context, sku string) {
	name, err := c.schema.NameFromSku(ctx, sku)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		logger.Error("No name for sku %s, tracking by sku only: %v", sku, err)
		c.bySku[sku] = ""
		return
	}
	c.bySku[sku] = name
	c.byName[name] = sku
}

// RemoveSku drops a sku and its name alias from the tracked set.
func (c *ItemCache) RemoveSku(sku string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name, ok := c.bySku[sku]
	if !ok {
		return
	}
	delete(c.bySku, sku)
	if name != "" {
		delete(c.byName, name)
	}
}

// Refresh rebuilds the index from the store's collection list and swaps it
// in whole. Concurrent refreshes are harmless; the last writer wins.
func (c *ItemCache) Refresh(ctx context.Context) error {
	skus, err := c.store.Collections(ctx)
	if err != nil {
		return fmt.Errorf("listing collections query failed: %w", err)
	}

	byName := make(map[string]string, len(skus))
	bySku := make(map[string]string, len(skus))
	for _, sku := range skus {
		name, err := c.schema.NameFromSku(ctx, sku)
		if err != nil {
			logger.Error("No name for cached sku %s: %v", sku, err)
			bySku[sku] = ""
			continue
		}
		byName[name] = sku
		bySku[sku] = name
	}

	c.mu.Lock()
	c.byName = byName
	c.bySku = bySku
	c.lastUpdate = time.Now()
	c.mu.Unlock()

	logger.Info("Item cache refreshed (%d items)", len(bySku))
	return nil
}

// refreshIfStale rebuilds the index when it is empty or expired. The lock
// is never held across the store query.
func (c *ItemCache) refreshIfStale(ctx context.Context) {
	c.mu.RLock()
	stale := len(c.bySku) == 0 || time.Since(c.lastUpdate) > c.maxAge
	c.mu.RUnlock()
	if !stale {
		return
	}

	if err := c.Refresh(ctx); err != nil {
		logger.Error("Failed to refresh item cache: %v", err)
	}
}
