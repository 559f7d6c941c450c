/**
 * @description
 * Background loop that re-snapshots every tracked item, giving the system
 * its eventual-consistency guarantee: whatever the stream missed, a full
 * pass repairs. Items are visited in shuffled order so no sku is starved
 * by its position, and queued stream updates for an item are purged after
 * its snapshot lands because they are stale by then.
 *
 * @dependencies
 * - internal/logger: Structured logging.
 */

package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/tf2-stack/listings-backend/internal/logger"
	"github.com/tf2-stack/listings-backend/internal/models"
)

const (
	// PassInterval is the sleep between full refresh passes, and the idle
	// sleep when no items are tracked yet.
	PassInterval = 60 * time.Second

	// largeSetSize is the item count at which the per-item pause shrinks.
	largeSetSize  = 1000
	itemPause     = time.Second
	largeSetPause = 500 * time.Millisecond
)

// SnapshotFetcher hydrates one item's listings from the marketplace.
type SnapshotFetcher interface {
	Fetch(ctx context.Context, sku string) ([]models.ListingDoc, error)
}

// QueuePurger drops queued stream updates for an item.
type QueuePurger interface {
	PurgeQueue(ctx context.Context, sku string) error
}

// Refresher periodically re-snapshots all tracked items.
type Refresher struct {
	store     CollectionLister
	fetcher   SnapshotFetcher
	wsManager QueuePurger

	itemPause     time.Duration
	largeSetPause time.Duration
	passPause     time.Duration
}

// NewRefresher creates a refresher over the store's collections.
func NewRefresher(store CollectionLister, fetcher SnapshotFetcher, wsManager QueuePurger) *Refresher {
	return &Refresher{
		store:         store,
		fetcher:       fetcher,
		wsManager:     wsManager,
		itemPause:     itemPause,
		largeSetPause: largeSetPause,
		passPause:     PassInterval,
	}
}

// Run refreshes all tracked items in a loop until ctx is canceled.
func (r *Refresher) Run(ctx context.Context) {
	logger.Info("Listings refresher started")

	for {
		if err := r.runPass(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("Listings refresh pass failed: %v", err)
		}
		if !sleepCtx(ctx, r.passPause) {
			return
		}
	}
}

// runPass snapshots every tracked item once. Individual item failures are
// logged and skipped so the rest of the pass still runs.
func (r *Refresher) runPass(ctx context.Context) error {
	skus, err := r.store.Collections(ctx)
	if err != nil {
		return fmt.Errorf("listing collections query failed: %w", err)
	}
	if len(skus) == 0 {
		logger.Info("No items to refresh yet")
		return nil
	}

	rand.Shuffle(len(skus), func(i, j int) { skus[i], skus[j] = skus[j], skus[i] })

	pause := r.itemPause
	if len(skus) >= largeSetSize {
		pause = r.largeSetPause
	}

	logger.Info("Starting listings update process for %d items", len(skus))

	for _, sku := range skus {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if _, err := r.fetcher.Fetch(ctx, sku); err != nil {
			logger.Error("Failed to refresh listings for %s: %v", sku, err)
		} else if err := r.wsManager.PurgeQueue(ctx, sku); err != nil {
			logger.Error("Failed to purge queued updates for %s: %v", sku, err)
		}

		if !sleepCtx(ctx, pause) {
			return ctx.Err()
		}
	}

	logger.Info("Finished listings update pass for %d items", len(skus))
	return nil
}

// sleepCtx sleeps for d unless ctx is canceled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
