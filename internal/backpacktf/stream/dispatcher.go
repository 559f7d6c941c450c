/**
 * @description
 * Update dispatcher: drains the stream queue in batches, transforms events
 * into canonical listing documents and persists them. One malformed or
 * failing message never aborts its batch; errors are logged and the loop
 * moves on.
 *
 * Only events for registered items are persisted. The stream delivers the
 * whole marketplace firehose, so unknown item names are skipped by design.
 *
 * @dependencies
 * - github.com/goccy/go-json: hot-path event decoding.
 */

package stream

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tf2-stack/listings-backend/internal/logger"
	"github.com/tf2-stack/listings-backend/internal/models"
	"github.com/tf2-stack/listings-backend/internal/store"
	"github.com/tf2-stack/listings-backend/internal/tf2"
)

const (
	// DispatchBatchSize is the maximum number of messages processed per
	// wake. The ingestor's adaptive sleep is derived from it.
	DispatchBatchSize = 2000

	// DispatchInterval is how often the dispatcher polls the queue.
	DispatchInterval = 1 * time.Second

	// EventDelete removes a single listing; everything else upserts.
	EventDelete = "delete"
)

// ItemIndex is the view of the item cache the dispatcher needs: membership
// checks plus cached name->sku lookups.
type ItemIndex interface {
	CheckName(ctx context.Context, name string) bool
	SkuForName(name string) (string, bool)
}

// SkuResolver resolves an item name to its canonical sku when the cache
// has no entry.
type SkuResolver interface {
	SkuFromName(ctx context.Context, name string) (string, error)
}

// Dispatcher consumes the update queue and writes listing documents.
type Dispatcher struct {
	Queue     *Queue
	Updates   *UpdateSet
	Listings  *store.ListingsStore
	Users     *store.UsersStore
	Cache     ItemIndex
	Schema    SkuResolver
	AppID     int
	SaveUsers bool
}

type event struct {
	Event   string       `json:"event"`
	Payload eventPayload `json:"payload"`
}

type eventPayload struct {
	ID                   string                 `json:"id"`
	SteamID              string                 `json:"steamid"`
	Intent               string                 `json:"intent"`
	Currencies           map[string]float64     `json:"currencies"`
	ListedAt             int64                  `json:"listedAt"`
	BumpedAt             int64                  `json:"bumpedAt"`
	Details              string                 `json:"details"`
	BuyoutOnly           bool                   `json:"buyoutOnly"`
	TradeOffersPreferred bool                   `json:"tradeOffersPreferred"`
	UserAgent            map[string]interface{} `json:"userAgent"`
	User                 models.JSONDoc         `json:"user"`
	Item                 *eventItem             `json:"item"`
}

type eventItem struct {
	Name   string `json:"name"`
	Spells []struct {
		Name string `json:"name"`
	} `json:"spells"`
	Paint        *models.NamedAttribute `json:"paint"`
	StrangeParts []struct {
		KillEater models.NamedAttribute `json:"killEater"`
	} `json:"strangeParts"`
	Killstreaker *models.NamedAttribute `json:"killstreaker"`
	Sheen        *models.NamedAttribute `json:"sheen"`
}

// Run polls the queue until ctx is canceled. A batch in flight always runs
// to completion; shutdown takes effect between drains.
func (d *Dispatcher) Run(ctx context.Context) {
	logger.Info("Update dispatcher started")
	ticker := time.NewTicker(DispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.ProcessBatch()
		}
	}
}

// ProcessBatch drains up to DispatchBatchSize messages and processes them
// in FIFO order.
func (d *Dispatcher) ProcessBatch() {
	batch := d.Queue.Drain(DispatchBatchSize)
	if len(batch) == 0 {
		return
	}
	logger.Info("Processing %d messages, %d left in queue", len(batch), d.Queue.Len())

	ctx := context.Background()
	start := time.Now()
	for _, raw := range batch {
		if err := d.processMessage(ctx, raw); err != nil {
			logger.Error("Failed to process message: %v", err)
		}
	}

	elapsed := time.Since(start).Seconds()
	logger.Info("Processed %d messages in %.2fs (avg: %.4fs/message)", len(batch), elapsed, elapsed/float64(len(batch)))
}

func (d *Dispatcher) processMessage(ctx context.Context, raw json.RawMessage) error {
	var msg event
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}

	item := msg.Payload.Item
	if item == nil || item.Name == "" {
		return nil
	}
	if !d.Cache.CheckName(ctx, item.Name) {
		return nil
	}

	sku, ok := d.Cache.SkuForName(item.Name)
	if !ok {
		var err error
		if sku, err = d.Schema.SkuFromName(ctx, item.Name); err != nil {
			return fmt.Errorf("failed to resolve sku for %q: %w", item.Name, err)
		}
	}

	// Listings priced in real currency are not tracked.
	if _, usd := msg.Payload.Currencies["usd"]; usd {
		return nil
	}

	listingID := msg.Payload.ID
	if msg.Payload.Intent != "sell" {
		listingID = fmt.Sprintf("buy_%d_%s", d.AppID, msg.Payload.SteamID)
	}

	if msg.Event == EventDelete {
		if err := d.Listings.Delete(ctx, sku, listingID); err != nil {
			return err
		}
		logger.Info("Deleted listing (%s) for %s", listingID, item.Name)
		return nil
	}

	doc := models.ListingDoc{
		ID:                   listingID,
		Sku:                  sku,
		Name:                 item.Name,
		Intent:               msg.Payload.Intent,
		SteamID:              msg.Payload.SteamID,
		Currencies:           msg.Payload.Currencies,
		ListedAt:             msg.Payload.ListedAt,
		BumpAt:               msg.Payload.BumpedAt,
		Details:              msg.Payload.Details,
		BuyoutOnly:           msg.Payload.BuyoutOnly,
		TradeOffersPreferred: msg.Payload.TradeOffersPreferred,
		UserAgent:            msg.Payload.UserAgent,
	}
	applyItemAttributes(&doc, item)

	if err := d.Listings.Upsert(ctx, doc); err != nil {
		return err
	}
	d.Updates.Add(sku, item.Name)
	logger.Info("Updated listing (%s) for %s", listingID, item.Name)

	if d.SaveUsers && msg.Payload.User != nil {
		if err := d.Users.Upsert(ctx, msg.Payload.User); err != nil {
			logger.Error("Failed to save user for listing %s: %v", listingID, err)
		}
	}
	return nil
}

// applyItemAttributes copies the pre-named attributes from the stream item
// onto the document. Spells arrive as bare names and are resolved back to
// their defindex/value pair.
func applyItemAttributes(doc *models.ListingDoc, item *eventItem) {
	for _, spell := range item.Spells {
		defindex, value, ok := tf2.SpellByName(spell.Name)
		if !ok {
			continue
		}
		doc.Spells = append(doc.Spells, models.Spell{Defindex: defindex, ID: value, Name: spell.Name})
	}

	doc.Paint = item.Paint
	doc.Killstreaker = item.Killstreaker
	doc.Sheen = item.Sheen
	for _, part := range item.StrangeParts {
		doc.StrangeParts = append(doc.StrangeParts, part.KillEater)
	}
}
