/**
 * @description
 * Snapshot fetcher for the backpack.tf classifieds API. Pulls the full
 * listing set for one item, transforms it into canonical documents and
 * swaps the item's stored collection.
 *
 * Each attempt picks a credential from the rate-limited pool, waits out
 * its pacing interval and retries (3 attempts) with a fresh credential on
 * failure. Rate-limit responses penalize only the token that hit them;
 * server errors back the whole fetcher off for a minute.
 *
 * @dependencies
 * - github.com/go-resty/resty/v2: HTTP client (10s timeout).
 */

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tf2-stack/listings-backend/internal/logger"
	"github.com/tf2-stack/listings-backend/internal/models"
	"github.com/tf2-stack/listings-backend/internal/store"
)

// ErrSnapshotUnavailable means every fetch attempt failed; the edge maps
// it to a 404.
var ErrSnapshotUnavailable = errors.New("snapshot unavailable")

// ErrInvalidSku means the sku cannot name a real item and no request was
// made.
var ErrInvalidSku = errors.New("invalid sku")

const (
	fetchAttempts      = 3
	serverErrorBackoff = 60 * time.Second
)

// NameResolver turns a canonical sku into the item name the snapshot API
// expects.
type NameResolver interface {
	NameFromSku(ctx context.Context, sku string) (string, error)
}

// Client fetches and persists classifieds snapshots.
type Client struct {
	http    *resty.Client
	limiter *SmartRateLimiter
	store   *store.ListingsStore
	schema  NameResolver
	appID   int
}

// NewClient creates a snapshot client against the given API base URL.
func NewClient(baseURL string, limiter *SmartRateLimiter, listings *store.ListingsStore, schema NameResolver, appID int) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second),
		limiter: limiter,
		store:   listings,
		schema:  schema,
		appID:   appID,
	}
}

// Fetch pulls the current snapshot for a sku, replaces the stored
// collection and returns the new documents.
func (c *Client) Fetch(ctx context.Context, sku string) ([]models.ListingDoc, error) {
	// A sku assembled from a failed name lookup contains the literal
	// "None"; reject before spending a request on it.
	if strings.Contains(sku, "None") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSku, sku)
	}
	if !c.limiter.HasTokens() {
		return nil, errors.New("no snapshot API credentials configured")
	}

	name, err := c.schema.NameFromSku(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSku, sku, err)
	}

	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		docs, err := c.fetchOnce(ctx, sku, name)
		if err == nil {
			if err := c.store.ReplaceAll(ctx, sku, docs); err != nil {
				return nil, err
			}
			return docs, nil
		}

		logger.Error("Snapshot attempt %d/%d for %s failed: %v", attempt, fetchAttempts, sku, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("%w: %s after %d attempts", ErrSnapshotUnavailable, sku, fetchAttempts)
}

func (c *Client) fetchOnce(ctx context.Context, sku, name string) ([]models.ListingDoc, error) {
	token := c.limiter.PickToken()
	if err := c.limiter.WaitForToken(ctx, token); err != nil {
		return nil, err
	}

	var body snapshotResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"sku":   name,
			"appid": strconv.Itoa(c.appID),
			"token": token,
		}).
		SetResult(&body).
		Get("/classifieds/listings/snapshot")
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		c.limiter.OnRateLimited(token)
		return nil, fmt.Errorf("rate limited (429)")
	case resp.StatusCode() >= 500:
		logger.Error("Snapshot API returned %d for %s, backing off for %s", resp.StatusCode(), name, serverErrorBackoff)
		sleepCtx(ctx, serverErrorBackoff)
		return nil, fmt.Errorf("server error %d", resp.StatusCode())
	case resp.StatusCode() != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), resp.String())
	}

	if body.Listings == nil {
		return nil, fmt.Errorf("response has no listings field")
	}
	c.limiter.OnSuccess(token)

	docs := make([]models.ListingDoc, 0, len(body.Listings))
	seen := make(map[string]struct{}, len(body.Listings))
	for _, raw := range body.Listings {
		doc, err := formatListing(raw, c.appID)
		if err != nil {
			logger.Error("Skipping malformed listing for %s: %v", name, err)
			continue
		}
		if doc == nil {
			continue
		}
		doc.Sku = sku
		doc.Name = name

		// First occurrence wins on duplicate ids.
		if _, dup := seen[doc.ID]; dup {
			continue
		}
		seen[doc.ID] = struct{}{}
		docs = append(docs, *doc)
	}
	return docs, nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
