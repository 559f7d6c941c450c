/**
 * @description
 * HTTP client for the WS-Manager internal API. Used by the
 * Listings-Manager to register items and purge stale queued updates, and
 * by the Listings-Service broadcast loop to drain the changed-item set.
 *
 * @dependencies
 * - github.com/go-resty/resty/v2: HTTP client (10s timeout).
 */

package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tf2-stack/listings-backend/internal/models"
)

// WSManager calls the WS-Manager service.
type WSManager struct {
	http *resty.Client
}

// NewWSManager creates a client for the WS-Manager at baseURL.
func NewWSManager(baseURL string) *WSManager {
	return &WSManager{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second),
	}
}

// AddItem registers a sku with the WS-Manager item cache so stream events
// for it start being persisted.
func (c *WSManager) AddItem(ctx context.Context, sku string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"item_sku": sku}).
		Post("/item")
	if err != nil {
		return fmt.Errorf("ws-manager add item failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("ws-manager add item returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// PurgeQueue drops queued stream updates for a sku. Called after a
// snapshot refresh makes them stale.
func (c *WSManager) PurgeQueue(ctx context.Context, sku string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"item_sku": sku}).
		Delete("/queue")
	if err != nil {
		return fmt.Errorf("ws-manager queue purge failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("ws-manager queue purge returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// ItemUpdates drains the WS-Manager changed-item set.
func (c *WSManager) ItemUpdates(ctx context.Context) ([]models.ItemUpdate, error) {
	var updates []models.ItemUpdate
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&updates).
		Get("/item-updates")
	if err != nil {
		return nil, fmt.Errorf("ws-manager item updates failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("ws-manager item updates returned %d: %s", resp.StatusCode(), resp.String())
	}
	return updates, nil
}
