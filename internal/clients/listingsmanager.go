/**
 * @description
 * HTTP client for the Listings-Manager internal API. The edge service
 * uses it to request an on-demand snapshot for items that are not in the
 * tracked set yet.
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

// ListingsManager calls the Listings-Manager service.
type ListingsManager struct {
	http *resty.Client
}

// NewListingsManager creates a client for the Listings-Manager at baseURL.
func NewListingsManager(baseURL string) *ListingsManager {
	return &ListingsManager{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second),
	}
}

// GetListings triggers a snapshot fetch for a sku and returns the stored
// listings.
func (c *ListingsManager) GetListings(ctx context.Context, sku string) ([]models.ListingDoc, error) {
	var docs []models.ListingDoc
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("item_sku", sku).
		SetResult(&docs).
		Get("/listings")
	if err != nil {
		return nil, fmt.Errorf("listings-manager request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("listings-manager returned %d: %s", resp.StatusCode(), resp.String())
	}
	return docs, nil
}
