package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/tf2-stack/listings-backend/internal/backpacktf/snapshot"
	"github.com/tf2-stack/listings-backend/internal/clients"
	"github.com/tf2-stack/listings-backend/internal/models"
	"github.com/tf2-stack/listings-backend/internal/store"
)

const syncSnapshotBody = `{
	"listings": [
		{
			"steamid": "76561198000000001",
			"intent": "sell",
			"appid": 440,
			"currencies": {"metal": 55.11},
			"bump": 1700000100,
			"timestamp": 1700000000,
			"item": {"id": 111, "name": "Mann Co. Supply Crate Key"}
		}
	]
}`

func newSyncApp(t *testing.T, marketURL, wsManagerURL string) (*fiber.App, *store.ListingsStore) {
	t.Helper()

	listings := store.NewListingsStore(newTestDB(t))
	limiter := snapshot.NewSmartRateLimiter([]string{"token-aaaa"})
	resolver := &stubNamer{names: map[string]string{"5021;6": "Mann Co. Supply Crate Key"}}
	fetcher := snapshot.NewClient(marketURL, limiter, listings, resolver, 440)
	handler := NewSnapshotsHandler(fetcher, clients.NewWSManager(wsManagerURL))

	app := fiber.New()
	app.Get("/listings", handler.GetListings)
	return app, listings
}

func newWSManagerStub(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()

	var registered []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding ws-manager body: %v", err)
		}
		registered = append(registered, body["item_sku"])
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	}))
	return server, &registered
}

func TestSyncGetListings(t *testing.T) {
	market := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(syncSnapshotBody))
	}))
	defer market.Close()

	wsManager, registered := newWSManagerStub(t)
	defer wsManager.Close()

	app, listings := newSyncApp(t, market.URL, wsManager.URL)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/listings?item_sku=5021%3B6", nil), 15000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}

	var docs []models.ListingDoc
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "111" || docs[0].Sku != "5021;6" {
		t.Errorf("unexpected listings: %+v", docs)
	}

	if len(*registered) != 1 || (*registered)[0] != "5021;6" {
		t.Errorf("ws-manager registrations = %v, want [5021;6]", *registered)
	}

	stored, err := listings.Get(context.Background(), "5021;6")
	if err != nil {
		t.Fatalf("reading store: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("stored %d listings, want 1", len(stored))
	}
}

func TestSyncGetListingsRequiresSku(t *testing.T) {
	app, _ := newSyncApp(t, "http://localhost:0", "http://localhost:0")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/listings", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusBadRequest)
	}
}

func TestSyncGetListingsInvalidSku(t *testing.T) {
	var marketCalls int
	market := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		marketCalls++
	}))
	defer market.Close()

	app, _ := newSyncApp(t, market.URL, "http://localhost:0")

	// The resolver does not know this sku, so no request may be issued.
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/listings?item_sku=9999%3B6", nil), 5000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusBadRequest)
	}
	if marketCalls != 0 {
		t.Errorf("market API called %d times for an invalid sku, want 0", marketCalls)
	}
}

func TestSyncGetListingsUnavailable(t *testing.T) {
	// A response with no listings field fails every attempt.
	market := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer market.Close()

	wsManager, registered := newWSManagerStub(t)
	defer wsManager.Close()

	app, _ := newSyncApp(t, market.URL, wsManager.URL)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/listings?item_sku=5021%3B6", nil), 15000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusNotFound)
	}
	if len(*registered) != 0 {
		t.Errorf("failed snapshot must not register the item, got %v", *registered)
	}
}

func TestSyncGetListingsEmptySnapshot(t *testing.T) {
	market := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"listings":[]}`))
	}))
	defer market.Close()

	wsManager, registered := newWSManagerStub(t)
	defer wsManager.Close()

	app, _ := newSyncApp(t, market.URL, wsManager.URL)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/listings?item_sku=5021%3B6", nil), 15000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusNotFound)
	}
	if len(*registered) != 0 {
		t.Errorf("empty snapshot must not register the item, got %v", *registered)
	}
}
