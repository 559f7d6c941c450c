package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/tf2-stack/listings-backend/internal/clients"
	"github.com/tf2-stack/listings-backend/internal/models"
	"github.com/tf2-stack/listings-backend/internal/services"
	"github.com/tf2-stack/listings-backend/internal/store"
)

func newEdgeApp(t *testing.T, managerURL string) (*fiber.App, *services.ItemCache, *store.ListingsStore) {
	t.Helper()

	listings := store.NewListingsStore(newTestDB(t))
	namer := &stubNamer{names: map[string]string{
		"5021;6": "Mann Co. Supply Crate Key",
		"378;6":  "Team Captain",
	}}
	cache := services.NewItemCache(listings, namer)
	handler := NewListingsHandler(cache, listings, clients.NewListingsManager(managerURL))

	app := fiber.New()
	app.Get("/listings", handler.GetListings)
	app.Delete("/listings/:sku", handler.DeleteListings)
	return app, cache, listings
}

func TestGetListingsRejectsInvalidSku(t *testing.T) {
	app, _, _ := newEdgeApp(t, "http://localhost:0")

	for _, target := range []string{"/listings", "/listings?sku=notasku", "/listings?sku=5021;99"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Errorf("GET %s status = %d, want %d", target, resp.StatusCode, fiber.StatusBadRequest)
		}
	}
}

func TestGetListingsServesTrackedItemFromStore(t *testing.T) {
	var managerCalls int
	manager := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		managerCalls++
		w.Write([]byte(`[]`))
	}))
	defer manager.Close()

	app, cache, listings := newEdgeApp(t, manager.URL)
	ctx := context.Background()

	for _, d := range []models.ListingDoc{
		listingDoc("440_1", "5021;6", "Mann Co. Supply Crate Key"),
		listingDoc("440_2", "5021;6", "Mann Co. Supply Crate Key"),
	} {
		if err := listings.Upsert(ctx, d); err != nil {
			t.Fatalf("seeding store: %v", err)
		}
	}
	if err := cache.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/listings?sku=5021%3B6", nil), 5000)
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
	if len(docs) != 2 {
		t.Errorf("got %d listings, want 2", len(docs))
	}
	if managerCalls != 0 {
		t.Errorf("tracked item must not trigger a snapshot, got %d manager calls", managerCalls)
	}
}

func TestGetListingsHydratesUnknownItem(t *testing.T) {
	var gotSku string
	manager := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSku = r.URL.Query().Get("item_sku")
		w.Header().Set("Content-Type", "application/json")
		payload, _ := json.Marshal([]models.ListingDoc{listingDoc("111", "378;6", "Team Captain")})
		w.Write(payload)
	}))
	defer manager.Close()

	app, _, _ := newEdgeApp(t, manager.URL)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/listings?sku=378%3B6", nil), 5000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want %d (body %s)", resp.StatusCode, fiber.StatusOK, body)
	}
	if gotSku != "378;6" {
		t.Errorf("manager asked for %q, want %q", gotSku, "378;6")
	}

	var docs []models.ListingDoc
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "111" {
		t.Errorf("unexpected listings: %+v", docs)
	}
}

func TestGetListingsSnapshotFailure(t *testing.T) {
	manager := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Listings not found."}`))
	}))
	defer manager.Close()

	app, _, _ := newEdgeApp(t, manager.URL)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/listings?sku=378%3B6", nil), 5000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusNotFound)
	}
}

func TestGetListingsTrackedButEmpty(t *testing.T) {
	manager := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer manager.Close()

	app, cache, listings := newEdgeApp(t, manager.URL)
	ctx := context.Background()

	if err := listings.Upsert(ctx, listingDoc("440_1", "5021;6", "Mann Co. Supply Crate Key")); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	if err := cache.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if err := listings.DeleteAll(ctx, "5021;6"); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/listings?sku=5021%3B6", nil), 5000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusNotFound)
	}
}

func TestDeleteListings(t *testing.T) {
	app, cache, listings := newEdgeApp(t, "http://localhost:0")
	ctx := context.Background()

	for _, d := range []models.ListingDoc{
		listingDoc("440_1", "5021;6", "Mann Co. Supply Crate Key"),
		listingDoc("440_2", "378;6", "Team Captain"),
	} {
		if err := listings.Upsert(ctx, d); err != nil {
			t.Fatalf("seeding store: %v", err)
		}
	}
	if err := cache.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/listings/5021%3B6", nil), 5000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}

	if docs, _ := listings.Get(ctx, "5021;6"); len(docs) != 0 {
		t.Errorf("deleted item still has %d listings", len(docs))
	}
	if docs, _ := listings.Get(ctx, "378;6"); len(docs) != 1 {
		t.Errorf("other items should keep their listings, got %d", len(docs))
	}
	if cache.CheckSku(ctx, "5021;6") {
		t.Error("deleted item should not be tracked anymore")
	}
}

func TestDeleteListingsRejectsInvalidSku(t *testing.T) {
	app, _, _ := newEdgeApp(t, "http://localhost:0")

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/listings/notasku", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusBadRequest)
	}
}
