package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/tf2-stack/listings-backend/internal/models"
	"github.com/tf2-stack/listings-backend/internal/store"
)

func newUsersApp(t *testing.T, saveUserData bool) (*fiber.App, *store.UsersStore) {
	t.Helper()

	users := store.NewUsersStore(newTestDB(t))
	handler := NewUsersHandler(users, saveUserData)

	app := fiber.New()
	app.Get("/user", handler.GetUser)
	return app, users
}

func TestGetUser(t *testing.T) {
	app, users := newUsersApp(t, true)

	err := users.Upsert(context.Background(), models.JSONDoc{
		"id":   "76561198000000001",
		"name": "Trader",
	})
	if err != nil {
		t.Fatalf("seeding user: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/user?steamid=76561198000000001", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}

	var doc map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if doc["name"] != "Trader" {
		t.Errorf("doc = %v, want name Trader", doc)
	}
}

func TestGetUserRequiresSteamID(t *testing.T) {
	app, _ := newUsersApp(t, true)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/user", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusBadRequest)
	}
}

func TestGetUserNotFound(t *testing.T) {
	app, _ := newUsersApp(t, true)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/user?steamid=76561198000000009", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusNotFound)
	}
}

func TestGetUserSavingDisabled(t *testing.T) {
	app, users := newUsersApp(t, false)

	err := users.Upsert(context.Background(), models.JSONDoc{"id": "76561198000000001"})
	if err != nil {
		t.Fatalf("seeding user: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/user?steamid=76561198000000001", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["success"] != false {
		t.Errorf("body = %v, want success false", body)
	}
}
