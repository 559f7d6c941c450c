/**
 * @description
 * Edge user handlers.
 * Serves stored marketplace user documents collected from stream events.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - internal/store: Users persistence
 */

package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/tf2-stack/listings-backend/internal/logger"
	"github.com/tf2-stack/listings-backend/internal/store"
)

type UsersHandler struct {
	Users        *store.UsersStore
	SaveUserData bool
}

func NewUsersHandler(users *store.UsersStore, saveUserData bool) *UsersHandler {
	return &UsersHandler{Users: users, SaveUserData: saveUserData}
}

// GetUser returns the stored marketplace profile for one Steam user.
// GET /user?steamid=...
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	steamID := c.Query("steamid")
	if steamID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "steamid is required."})
	}

	if !h.SaveUserData {
		return c.JSON(fiber.Map{"success": false, "message": "User data saving is disabled."})
	}

	doc, err := h.Users.Get(c.Context(), steamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found."})
		}
		logger.Error("Failed to read user %s: %v", steamID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch user."})
	}
	return c.JSON(doc)
}
