/**
 * @description
 * Authentication middleware for the edge API.
 * Validates the shared access token carried in the Authorization header.
 * Applied to every edge route including the websocket upgrade; the
 * internal service APIs are network-isolated and skip it.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2: HTTP context
 */

package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// Protected rejects requests whose Authorization header does not carry
// the shared access token.
func Protected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !TokenValid(c.Get("Authorization"), secret) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized."})
		}
		return c.Next()
	}
}

// TokenValid reports whether an Authorization header matches the shared
// token. A server with no token configured rejects everything instead of
// letting an empty header through.
func TokenValid(header, secret string) bool {
	if secret == "" {
		return false
	}
	return header == "Token "+secret
}
