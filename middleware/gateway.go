// middleware/gateway.go
package middleware

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// GatewayAuthMiddleware validates the Bearer token from the Gateway. Nothing
// reaches this service except through the gateway, so the check is global.
func GatewayAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("PROGRESSION_SERVICE_TOKEN")
	if expectedToken == "" {
		log.Fatal("❌ PROGRESSION_SERVICE_TOKEN is not set — service cannot authenticate Gateway")
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			log.Printf("🚫 [GATEWAY_AUTH] Missing Authorization header for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "gateway authentication token missing",
			})
		}

		// Parse "Bearer <token>", falling back to the raw value.
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token != expectedToken {
			log.Printf("❌ [GATEWAY_AUTH] Invalid token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid gateway authentication token",
			})
		}

		return c.Next()
	}
}

// InternalOnlyMiddleware additionally requires the internal event-source
// token. XP deltas and quest-progress events come from trusted gameplay
// services, never directly from a client.
func InternalOnlyMiddleware() fiber.Handler {
	internalToken := os.Getenv("INTERNAL_EVENT_TOKEN")
	if internalToken == "" {
		log.Fatal("❌ INTERNAL_EVENT_TOKEN is not set — event ingestion cannot be authenticated")
	}

	return func(c *fiber.Ctx) error {
		if c.Get("X-Internal-Token") != internalToken {
			log.Printf("🚫 [INTERNAL] Rejected non-internal caller on %s", c.Path())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "internal endpoint",
			})
		}
		return c.Next()
	}
}
