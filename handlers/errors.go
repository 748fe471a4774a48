// handlers/errors.go
package handlers

import (
	"errors"
	"log"

	"progression-engine/services"

	"github.com/gofiber/fiber/v2"
)

// respondErr maps service failures onto HTTP statuses. Domain sentinels get
// a precise status; anything else (storage, network) is logged server-side
// and collapsed into a generic 503 so internals never leak to clients.
func respondErr(c *fiber.Ctx, err error, op string) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, services.ErrInvalidDelta):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid xp amount"})
	case errors.Is(err, services.ErrNotEligible):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not eligible"})
	case errors.Is(err, services.ErrAlreadyClaimed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already claimed"})
	case errors.Is(err, services.ErrExpired):
		return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": "expired"})
	case errors.Is(err, services.ErrUnauthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthenticated"})
	}
	log.Printf("❌ %s failed: %v", op, err)
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "service unavailable"})
}
