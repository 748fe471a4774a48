// handlers/badge_routes.go
package handlers

import (
	"progression-engine/middleware"
	"progression-engine/services"

	"github.com/gofiber/fiber/v2"
)

func SetupBadgeRoutes(app *fiber.App, badges *services.BadgeService) {
	// Public catalog. Secret badges are withheld; with user context the
	// secured variant below reveals the ones the user has earned.
	app.Get("/badges/catalog", func(c *fiber.Ctx) error {
		catalog, err := badges.Catalog("")
		if err != nil {
			return respondErr(c, err, "fetch badge catalog")
		}
		return c.JSON(catalog)
	})

	securedGroup := app.Group("/s/user", middleware.UserContextMiddleware())

	securedGroup.Get("/badges/catalog", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		catalog, err := badges.Catalog(userID)
		if err != nil {
			return respondErr(c, err, "fetch badge catalog")
		}
		return c.JSON(catalog)
	})

	securedGroup.Get("/badges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		earned, err := badges.UserBadges(userID)
		if err != nil {
			return respondErr(c, err, "fetch user badges")
		}
		return c.JSON(earned)
	})

	securedGroup.Get("/badges/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		progress, err := badges.ProgressToward(userID)
		if err != nil {
			return respondErr(c, err, "fetch badge progress")
		}
		return c.JSON(progress)
	})
}
