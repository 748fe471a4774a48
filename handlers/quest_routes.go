// handlers/quest_routes.go
package handlers

import (
	"time"

	"progression-engine/middleware"
	"progression-engine/services"

	"github.com/gofiber/fiber/v2"
)

func SetupQuestRoutes(app *fiber.App, quests *services.QuestCycleService, claims *services.ClaimService) {
	securedGroup := app.Group("/s/user", middleware.UserContextMiddleware())

	securedGroup.Get("/quests", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		set, err := quests.ActiveQuests(userID, time.Now().UTC())
		if err != nil {
			return respondErr(c, err, "fetch active quests")
		}
		return c.JSON(set)
	})

	securedGroup.Post("/quests/:id/claim", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		userQuestID := c.Params("id")

		result, err := claims.ClaimQuest(userID, userQuestID, time.Now().UTC())
		if err != nil {
			return respondErr(c, err, "claim quest")
		}
		return c.JSON(fiber.Map{
			"message":    "reward claimed",
			"source":     result.Source,
			"source_ref": result.SourceRef,
			"xp_granted": result.XPGranted,
			"payloads":   result.Payloads,
		})
	})

	securedGroup.Get("/grants", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		limit := c.QueryInt("limit", 50)

		grants, err := claims.Grants(userID, limit)
		if err != nil {
			return respondErr(c, err, "fetch reward grants")
		}
		return c.JSON(grants)
	})
}
