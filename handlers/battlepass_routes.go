// handlers/battlepass_routes.go
package handlers

import (
	"time"

	"progression-engine/middleware"
	"progression-engine/services"

	"github.com/gofiber/fiber/v2"
)

func SetupBattlePassRoutes(app *fiber.App, battlepass *services.BattlePassService, claims *services.ClaimService) {
	// Public: current season and its reward track. No user context needed —
	// the launcher renders this before login.
	app.Get("/battlepass", func(c *fiber.Ctx) error {
		pass, err := battlepass.ActiveSeason(time.Now().UTC())
		if err != nil {
			return respondErr(c, err, "fetch active season")
		}
		return c.JSON(pass)
	})

	securedGroup := app.Group("/s/user", middleware.UserContextMiddleware())

	securedGroup.Get("/battlepass", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		summary, err := battlepass.Summary(userID, time.Now().UTC())
		if err != nil {
			return respondErr(c, err, "fetch battle pass summary")
		}
		return c.JSON(summary)
	})

	securedGroup.Post("/battlepass/rewards/:id/claim", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		rewardID := c.Params("id")

		result, err := claims.ClaimBattlePassReward(userID, rewardID, time.Now().UTC())
		if err != nil {
			return respondErr(c, err, "claim battle pass reward")
		}
		return c.JSON(fiber.Map{
			"message":    "reward claimed",
			"source":     result.Source,
			"source_ref": result.SourceRef,
			"xp_granted": result.XPGranted,
			"payloads":   result.Payloads,
		})
	})

	securedGroup.Post("/battlepass/premium", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		progress, err := battlepass.UpgradeToPremium(userID, time.Now().UTC())
		if err != nil {
			return respondErr(c, err, "upgrade to premium")
		}
		return c.JSON(fiber.Map{
			"message":    "premium track unlocked",
			"is_premium": progress.IsPremium,
			"level":      progress.CurrentLevel,
		})
	})
}
