// handlers/internal_routes.go
package handlers

import (
	"log"
	"time"

	"progression-engine/middleware"
	"progression-engine/services"

	"github.com/gofiber/fiber/v2"
)

// SetupInternalRoutes wires the service-to-service surface. Match and social
// services post here after authoritative outcomes; these routes are never
// reachable through the public gateway.
func SetupInternalRoutes(app *fiber.App, progression *services.ProgressionService, quests *services.QuestCycleService, battlepass *services.BattlePassService) {
	internalGroup := app.Group("/internal", middleware.InternalOnlyMiddleware())

	internalGroup.Post("/xp", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id"`
			Amount int64  `json:"amount"`
			Source string `json:"source"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.UserID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
		}

		prog, err := progression.ApplyXPDelta(req.UserID, req.Amount, req.Source)
		if err != nil {
			return respondErr(c, err, "apply xp delta")
		}

		// Season XP tracks lifetime XP one-for-one while a season is live.
		// A miss here (no active season) is not an error for the caller.
		if _, err := battlepass.AddSeasonXP(req.UserID, req.Amount, time.Now().UTC()); err != nil {
			log.Printf("⚠️ season XP for %s not applied: %v", req.UserID, err)
		}

		return c.JSON(fiber.Map{
			"total_xp":         prog.TotalXP,
			"level":            prog.Level,
			"prestige_level":   prog.PrestigeLevel,
			"current_level_xp": prog.CurrentLevelXP,
			"xp_to_next_level": prog.XPToNextLevel,
		})
	})

	internalGroup.Post("/quest-progress", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id"`
			Metric string `json:"metric"`
			Amount int64  `json:"amount"`
			GameID string `json:"game_id,omitempty"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.UserID == "" || req.Metric == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id and metric are required"})
		}
		if req.Amount <= 0 {
			req.Amount = 1
		}

		if err := progression.RecordStat(req.UserID, req.Metric, req.Amount); err != nil {
			return respondErr(c, err, "record stat")
		}
		if err := quests.RecordProgress(req.UserID, req.Metric, req.Amount, req.GameID, time.Now().UTC()); err != nil {
			return respondErr(c, err, "record quest progress")
		}

		return c.JSON(fiber.Map{"message": "event recorded"})
	})
}
