// handlers/progression_routes.go
package handlers

import (
	"strconv"

	"progression-engine/middleware"
	"progression-engine/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProgressionRoutes(app *fiber.App, progression *services.ProgressionService) {
	// 🔐 Secured routes — require user context (userID, roles)
	// The gateway forwards paths like /api/v1/progression/s/user/... -> /s/user/...
	securedGroup := app.Group("/s/user", middleware.UserContextMiddleware())

	securedGroup.Get("/progression", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		prog, err := progression.EnsureProgressionRecord(userID)
		if err != nil {
			return respondErr(c, err, "fetch progression")
		}

		return c.JSON(fiber.Map{
			"id":                  prog.ID,
			"total_xp":            prog.TotalXP,
			"level":               prog.Level,
			"prestige_level":      prog.PrestigeLevel,
			"current_level_xp":    prog.CurrentLevelXP,
			"xp_to_next_level":    prog.XPToNextLevel,
			"equipped_title":      prog.EquippedTitle,
			"equipped_frame":      prog.EquippedFrame,
			"equipped_theme":      prog.EquippedTheme,
			"showcase_badge_ids":  prog.ShowcaseBadgeIDs,
			"matches_played":      prog.MatchesPlayed,
			"matches_won":         prog.MatchesWon,
			"quests_completed":    prog.QuestsCompleted,
			"last_level_up_at":    prog.LastLevelUpAt,
			"last_prestige_up_at": prog.LastPrestigeUpAt,
		})
	})

	securedGroup.Get("/progression/history", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))

		history, total, err := progression.XPHistory(userID, page, size)
		if err != nil {
			return respondErr(c, err, "fetch xp history")
		}
		return c.JSON(fiber.Map{
			"transactions": history,
			"total":        total,
			"page":         page,
			"size":         size,
		})
	})

	securedGroup.Post("/progression/cosmetics", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			Title *string `json:"title"`
			Frame *string `json:"frame"`
			Theme *string `json:"theme"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		prog, err := progression.EquipCosmetics(userID, req.Title, req.Frame, req.Theme)
		if err != nil {
			return respondErr(c, err, "equip cosmetics")
		}
		return c.JSON(fiber.Map{
			"equipped_title": prog.EquippedTitle,
			"equipped_frame": prog.EquippedFrame,
			"equipped_theme": prog.EquippedTheme,
		})
	})

	securedGroup.Post("/progression/showcase", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			BadgeIDs []string `json:"badge_ids"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		prog, err := progression.SetShowcaseBadges(userID, req.BadgeIDs)
		if err != nil {
			return respondErr(c, err, "set showcase badges")
		}
		return c.JSON(fiber.Map{
			"showcase_badge_ids": prog.ShowcaseBadgeIDs,
		})
	})
}
