// handlers/admin_routes.go
package handlers

import (
	"fmt"
	"time"

	"progression-engine/middleware"
	"progression-engine/models"
	"progression-engine/services"
	"progression-engine/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func SetupAdminRoutes(app *fiber.App, catalog *services.CatalogService, progression *services.ProgressionService, quests *services.QuestCycleService, boards *services.LeaderboardService) {
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	// ---- Quest catalog ----

	adminGroup.Post("/quests", func(c *fiber.Ctx) error {
		var in services.CreateQuestInput
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		def, err := catalog.CreateQuest(in)
		if err != nil {
			return respondErr(c, err, "create quest definition")
		}
		return c.Status(fiber.StatusCreated).JSON(def)
	})

	adminGroup.Get("/quests/:slug", func(c *fiber.Ctx) error {
		def, err := catalog.QuestBySlug(c.Params("slug"))
		if err != nil {
			return respondErr(c, err, "fetch quest definition")
		}
		return c.JSON(def)
	})

	adminGroup.Delete("/quests/:slug", func(c *fiber.Ctx) error {
		if err := catalog.RetireQuest(c.Params("slug")); err != nil {
			return respondErr(c, err, "retire quest definition")
		}
		return c.JSON(fiber.Map{"message": "quest retired"})
	})

	// Push a limited-time quest directly onto one player's board.
	adminGroup.Post("/quests/:slug/assign", func(c *fiber.Ctx) error {
		type Req struct {
			UserID    string    `json:"user_id"`
			ExpiresAt time.Time `json:"expires_at"`
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
		if req.ExpiresAt.IsZero() {
			req.ExpiresAt = time.Now().UTC().Add(72 * time.Hour)
		}

		uq, err := quests.AssignSpecial(req.UserID, c.Params("slug"), req.ExpiresAt, time.Now().UTC())
		if err != nil {
			return respondErr(c, err, "assign special quest")
		}
		return c.Status(fiber.StatusCreated).JSON(uq)
	})

	// ---- Badge catalog ----

	adminGroup.Post("/badges", func(c *fiber.Ctx) error {
		var in services.CreateBadgeInput
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		def, err := catalog.CreateBadge(in)
		if err != nil {
			return respondErr(c, err, "create badge definition")
		}
		return c.Status(fiber.StatusCreated).JSON(def)
	})

	adminGroup.Post("/badges/:slug/icon", func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("icon")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "icon file is required",
				"cause": err.Error(),
			})
		}

		key := fmt.Sprintf("badges/%s/%s", c.Params("slug"), uuid.NewString())
		url, err := utils.UploadFileToR2(fileHeader, key)
		if err != nil {
			return respondErr(c, err, "upload badge icon")
		}
		if err := catalog.SetBadgeIcon(c.Params("slug"), url); err != nil {
			return respondErr(c, err, "set badge icon")
		}
		return c.JSON(fiber.Map{"icon_url": url})
	})

	// ---- Seasons ----

	adminGroup.Post("/seasons", func(c *fiber.Ctx) error {
		var in services.CreateSeasonInput
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		pass, err := catalog.CreateSeason(in)
		if err != nil {
			return respondErr(c, err, "create season")
		}
		return c.Status(fiber.StatusCreated).JSON(pass)
	})

	adminGroup.Post("/seasons/rewards/:id/art", func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("art")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "art file is required",
				"cause": err.Error(),
			})
		}

		key := fmt.Sprintf("battlepass/rewards/%s/%s", c.Params("id"), uuid.NewString())
		url, err := utils.UploadFileToR2(fileHeader, key)
		if err != nil {
			return respondErr(c, err, "upload reward art")
		}
		if err := catalog.SetRewardArt(c.Params("id"), url); err != nil {
			return respondErr(c, err, "set reward art")
		}
		return c.JSON(fiber.Map{"art_url": url})
	})

	// ---- Players ----

	adminGroup.Post("/xp/grant", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id"`
			XP     int64  `json:"xp"`
			Reason string `json:"reason"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.Reason == "" {
			req.Reason = "admin:grant"
		}

		prog, err := progression.ApplyXPDelta(req.UserID, req.XP, req.Reason)
		if err != nil {
			return respondErr(c, err, "grant xp")
		}
		return c.JSON(fiber.Map{
			"message":  "XP granted successfully",
			"user_id":  req.UserID,
			"total_xp": prog.TotalXP,
			"level":    prog.Level,
		})
	})

	adminGroup.Get("/players/search", func(c *fiber.Ctx) error {
		term := utils.NormalizeSearchTerm(c.Query("q"))
		if term == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "q is required"})
		}

		var profiles []models.ProfileMirror
		if err := progression.DB.
			Where("LOWER(username) LIKE ?", "%"+term+"%").
			Limit(25).
			Find(&profiles).Error; err != nil {
			return respondErr(c, err, "search players")
		}
		return c.JSON(profiles)
	})

	adminGroup.Post("/leaderboard/refresh", func(c *fiber.Ctx) error {
		if err := boards.RefreshSnapshot(); err != nil {
			return respondErr(c, err, "refresh leaderboard snapshot")
		}
		return c.JSON(fiber.Map{"message": "snapshot refreshed"})
	})
}
