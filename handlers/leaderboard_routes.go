// handlers/leaderboard_routes.go
package handlers

import (
	"strings"

	"progression-engine/middleware"
	"progression-engine/services"

	"github.com/gofiber/fiber/v2"
)

// parseScope turns the ?scope= query into a LeaderboardScope.
// Accepted forms: "global" (default), "region:<code>", "friends".
func parseScope(raw, userID string) (services.LeaderboardScope, error) {
	switch {
	case raw == "" || raw == "global":
		return services.LeaderboardScope{Kind: "global"}, nil
	case strings.HasPrefix(raw, "region:"):
		code := strings.TrimPrefix(raw, "region:")
		if code == "" {
			return services.LeaderboardScope{}, fiber.NewError(fiber.StatusBadRequest, "region scope requires a code, e.g. region:eu")
		}
		return services.LeaderboardScope{Kind: "region", Region: strings.ToLower(code)}, nil
	case raw == "friends":
		if userID == "" {
			return services.LeaderboardScope{}, fiber.NewError(fiber.StatusUnauthorized, "friends scope requires auth context")
		}
		return services.LeaderboardScope{Kind: "friends", UserID: userID}, nil
	}
	return services.LeaderboardScope{}, fiber.NewError(fiber.StatusBadRequest, "unknown scope: "+raw)
}

func SetupLeaderboardRoutes(app *fiber.App, boards *services.LeaderboardService) {
	// User context is optional here: global and region scopes work without
	// it, friends needs the gateway-asserted user id.
	app.Get("/leaderboard", middleware.UserContextMiddleware(), func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)

		scope, err := parseScope(c.Query("scope"), userID)
		if err != nil {
			fe := err.(*fiber.Error)
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		limit := c.QueryInt("limit", 100)
		if limit < 1 || limit > 500 {
			limit = 100
		}

		entries, err := boards.Rank(scope, limit)
		if err != nil {
			return respondErr(c, err, "fetch leaderboard")
		}
		return c.JSON(fiber.Map{
			"scope":   c.Query("scope", "global"),
			"entries": entries,
		})
	})

	securedGroup := app.Group("/s/user", middleware.UserContextMiddleware())

	securedGroup.Get("/leaderboard/rank", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		entry, err := boards.UserRank(userID)
		if err != nil {
			return respondErr(c, err, "fetch user rank")
		}
		return c.JSON(entry)
	})
}
