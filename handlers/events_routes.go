// handlers/events_routes.go
package handlers

import (
	"progression-engine/middleware"
	"progression-engine/services"

	"github.com/gofiber/fiber/v2"
)

// SetupEventRoutes exposes the per-user SSE stream. EventSource cannot set
// headers, so this route authenticates through query params against the
// auth service instead of the gateway's X-User-ID header.
func SetupEventRoutes(app *fiber.App, bus *services.EventBus, authClient *services.AuthServiceClient) {
	app.Get("/s/user/events/stream",
		middleware.SSEAuthMiddleware(authClient),
		services.StreamUserEventsSSE(bus),
	)
}
