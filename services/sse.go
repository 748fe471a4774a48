package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

// StreamUserEventsSSE streams the authenticated user's domain events
// (level-ups, quest completions, reward grants, badge unlocks) over SSE.
// The stream is display plumbing only: every state change it carries is
// committed before the event is published, so a dropped connection costs a
// refresh, never correctness.
func StreamUserEventsSSE(bus *EventBus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		// SSE headers
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no") // nginx

		events, cancel := bus.Subscribe(userID)
		ctx := c.Context()

		// Use fasthttp stream writer (THIS replaces Flush)
		ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
			defer cancel()

			keepalive := time.NewTicker(15 * time.Second)
			defer keepalive.Stop()

			// Initial keepalive (comment event)
			w.WriteString(":\n\n")
			if err := w.Flush(); err != nil {
				return
			}

			for {
				select {
				case ev, ok := <-events:
					if !ok {
						return
					}
					payload, err := json.Marshal(ev)
					if err != nil {
						log.Printf("SSE marshal error for user %s: %v", userID, err)
						continue
					}
					fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, payload)
					if err := w.Flush(); err != nil {
						// Client disconnected
						return
					}

				case <-keepalive.C:
					w.WriteString(":\n\n")
					if err := w.Flush(); err != nil {
						return
					}

				case <-ctx.Done():
					// Client closed connection
					return
				}
			}
		})

		return nil
	}
}
