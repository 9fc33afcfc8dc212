package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/sensor-uplink/internal/store"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "sensor-uplink"

// NewApp returns a Fiber app configured the way the status server runs it.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               ServiceName,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})
}

// RegisterRoutes wires the status handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, tracker *store.StatusTracker) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": ServiceName,
		})
	})

	v1 := app.Group("/api/v1")
	v1.Get("/status", func(c *fiber.Ctx) error {
		return c.JSON(tracker.Snapshot())
	})
}
