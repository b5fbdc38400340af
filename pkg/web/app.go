package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// NewApp builds the fiber application with all engine routes mounted.
func NewApp(handlers *APIHandlers) *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Mordomo API")
	})

	app.Get("/health", handlers.HealthCheck)

	owners := app.Group("/owners/:ownerId")
	owners.Get("/rules", handlers.GetRules)
	owners.Post("/rules", handlers.CreateRule)
	owners.Post("/events/email", handlers.ProcessEmailEvent)
	owners.Get("/executions", handlers.GetExecutionLogs)

	r := app.Group("/rules")
	r.Get("/:id", handlers.GetRule)
	r.Patch("/:id", handlers.UpdateRule)
	r.Delete("/:id", handlers.DeleteRule)
	r.Post("/:id/toggle", handlers.ToggleRule)
	r.Post("/:id/execute", handlers.ExecuteRule)
	r.Get("/:id/executions", handlers.GetExecutionLogsForRule)

	return app
}
