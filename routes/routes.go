package routes

import (
	"log"
	"os"

	"leadpilot/config"
	controller "leadpilot/controllers"
	"leadpilot/kv"
	"leadpilot/middleware"
	"leadpilot/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

// version is reported by the health endpoint.
const version = "1.0.0"

func SetupRoutes(app *fiber.App, cfg *config.Config, store kv.Store, fw *worker.FollowUpWorker) {
	followUpController := controller.NewFollowUpController(store, log.New(os.Stdout, "FOLLOWUP: ", log.Ldate|log.Ltime|log.Lshortfile))
	cronController := controller.NewCronController(fw, log.New(os.Stdout, "CRON: ", log.LstdFlags))

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"version": version,
		})
	})

	api := app.Group("/api/v1", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Follow-up sequence routes
	followups := api.Group("/followups")
	followups.Post("/schedule", followUpController.Schedule)
	followups.Post("/cancel", followUpController.Cancel)

	// Recurring trigger routes, guarded by the shared cron secret
	cron := api.Group("/cron", middleware.CronAuth(cfg.CronSecret))
	cron.Post("/daily", cronController.TriggerDaily)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})

	log.Println("API routes initialized successfully")
}
