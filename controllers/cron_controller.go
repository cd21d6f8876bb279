package controller

import (
	"errors"
	"log"

	"leadpilot/kv"
	"leadpilot/utils"
	"leadpilot/worker"

	"github.com/gofiber/fiber/v2"
)

type CronController struct {
	Worker *worker.FollowUpWorker
	Logger *log.Logger
}

func NewCronController(fw *worker.FollowUpWorker, logger *log.Logger) *CronController {
	return &CronController{
		Worker: fw,
		Logger: logger,
	}
}

// TriggerDaily runs one daily follow-up pass. The caller waits for the
// full pass and receives its summary. Authorization happens in the
// CronAuth middleware before this handler runs.
func (cc *CronController) TriggerDaily(c *fiber.Ctx) error {
	summary, err := cc.Worker.RunOnce(c.UserContext())
	if err != nil {
		switch {
		case errors.Is(err, kv.ErrNotConfigured):
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Follow-up store is not configured", nil)
		case errors.Is(err, worker.ErrRunInProgress):
			return utils.ErrorResponse(c, fiber.StatusConflict, "A daily pass is already running", nil)
		default:
			cc.Logger.Printf("Daily pass failed: %v", err)
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Daily pass failed", err)
		}
	}

	return c.JSON(fiber.Map{
		"success":          true,
		"date":             summary.Date,
		"processed":        summary.Processed,
		"sent":             summary.Sent,
		"errors":           summary.Errors,
		"totalKeysScanned": summary.TotalKeysScanned,
	})
}
