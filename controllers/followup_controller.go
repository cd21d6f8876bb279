package controller

import (
	"encoding/json"
	"log"
	"time"

	"leadpilot/kv"
	"leadpilot/models"
	"leadpilot/utils"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
)

type FollowUpController struct {
	Store  kv.Store
	Logger *log.Logger
}

func NewFollowUpController(store kv.Store, logger *log.Logger) *FollowUpController {
	return &FollowUpController{
		Store:  store,
		Logger: logger,
	}
}

// Schedule validates a follow-up plan and materializes one store record
// per step. Writes stop at the first failure; the steps written so far
// are returned and are not rolled back.
func (fc *FollowUpController) Schedule(c *fiber.Ctx) error {
	if fc.Store == nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Follow-up store is not configured", nil)
	}

	var input models.SchedulePlanRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if err := checkmail.ValidateFormat(input.Email); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "email must be a valid address", nil)
	}

	now := time.Now()
	scheduled := make([]models.ScheduledFollowUp, 0, len(input.Steps))

	for i, step := range input.Steps {
		scheduledDate := now.AddDate(0, 0, step.DayOffset)
		record := models.FollowUpRecord{
			ID:            models.FollowUpID(input.LeadID, i+1, now),
			LeadID:        input.LeadID,
			CompanyName:   input.CompanyName,
			ContactPerson: input.ContactPerson,
			Email:         input.Email,
			Industry:      input.Industry,
			City:          input.City,
			Website:       input.Website,
			ScheduledDate: scheduledDate,
			SequenceStep:  i + 1,
			TotalSteps:    len(input.Steps),
			Channel:       step.Channel,
			Tone:          step.Tone,
			FocusPoint:    step.FocusPoint,
			Status:        models.StatusPending,
		}

		payload, err := json.Marshal(record)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to encode follow-up record", err)
		}

		if err := fc.Store.Put(c.UserContext(), record.Key(), string(payload), models.ScheduleTTL); err != nil {
			fc.Logger.Printf("Failed to write step %d for lead %s: %v", i+1, input.LeadID, err)
			// Earlier steps stay scheduled; the caller sees the partial
			// list and decides whether to retry or cancel the remainder.
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success":            false,
				"error":              "Failed to schedule follow-up step",
				"leadId":             input.LeadID,
				"scheduledFollowUps": scheduled,
			})
		}

		scheduled = append(scheduled, models.ScheduledFollowUp{
			Step:          i + 1,
			ScheduledDate: scheduledDate.Format(time.RFC3339),
			Channel:       step.Channel,
		})
	}

	fc.Logger.Printf("Scheduled %d follow-ups for lead %s (%s)", len(scheduled), input.LeadID, input.CompanyName)

	return c.JSON(fiber.Map{
		"success":            true,
		"leadId":             input.LeadID,
		"companyName":        input.CompanyName,
		"scheduledFollowUps": scheduled,
	})
}

// Cancel marks every still-pending step of a lead's sequence as
// cancelled. Terminal records are left untouched so processed history
// survives until its expiry.
func (fc *FollowUpController) Cancel(c *fiber.Ctx) error {
	if fc.Store == nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Follow-up store is not configured", nil)
	}

	var input models.CancelPlanRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	ctx := c.UserContext()
	keys, err := kv.ScanAll(ctx, fc.Store, models.LeadKeyPattern(input.LeadID))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to enumerate follow-ups", err)
	}

	cancelled := 0
	for _, key := range keys {
		value, ok, err := fc.Store.Get(ctx, key)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load follow-up record", err)
		}
		if !ok {
			continue
		}

		var record models.FollowUpRecord
		if err := json.Unmarshal([]byte(value), &record); err != nil {
			fc.Logger.Printf("Skipping undecodable record %s: %v", key, err)
			continue
		}
		// The key pattern also matches leads whose ID extends this one
		// past a hyphen; only the requested sequence is cancelled.
		if record.LeadID != input.LeadID {
			continue
		}
		if record.Status != models.StatusPending {
			continue
		}

		record.Status = models.StatusCancelled
		payload, err := json.Marshal(record)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to encode follow-up record", err)
		}
		if err := fc.Store.Put(ctx, key, string(payload), models.ProcessedTTL); err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to cancel follow-up record", err)
		}
		cancelled++
	}

	fc.Logger.Printf("Cancelled %d pending follow-ups for lead %s", cancelled, input.LeadID)

	return c.JSON(fiber.Map{
		"success":   true,
		"leadId":    input.LeadID,
		"cancelled": cancelled,
	})
}
