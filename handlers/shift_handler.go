package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/teambition/rrule-go"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"attendance-tracker/models"
	util "attendance-tracker/pkg/utils"
	"attendance-tracker/repository"
)

type ShiftHandler struct {
	shiftRepo *repository.ShiftRepository
	userRepo  *repository.UserRepository
}

func NewShiftHandler(shiftRepo *repository.ShiftRepository, userRepo *repository.UserRepository) *ShiftHandler {
	return &ShiftHandler{shiftRepo: shiftRepo, userRepo: userRepo}
}

// AssignShift creates a single shift assignment, optionally recurring.
func (h *ShiftHandler) AssignShift(c *fiber.Ctx) error {
	claims, ok := callerClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated or corrupted session data"})
	}

	var payload models.ShiftAssignPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body", "details": err.Error()})
	}
	if errors := util.ValidateStruct(payload); errors != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errors})
	}

	userID, err := primitive.ObjectIDFromHex(payload.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	user, err := h.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to find user"})
	}
	if user == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	shift := &models.Shift{
		UserID:         userID,
		AssignedBy:     claims.UserID,
		ShiftType:      payload.ShiftType,
		StartTime:      payload.StartTime,
		EndTime:        payload.EndTime,
		EffectiveDate:  payload.EffectiveDate,
		EndDate:        payload.EndDate,
		RecurrenceRule: payload.RecurrenceRule,
	}

	if err := h.shiftRepo.Create(ctx, shift); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save shift"})
	}

	return c.Status(fiber.StatusCreated).JSON(shift)
}

// AssignWeeklyShifts replaces a user's plan for the given days: off-days
// delete any existing assignment, the rest are upserted.
func (h *ShiftHandler) AssignWeeklyShifts(c *fiber.Ctx) error {
	claims, ok := callerClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated or corrupted session data"})
	}

	var payload models.WeeklyShiftPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body", "details": err.Error()})
	}
	if errors := util.ValidateStruct(payload); errors != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errors})
	}

	userID, err := primitive.ObjectIDFromHex(payload.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	user, err := h.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to find user"})
	}
	if user == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	count := 0
	for _, day := range payload.Shifts {
		if day.IsOff {
			if err := h.shiftRepo.DeleteByUserAndDate(ctx, userID, day.Date); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to clear off-day"})
			}
			continue
		}

		shift := &models.Shift{
			UserID:        userID,
			AssignedBy:    claims.UserID,
			ShiftType:     day.ShiftType,
			StartTime:     day.StartTime,
			EndTime:       day.EndTime,
			EffectiveDate: day.Date,
		}
		if err := h.shiftRepo.UpsertByUserAndDate(ctx, shift); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upsert shift"})
		}
		count++
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Weekly shifts updated", "count": count})
}

// GetMyShifts returns the caller's assignments, newest first. When a
// start_date/end_date window is supplied, recurring assignments are
// expanded into their concrete occurrences inside that window.
func (h *ShiftHandler) GetMyShifts(c *fiber.Ctx) error {
	claims, ok := callerClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated or corrupted session data"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	shifts, err := h.shiftRepo.FindByUserID(ctx, claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch shifts"})
	}

	startDateStr := c.Query("start_date")
	endDateStr := c.Query("end_date")
	if startDateStr == "" || endDateStr == "" {
		return c.Status(fiber.StatusOK).JSON(shifts)
	}

	startDate, err := time.Parse(models.DateLayout, startDateStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid start_date format"})
	}
	endDate, err := time.Parse(models.DateLayout, endDateStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid end_date format"})
	}

	return c.Status(fiber.StatusOK).JSON(expandShifts(shifts, startDate, endDate))
}

// GetTeamShifts returns the shifts assigned by the calling lead.
func (h *ShiftHandler) GetTeamShifts(c *fiber.Ctx) error {
	claims, ok := callerClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated or corrupted session data"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	shifts, err := h.shiftRepo.FindByAssignedBy(ctx, claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch team shifts"})
	}

	return c.Status(fiber.StatusOK).JSON(shifts)
}

// expandShifts materializes recurring assignments into per-day instances
// within [startDate, endDate]. Non-recurring shifts pass through when
// their effective date falls inside the window.
func expandShifts(shifts []models.Shift, startDate, endDate time.Time) []models.Shift {
	expanded := []models.Shift{}

	for _, shift := range shifts {
		if shift.RecurrenceRule == "" {
			shiftDate, err := time.Parse(models.DateLayout, shift.EffectiveDate)
			if err != nil {
				continue
			}
			if !shiftDate.Before(startDate) && !shiftDate.After(endDate) {
				expanded = append(expanded, shift)
			}
			continue
		}

		rOption, err := rrule.StrToROption(shift.RecurrenceRule)
		if err != nil {
			continue
		}
		ruleStart, err := time.Parse(models.DateLayout, shift.EffectiveDate)
		if err != nil {
			continue
		}
		rOption.Dtstart = ruleStart

		rr, err := rrule.NewRRule(*rOption)
		if err != nil {
			continue
		}

		ruleSet := rrule.Set{}
		ruleSet.RRule(rr)

		for _, instance := range ruleSet.Between(startDate, endDate, true) {
			occurrence := shift
			occurrence.EffectiveDate = instance.Format(models.DateLayout)
			expanded = append(expanded, occurrence)
		}
	}

	return expanded
}
