package handlers

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"attendance-tracker/models"
	"attendance-tracker/pkg/apperr"
	util "attendance-tracker/pkg/utils"
	"attendance-tracker/repository"
	"attendance-tracker/service"
)

type AttendanceHandler struct {
	svc  *service.AttendanceService
	repo repository.AttendanceRepository
}

func NewAttendanceHandler(svc *service.AttendanceService, repo repository.AttendanceRepository) *AttendanceHandler {
	return &AttendanceHandler{svc: svc, repo: repo}
}

func domainErrorStatus(err error) int {
	switch {
	case apperr.IsConflict(err):
		return fiber.StatusConflict
	case apperr.IsState(err):
		return fiber.StatusBadRequest
	case apperr.IsNotFound(err):
		return fiber.StatusNotFound
	case apperr.IsUnauthorized(err):
		return fiber.StatusForbidden
	}
	return fiber.StatusInternalServerError
}

func callerClaims(c *fiber.Ctx) (*models.Claims, bool) {
	claims, ok := c.Locals("user").(*models.Claims)
	return claims, ok
}

// CheckIn godoc
// @Summary Check In
// @Description Opens a new attendance session for the caller, or for another user when the caller is an admin acting on their behalf
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CheckPayload true "Check-in data"
// @Success 201 {object} models.Attendance
// @Failure 409 {object} object{error=string} "Already checked in"
// @Router /attendance/check-in [post]
func (h *AttendanceHandler) CheckIn(c *fiber.Ctx) error {
	claims, ok := callerClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated or corrupted session data"})
	}

	var payload models.CheckPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body", "details": err.Error()})
	}
	if errors := util.ValidateStruct(payload); errors != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errors})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	attendance, err := h.svc.CheckIn(ctx, claims, &payload)
	if err != nil {
		return c.Status(domainErrorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(attendance)
}

// CheckOut godoc
// @Summary Check Out
// @Description Closes the open attendance session and recomputes the day's total hours
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CheckPayload true "Check-out data"
// @Success 200 {object} models.Attendance
// @Failure 400 {object} object{error=string} "Not checked in"
// @Router /attendance/check-out [post]
func (h *AttendanceHandler) CheckOut(c *fiber.Ctx) error {
	claims, ok := callerClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated or corrupted session data"})
	}

	var payload models.CheckPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body", "details": err.Error()})
	}
	if errors := util.ValidateStruct(payload); errors != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errors})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	attendance, err := h.svc.CheckOut(ctx, claims, &payload)
	if err != nil {
		return c.Status(domainErrorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusOK).JSON(attendance)
}

// ApproveSession godoc
// @Summary Approve Session
// @Description Marks a pending session's check-in as approved (idempotent)
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ApproveSessionPayload true "Record and session identifiers"
// @Success 200 {object} models.Attendance
// @Failure 404 {object} object{error=string} "Record or session not found"
// @Router /attendance/approve-session [post]
func (h *AttendanceHandler) ApproveSession(c *fiber.Ctx) error {
	claims, ok := callerClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated or corrupted session data"})
	}

	var payload models.ApproveSessionPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body", "details": err.Error()})
	}
	if errors := util.ValidateStruct(payload); errors != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errors})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	attendance, err := h.svc.ApproveSession(ctx, claims, &payload)
	if err != nil {
		return c.Status(domainErrorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusOK).JSON(attendance)
}

// OverrideDayStatus lets an admin rewrite the descriptive status of a day
// record (Leave, HalfDay, OnBreak...).
func (h *AttendanceHandler) OverrideDayStatus(c *fiber.Ctx) error {
	claims, ok := callerClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated or corrupted session data"})
	}

	var payload models.DayStatusUpdatePayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body", "details": err.Error()})
	}
	if errors := util.ValidateStruct(payload); errors != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errors})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	attendance, err := h.svc.OverrideDayStatus(ctx, claims, c.Params("id"), &payload)
	if err != nil {
		return c.Status(domainErrorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusOK).JSON(attendance)
}

// GetStatus godoc
// @Summary Today's Status
// @Description Returns the caller's day record plus the open/last session view, or null when nothing was recorded today
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{record=models.Attendance,today=models.TodayView}
// @Router /attendance/status [get]
func (h *AttendanceHandler) GetStatus(c *fiber.Ctx) error {
	claims, ok := callerClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated or corrupted session data"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	record, view, err := h.svc.StatusToday(ctx, claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch today's status"})
	}
	if record == nil {
		return c.Status(fiber.StatusOK).JSON(nil)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"record": record, "today": view})
}

// GetHistory returns the caller's day records, newest first. Accepts
// optional start_date/end_date query params; defaults to the trailing 60
// days.
func (h *AttendanceHandler) GetHistory(c *fiber.Ctx) error {
	claims, ok := callerClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated or corrupted session data"})
	}

	return h.respondHistory(c, claims.UserID)
}

// GetUserHistory returns another user's records; route is gated to
// moderator roles.
func (h *AttendanceHandler) GetUserHistory(c *fiber.Ctx) error {
	userID, err := primitive.ObjectIDFromHex(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	return h.respondHistory(c, userID)
}

func (h *AttendanceHandler) respondHistory(c *fiber.Ctx, userID primitive.ObjectID) error {
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")
	for _, d := range []string{startDate, endDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(models.DateLayout, d); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "dates must match the format " + models.DateLayout})
		}
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	history, err := h.svc.History(ctx, userID, startDate, endDate)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch attendance history"})
	}

	return c.Status(fiber.StatusOK).JSON(history)
}

// GetLiveStatus godoc
// @Summary Live Roster
// @Description One presence entry per roster member, including members with no record today
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.PresenceEntry
// @Router /attendance/live-status [get]
func (h *AttendanceHandler) GetLiveStatus(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	entries, err := h.svc.LiveStatus(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to build live status"})
	}

	return c.Status(fiber.StatusOK).JSON(entries)
}

// GenerateQRCode issues a kiosk code valid for the rest of the day and
// returns it as an embeddable PNG.
func (h *AttendanceHandler) GenerateQRCode(c *fiber.Ctx) error {
	uniqueCode := uuid.New().String()
	today := time.Now()
	expiresAt := time.Date(today.Year(), today.Month(), today.Day(), 23, 0, 0, 0, today.Location())

	newQRCode := &models.QRCode{
		ID:        primitive.NewObjectID(),
		Code:      uniqueCode,
		Date:      today.Format(models.DateLayout),
		ExpiresAt: expiresAt,
		CreatedAt: today,
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.CreateQRCode(ctx, newQRCode); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store QR code"})
	}

	png, err := qrcode.Encode(uniqueCode, qrcode.Medium, 256)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to render QR code"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":       "QR code created",
		"qr_code_image": "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		"expires_at":    expiresAt,
	})
}

// ScanQRCode validates a kiosk code and toggles the caller's session:
// check-out when one is open, check-in otherwise.
func (h *AttendanceHandler) ScanQRCode(c *fiber.Ctx) error {
	claims, ok := callerClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated or corrupted session data"})
	}

	var payload models.QRCodeScanPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body", "details": err.Error()})
	}
	if errors := util.ValidateStruct(payload); errors != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errors})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	qrCode, err := h.repo.FindQRCodeByValue(ctx, payload.QRCodeValue)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to look up QR code"})
	}
	if qrCode == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "QR code not found or invalid"})
	}
	if time.Now().After(qrCode.ExpiresAt) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "QR code has expired"})
	}
	if qrCode.Date != time.Now().Format(models.DateLayout) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "QR code is not valid for today"})
	}

	attendance, checkedIn, err := h.svc.ScanToggle(ctx, claims, payload.Location)
	if err != nil {
		return c.Status(domainErrorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	message := "Checked out"
	status := fiber.StatusOK
	if checkedIn {
		message = "Checked in"
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"message": message, "attendance": attendance})
}
