package service

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"attendance-tracker/models"
	"attendance-tracker/pkg/apperr"
	"attendance-tracker/repository"
)

// UserDirectory is the slice of the identity store the attendance core
// needs: target resolution for on-behalf-of actions and the roster for
// the live presence view.
type UserDirectory interface {
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetRoster(ctx context.Context) ([]models.User, error)
}

// AttendanceService is the session state machine. Every mutation takes a
// per-(user, day) mutex around its read-modify-write; the repository's
// conditional updates independently guarantee the single-open-session
// invariant, so the mutex only has to keep approval ordinals and total
// recomputation consistent.
type AttendanceService struct {
	repo  repository.AttendanceRepository
	users UserDirectory
	loc   *time.Location
	now   func() time.Time

	locks sync.Map
}

func NewAttendanceService(repo repository.AttendanceRepository, users UserDirectory, loc *time.Location) *AttendanceService {
	if loc == nil {
		loc = time.Local
	}
	return &AttendanceService{
		repo:  repo,
		users: users,
		loc:   loc,
		now:   time.Now,
	}
}

func (s *AttendanceService) lock(userID primitive.ObjectID, date string) func() {
	v, _ := s.locks.LoadOrStore(userID.Hex()+"|"+date, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// resolveTarget returns the user the action applies to. Acting on another
// user requires Admin or SuperAdmin privileges.
func (s *AttendanceService) resolveTarget(ctx context.Context, actor *models.Claims, targetID string) (primitive.ObjectID, error) {
	if targetID == "" || targetID == actor.UserID.Hex() {
		return actor.UserID, nil
	}
	if !actor.IsPrivileged() {
		return primitive.NilObjectID, apperr.Unauthorized("only admins may act on behalf of another user")
	}
	id, err := primitive.ObjectIDFromHex(targetID)
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound("invalid target user id")
	}
	user, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if user == nil {
		return primitive.NilObjectID, apperr.NotFound("target user not found")
	}
	return id, nil
}

// resolveTime honors a manual event time only for privileged actors;
// everyone else gets the current time.
func (s *AttendanceService) resolveTime(actor *models.Claims, manualTime string) (time.Time, error) {
	if manualTime == "" || !actor.IsPrivileged() {
		return s.now(), nil
	}
	t, err := time.Parse(time.RFC3339, manualTime)
	if err != nil {
		return time.Time{}, apperr.State("invalid manual_time, expected RFC 3339")
	}
	return t, nil
}

// dateOf buckets an event time into its calendar day. Backdated admin
// events land on the day they describe, not on the day of the call.
func (s *AttendanceService) dateOf(t time.Time) string {
	return t.In(s.loc).Format(models.DateLayout)
}

// CheckIn opens a new session on the target user's day record. The first
// session of a day and any admin-initiated session start Approved; later
// self-initiated sessions start Pending.
func (s *AttendanceService) CheckIn(ctx context.Context, actor *models.Claims, p *models.CheckPayload) (*models.Attendance, error) {
	target, err := s.resolveTarget(ctx, actor, p.UserID)
	if err != nil {
		return nil, err
	}
	eff, err := s.resolveTime(actor, p.ManualTime)
	if err != nil {
		return nil, err
	}

	date := s.dateOf(eff)
	unlock := s.lock(target, date)
	defer unlock()

	return s.checkInLocked(ctx, target, actor.IsPrivileged(), eff, date, p.Location, p.Reason)
}

func (s *AttendanceService) checkInLocked(ctx context.Context, target primitive.ObjectID, privileged bool, eff time.Time, date string, location *models.GeoLocation, reason string) (*models.Attendance, error) {
	record, err := s.repo.FindByUserAndDate(ctx, target, date)
	if err != nil {
		return nil, err
	}
	if record == nil {
		if record, err = s.repo.EnsureDayRecord(ctx, target, date); err != nil {
			return nil, err
		}
	}
	if record.OpenSession() != nil {
		return nil, apperr.Conflict("already checked in, please check out first")
	}

	approval := models.ApprovalApproved
	if len(record.Sessions) > 0 && !privileged {
		approval = models.ApprovalPending
	}

	session := models.Session{
		ID: primitive.NewObjectID(),
		CheckIn: models.CheckEvent{
			Time:           eff,
			Location:       location,
			Reason:         reason,
			ApprovalStatus: approval,
		},
	}

	updated, err := s.repo.AppendSession(ctx, target, date, session)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// Lost a race with a concurrent writer; the store refused the push.
		return nil, apperr.Conflict("already checked in, please check out first")
	}
	return updated, nil
}

// CheckOut closes the open session and persists the recomputed
// closed-session total. The persisted total never includes running time.
func (s *AttendanceService) CheckOut(ctx context.Context, actor *models.Claims, p *models.CheckPayload) (*models.Attendance, error) {
	target, err := s.resolveTarget(ctx, actor, p.UserID)
	if err != nil {
		return nil, err
	}
	eff, err := s.resolveTime(actor, p.ManualTime)
	if err != nil {
		return nil, err
	}

	date := s.dateOf(eff)
	unlock := s.lock(target, date)
	defer unlock()

	return s.checkOutLocked(ctx, target, eff, date, p.Location, p.Reason)
}

func (s *AttendanceService) checkOutLocked(ctx context.Context, target primitive.ObjectID, eff time.Time, date string, location *models.GeoLocation, reason string) (*models.Attendance, error) {
	record, err := s.repo.FindByUserAndDate(ctx, target, date)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperr.State("no attendance record found for the day")
	}
	open := record.OpenSession()
	if open == nil {
		return nil, apperr.State("not checked in or already checked out")
	}

	// Closed-session total once the open session ends at eff. Negative
	// spans are clamped inside Elapsed.
	total := record.TotalWorked(eff, false) + open.Elapsed(eff)

	checkOut := models.CheckEvent{
		Time:     eff,
		Location: location,
		Reason:   reason,
	}

	updated, err := s.repo.CloseOpenSession(ctx, target, date, checkOut, total.Hours())
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.State("not checked in or already checked out")
	}
	return updated, nil
}

// ApproveSession marks a session's check-in Approved. Approving an
// already approved session is a no-op success.
func (s *AttendanceService) ApproveSession(ctx context.Context, approver *models.Claims, p *models.ApproveSessionPayload) (*models.Attendance, error) {
	if !approver.CanModerate() {
		return nil, apperr.Unauthorized("approving sessions requires TeamLead, Admin or SuperAdmin role")
	}

	attendanceID, err := primitive.ObjectIDFromHex(p.AttendanceID)
	if err != nil {
		return nil, apperr.NotFound("invalid attendance id")
	}
	sessionID, err := primitive.ObjectIDFromHex(p.SessionID)
	if err != nil {
		return nil, apperr.NotFound("invalid session id")
	}

	record, err := s.repo.FindByID(ctx, attendanceID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperr.NotFound("attendance record not found")
	}

	unlock := s.lock(record.UserID, record.Date)
	defer unlock()

	updated, err := s.repo.ApproveSession(ctx, attendanceID, sessionID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.NotFound("session not found")
	}
	return updated, nil
}

// OverrideDayStatus lets an admin rewrite a day record's descriptive
// status (Leave, HalfDay, OnBreak...). Sessions and totals are untouched.
func (s *AttendanceService) OverrideDayStatus(ctx context.Context, actor *models.Claims, attendanceID string, p *models.DayStatusUpdatePayload) (*models.Attendance, error) {
	if !actor.IsPrivileged() {
		return nil, apperr.Unauthorized("overriding a day status requires Admin or SuperAdmin role")
	}

	id, err := primitive.ObjectIDFromHex(attendanceID)
	if err != nil {
		return nil, apperr.NotFound("invalid attendance id")
	}

	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperr.NotFound("attendance record not found")
	}

	unlock := s.lock(record.UserID, record.Date)
	defer unlock()

	updated, err := s.repo.UpdateDayStatus(ctx, id, p.Status, p.Note)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.NotFound("attendance record not found")
	}
	return updated, nil
}

// StatusToday returns the caller's day record together with the computed
// open/last view. Both are nil when nothing was recorded today.
func (s *AttendanceService) StatusToday(ctx context.Context, userID primitive.ObjectID) (*models.Attendance, *models.TodayView, error) {
	record, err := s.repo.FindByUserAndDate(ctx, userID, s.dateOf(s.now()))
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return nil, nil, nil
	}
	return record, record.Today(), nil
}

// History returns a user's day records most recent first. Without an
// explicit range it covers the trailing 60 days, capped at 60 records.
func (s *AttendanceService) History(ctx context.Context, userID primitive.ObjectID, startDate, endDate string) ([]models.Attendance, error) {
	var limit int64
	if startDate == "" || endDate == "" {
		today := s.now().In(s.loc)
		endDate = today.Format(models.DateLayout)
		startDate = today.AddDate(0, 0, -60).Format(models.DateLayout)
		limit = 60
	}
	return s.repo.FindHistory(ctx, userID, startDate, endDate, limit)
}

// LiveStatus joins the full roster with today's ledger: exactly one entry
// per roster member, in roster order. Members without a record today are
// Absent with empty session fields; anyone with an open session shows as
// Present with their running time included in the total.
func (s *AttendanceService) LiveStatus(ctx context.Context) ([]models.PresenceEntry, error) {
	now := s.now()
	records, err := s.repo.FindAllByDate(ctx, s.dateOf(now))
	if err != nil {
		return nil, err
	}
	byUser := make(map[string]*models.Attendance, len(records))
	for i := range records {
		byUser[records[i].UserID.Hex()] = &records[i]
	}

	roster, err := s.users.GetRoster(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]models.PresenceEntry, 0, len(roster))
	for i := range roster {
		entry := models.PresenceEntry{
			User:   roster[i].Summary(),
			Status: models.StatusAbsent,
		}

		if record, ok := byUser[roster[i].ID.Hex()]; ok {
			entry.Status = record.Status
			entry.TotalHours = record.TotalWorked(now, true).Hours()
			entry.AttendanceID = &record.ID

			if open := record.OpenSession(); open != nil {
				entry.Status = models.StatusPresent
				entry.CheckIn = &open.CheckIn
				entry.SessionID = &open.ID
			} else if last := record.LastSession(); last != nil {
				entry.CheckIn = &last.CheckIn
				entry.CheckOut = last.CheckOut
				entry.SessionID = &last.ID
			}
		}

		entries = append(entries, entry)
	}
	return entries, nil
}

// ScanToggle routes a kiosk QR scan through the state machine: check-out
// when a session is open, otherwise check-in. Returns whether the scan
// opened a session.
func (s *AttendanceService) ScanToggle(ctx context.Context, actor *models.Claims, location *models.GeoLocation) (*models.Attendance, bool, error) {
	now := s.now()
	date := s.dateOf(now)

	unlock := s.lock(actor.UserID, date)
	defer unlock()

	record, err := s.repo.FindByUserAndDate(ctx, actor.UserID, date)
	if err != nil {
		return nil, false, err
	}
	if record != nil && record.OpenSession() != nil {
		updated, err := s.checkOutLocked(ctx, actor.UserID, now, date, location, "kiosk scan")
		return updated, false, err
	}

	updated, err := s.checkInLocked(ctx, actor.UserID, actor.IsPrivileged(), now, date, location, "kiosk scan")
	return updated, true, err
}
