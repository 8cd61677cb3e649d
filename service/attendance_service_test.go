package service

import (
	"context"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"attendance-tracker/models"
	"attendance-tracker/pkg/apperr"
)

// fakeAttendanceRepo mirrors the store's conditional-update contract in
// memory: AppendSession refuses when a session is open, CloseOpenSession
// refuses when none is, both by returning nil without an error.
type fakeAttendanceRepo struct {
	mu      sync.Mutex
	records map[string]*models.Attendance
	byID    map[primitive.ObjectID]*models.Attendance
	qrCodes map[string]*models.QRCode
}

func newFakeAttendanceRepo() *fakeAttendanceRepo {
	return &fakeAttendanceRepo{
		records: make(map[string]*models.Attendance),
		byID:    make(map[primitive.ObjectID]*models.Attendance),
		qrCodes: make(map[string]*models.QRCode),
	}
}

func recordKey(userID primitive.ObjectID, date string) string {
	return userID.Hex() + "|" + date
}

func cloneRecord(a *models.Attendance) *models.Attendance {
	if a == nil {
		return nil
	}
	copied := *a
	copied.Sessions = make([]models.Session, len(a.Sessions))
	copy(copied.Sessions, a.Sessions)
	return &copied
}

func (r *fakeAttendanceRepo) EnsureDayRecord(_ context.Context, userID primitive.ObjectID, date string) (*models.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := recordKey(userID, date)
	if existing, ok := r.records[key]; ok {
		return cloneRecord(existing), nil
	}

	record := &models.Attendance{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Date:      date,
		Sessions:  []models.Session{},
		Status:    models.StatusAbsent,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.records[key] = record
	r.byID[record.ID] = record
	return cloneRecord(record), nil
}

func (r *fakeAttendanceRepo) AppendSession(_ context.Context, userID primitive.ObjectID, date string, session models.Session) (*models.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[recordKey(userID, date)]
	if !ok || record.OpenSession() != nil {
		return nil, nil
	}
	record.Sessions = append(record.Sessions, session)
	record.Status = models.StatusPresent
	record.UpdatedAt = time.Now()
	return cloneRecord(record), nil
}

func (r *fakeAttendanceRepo) CloseOpenSession(_ context.Context, userID primitive.ObjectID, date string, checkOut models.CheckEvent, totalHours float64) (*models.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[recordKey(userID, date)]
	if !ok {
		return nil, nil
	}
	open := record.OpenSession()
	if open == nil {
		return nil, nil
	}
	open.CheckOut = &checkOut
	record.TotalHours = totalHours
	record.UpdatedAt = time.Now()
	return cloneRecord(record), nil
}

func (r *fakeAttendanceRepo) ApproveSession(_ context.Context, attendanceID, sessionID primitive.ObjectID) (*models.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.byID[attendanceID]
	if !ok {
		return nil, nil
	}
	for i := range record.Sessions {
		if record.Sessions[i].ID == sessionID {
			record.Sessions[i].CheckIn.ApprovalStatus = models.ApprovalApproved
			record.UpdatedAt = time.Now()
			return cloneRecord(record), nil
		}
	}
	return nil, nil
}

func (r *fakeAttendanceRepo) UpdateDayStatus(_ context.Context, attendanceID primitive.ObjectID, status, note string) (*models.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.byID[attendanceID]
	if !ok {
		return nil, nil
	}
	record.Status = status
	if note != "" {
		record.Note = note
	}
	record.UpdatedAt = time.Now()
	return cloneRecord(record), nil
}

func (r *fakeAttendanceRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneRecord(r.byID[id]), nil
}

func (r *fakeAttendanceRepo) FindByUserAndDate(_ context.Context, userID primitive.ObjectID, date string) (*models.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneRecord(r.records[recordKey(userID, date)]), nil
}

func (r *fakeAttendanceRepo) FindAllByDate(_ context.Context, date string) ([]models.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var results []models.Attendance
	for _, record := range r.records {
		if record.Date == date {
			results = append(results, *cloneRecord(record))
		}
	}
	return results, nil
}

func (r *fakeAttendanceRepo) FindHistory(_ context.Context, userID primitive.ObjectID, startDate, endDate string, limit int64) ([]models.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var results []models.Attendance
	for _, record := range r.records {
		if record.UserID == userID && record.Date >= startDate && record.Date <= endDate {
			results = append(results, *cloneRecord(record))
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Date > results[j].Date })
	if limit > 0 && int64(len(results)) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (r *fakeAttendanceRepo) CreateQRCode(_ context.Context, qrCode *models.QRCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.qrCodes[qrCode.Code] = qrCode
	return nil
}

func (r *fakeAttendanceRepo) FindQRCodeByValue(_ context.Context, code string) (*models.QRCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.qrCodes[code], nil
}

type fakeUserDirectory struct {
	users []models.User
}

func (d *fakeUserDirectory) FindUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	for i := range d.users {
		if d.users[i].ID == id {
			return &d.users[i], nil
		}
	}
	return nil, nil
}

func (d *fakeUserDirectory) GetRoster(_ context.Context) ([]models.User, error) {
	return d.users, nil
}

func newTestService(users ...models.User) (*AttendanceService, *fakeAttendanceRepo) {
	repo := newFakeAttendanceRepo()
	svc := NewAttendanceService(repo, &fakeUserDirectory{users: users}, time.UTC)
	return svc, repo
}

func employeeClaims(id primitive.ObjectID) *models.Claims {
	return &models.Claims{UserID: id, Email: "employee@example.com", Role: models.RoleEmployee}
}

func adminClaims(id primitive.ObjectID) *models.Claims {
	return &models.Claims{UserID: id, Email: "admin@example.com", Role: models.RoleAdmin}
}

func at(hour, min int) time.Time {
	return time.Date(2024, 3, 15, hour, min, 0, 0, time.UTC)
}

func fixClock(svc *AttendanceService, t time.Time) {
	svc.now = func() time.Time { return t }
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCheckInOpensApprovedSession(t *testing.T) {
	userID := primitive.NewObjectID()
	svc, _ := newTestService(models.User{ID: userID, Name: "Ada"})
	fixClock(svc, at(9, 0))

	record, err := svc.CheckIn(context.Background(), employeeClaims(userID), &models.CheckPayload{})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if len(record.Sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(record.Sessions))
	}
	if got := record.Sessions[0].CheckIn.ApprovalStatus; got != models.ApprovalApproved {
		t.Errorf("first session of the day should be Approved, got %q", got)
	}
	if record.Status != models.StatusPresent {
		t.Errorf("expected status Present, got %q", record.Status)
	}
	if record.Date != "2024-03-15" {
		t.Errorf("expected date 2024-03-15, got %q", record.Date)
	}
}

func TestDoubleCheckInConflictLeavesLedgerUnchanged(t *testing.T) {
	userID := primitive.NewObjectID()
	svc, repo := newTestService(models.User{ID: userID})
	fixClock(svc, at(9, 0))

	if _, err := svc.CheckIn(context.Background(), employeeClaims(userID), &models.CheckPayload{}); err != nil {
		t.Fatalf("first CheckIn: %v", err)
	}

	fixClock(svc, at(9, 5))
	_, err := svc.CheckIn(context.Background(), employeeClaims(userID), &models.CheckPayload{})
	if !apperr.IsConflict(err) {
		t.Fatalf("expected conflict error, got %v", err)
	}

	record, _ := repo.FindByUserAndDate(context.Background(), userID, "2024-03-15")
	if len(record.Sessions) != 1 {
		t.Errorf("conflicting check-in must not alter the ledger, got %d sessions", len(record.Sessions))
	}
}

func TestCheckOutWithoutRecordIsStateError(t *testing.T) {
	userID := primitive.NewObjectID()
	svc, _ := newTestService(models.User{ID: userID})
	fixClock(svc, at(17, 0))

	_, err := svc.CheckOut(context.Background(), employeeClaims(userID), &models.CheckPayload{})
	if !apperr.IsState(err) {
		t.Fatalf("expected state error, got %v", err)
	}
}

func TestCheckOutAfterCheckOutIsStateError(t *testing.T) {
	userID := primitive.NewObjectID()
	svc, _ := newTestService(models.User{ID: userID})
	ctx := context.Background()

	fixClock(svc, at(9, 0))
	if _, err := svc.CheckIn(ctx, employeeClaims(userID), &models.CheckPayload{}); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	fixClock(svc, at(12, 0))
	if _, err := svc.CheckOut(ctx, employeeClaims(userID), &models.CheckPayload{}); err != nil {
		t.Fatalf("CheckOut: %v", err)
	}

	fixClock(svc, at(12, 1))
	_, err := svc.CheckOut(ctx, employeeClaims(userID), &models.CheckPayload{})
	if !apperr.IsState(err) {
		t.Fatalf("expected state error on double check-out, got %v", err)
	}
}

func TestCheckOutPersistsClosedSessionTotal(t *testing.T) {
	userID := primitive.NewObjectID()
	svc, _ := newTestService(models.User{ID: userID})
	ctx := context.Background()

	fixClock(svc, at(9, 0))
	if _, err := svc.CheckIn(ctx, employeeClaims(userID), &models.CheckPayload{}); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	fixClock(svc, at(12, 0))
	record, err := svc.CheckOut(ctx, employeeClaims(userID), &models.CheckPayload{})
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if !almostEqual(record.TotalHours, 3.0) {
		t.Errorf("expected 3.0 total hours, got %v", record.TotalHours)
	}
}

func TestSecondSelfSessionStartsPending(t *testing.T) {
	userID := primitive.NewObjectID()
	svc, _ := newTestService(models.User{ID: userID})
	ctx := context.Background()

	fixClock(svc, at(9, 0))
	if _, err := svc.CheckIn(ctx, employeeClaims(userID), &models.CheckPayload{}); err != nil {
		t.Fatalf("first CheckIn: %v", err)
	}
	fixClock(svc, at(12, 0))
	if _, err := svc.CheckOut(ctx, employeeClaims(userID), &models.CheckPayload{}); err != nil {
		t.Fatalf("CheckOut: %v", err)
	}

	fixClock(svc, at(13, 0))
	record, err := svc.CheckIn(ctx, employeeClaims(userID), &models.CheckPayload{})
	if err != nil {
		t.Fatalf("second CheckIn: %v", err)
	}
	if got := record.Sessions[1].CheckIn.ApprovalStatus; got != models.ApprovalPending {
		t.Errorf("second self session should be Pending, got %q", got)
	}
}

func TestAdminSessionApprovedAtAnyOrdinal(t *testing.T) {
	adminID := primitive.NewObjectID()
	employeeID := primitive.NewObjectID()
	svc, _ := newTestService(
		models.User{ID: adminID, Role: models.RoleAdmin},
		models.User{ID: employeeID, Role: models.RoleEmployee},
	)
	ctx := context.Background()

	fixClock(svc, at(9, 0))
	if _, err := svc.CheckIn(ctx, employeeClaims(employeeID), &models.CheckPayload{}); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	fixClock(svc, at(12, 0))
	if _, err := svc.CheckOut(ctx, employeeClaims(employeeID), &models.CheckPayload{}); err != nil {
		t.Fatalf("CheckOut: %v", err)
	}

	fixClock(svc, at(13, 0))
	record, err := svc.CheckIn(ctx, adminClaims(adminID), &models.CheckPayload{UserID: employeeID.Hex()})
	if err != nil {
		t.Fatalf("admin CheckIn: %v", err)
	}
	if got := record.Sessions[1].CheckIn.ApprovalStatus; got != models.ApprovalApproved {
		t.Errorf("admin-initiated session should be Approved, got %q", got)
	}
}

func TestBackdatedCheckInLandsOnDescribedDay(t *testing.T) {
	adminID := primitive.NewObjectID()
	employeeID := primitive.NewObjectID()
	svc, _ := newTestService(
		models.User{ID: adminID, Role: models.RoleAdmin},
		models.User{ID: employeeID},
	)
	fixClock(svc, at(10, 0))

	record, err := svc.CheckIn(context.Background(), adminClaims(adminID), &models.CheckPayload{
		UserID:     employeeID.Hex(),
		ManualTime: "2024-03-10T08:00:00Z",
	})
	if err != nil {
		t.Fatalf("backdated CheckIn: %v", err)
	}
	if record.Date != "2024-03-10" {
		t.Errorf("backdated event should land on 2024-03-10, got %q", record.Date)
	}
	if got := record.Sessions[0].CheckIn.ApprovalStatus; got != models.ApprovalApproved {
		t.Errorf("admin backdated session should be Approved, got %q", got)
	}
}

func TestManualTimeIgnoredForEmployees(t *testing.T) {
	userID := primitive.NewObjectID()
	svc, _ := newTestService(models.User{ID: userID})
	fixClock(svc, at(9, 0))

	record, err := svc.CheckIn(context.Background(), employeeClaims(userID), &models.CheckPayload{
		ManualTime: "2024-03-10T08:00:00Z",
	})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if record.Date != "2024-03-15" {
		t.Errorf("employee manual time must be ignored, got date %q", record.Date)
	}
}

func TestImpersonationRequiresPrivilege(t *testing.T) {
	userID := primitive.NewObjectID()
	otherID := primitive.NewObjectID()
	svc, _ := newTestService(models.User{ID: userID}, models.User{ID: otherID})
	fixClock(svc, at(9, 0))

	_, err := svc.CheckIn(context.Background(), employeeClaims(userID), &models.CheckPayload{
		UserID: otherID.Hex(),
	})
	if !apperr.IsUnauthorized(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestCheckInUnknownTargetNotFound(t *testing.T) {
	adminID := primitive.NewObjectID()
	svc, _ := newTestService(models.User{ID: adminID, Role: models.RoleAdmin})
	fixClock(svc, at(9, 0))

	_, err := svc.CheckIn(context.Background(), adminClaims(adminID), &models.CheckPayload{
		UserID: primitive.NewObjectID().Hex(),
	})
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestApproveSessionAndIdempotency(t *testing.T) {
	userID := primitive.NewObjectID()
	leadID := primitive.NewObjectID()
	svc, _ := newTestService(models.User{ID: userID}, models.User{ID: leadID, Role: models.RoleTeamLead})
	ctx := context.Background()

	fixClock(svc, at(9, 0))
	if _, err := svc.CheckIn(ctx, employeeClaims(userID), &models.CheckPayload{}); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	fixClock(svc, at(12, 0))
	if _, err := svc.CheckOut(ctx, employeeClaims(userID), &models.CheckPayload{}); err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	fixClock(svc, at(13, 0))
	record, err := svc.CheckIn(ctx, employeeClaims(userID), &models.CheckPayload{})
	if err != nil {
		t.Fatalf("second CheckIn: %v", err)
	}

	lead := &models.Claims{UserID: leadID, Role: models.RoleTeamLead}
	payload := &models.ApproveSessionPayload{
		AttendanceID: record.ID.Hex(),
		SessionID:    record.Sessions[1].ID.Hex(),
	}

	approved, err := svc.ApproveSession(ctx, lead, payload)
	if err != nil {
		t.Fatalf("ApproveSession: %v", err)
	}
	if got := approved.Sessions[1].CheckIn.ApprovalStatus; got != models.ApprovalApproved {
		t.Errorf("expected Approved after approval, got %q", got)
	}

	again, err := svc.ApproveSession(ctx, lead, payload)
	if err != nil {
		t.Fatalf("second ApproveSession should be a no-op success: %v", err)
	}
	if got := again.Sessions[1].CheckIn.ApprovalStatus; got != models.ApprovalApproved {
		t.Errorf("expected Approved to persist, got %q", got)
	}
}

func TestApproveSessionRequiresModerator(t *testing.T) {
	userID := primitive.NewObjectID()
	svc, _ := newTestService(models.User{ID: userID})

	_, err := svc.ApproveSession(context.Background(), employeeClaims(userID), &models.ApproveSessionPayload{
		AttendanceID: primitive.NewObjectID().Hex(),
		SessionID:    primitive.NewObjectID().Hex(),
	})
	if !apperr.IsUnauthorized(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestApproveSessionUnknownIDsNotFound(t *testing.T) {
	leadID := primitive.NewObjectID()
	svc, _ := newTestService(models.User{ID: leadID, Role: models.RoleTeamLead})

	_, err := svc.ApproveSession(context.Background(), &models.Claims{UserID: leadID, Role: models.RoleTeamLead}, &models.ApproveSessionPayload{
		AttendanceID: primitive.NewObjectID().Hex(),
		SessionID:    primitive.NewObjectID().Hex(),
	})
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestPersistedTotalExcludesOpenSession(t *testing.T) {
	userID := primitive.NewObjectID()
	svc, repo := newTestService(models.User{ID: userID, Name: "Ada"})
	ctx := context.Background()

	fixClock(svc, at(9, 0))
	if _, err := svc.CheckIn(ctx, employeeClaims(userID), &models.CheckPayload{}); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	fixClock(svc, at(12, 0))
	if _, err := svc.CheckOut(ctx, employeeClaims(userID), &models.CheckPayload{}); err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	fixClock(svc, at(13, 0))
	if _, err := svc.CheckIn(ctx, employeeClaims(userID), &models.CheckPayload{}); err != nil {
		t.Fatalf("second CheckIn: %v", err)
	}

	record, _ := repo.FindByUserAndDate(ctx, userID, "2024-03-15")
	if !almostEqual(record.TotalHours, 3.0) {
		t.Errorf("persisted total must exclude the open session, got %v", record.TotalHours)
	}

	fixClock(svc, at(13, 30))
	entries, err := svc.LiveStatus(ctx)
	if err != nil {
		t.Fatalf("LiveStatus: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Status != models.StatusPresent {
		t.Errorf("open session should show Present, got %q", entries[0].Status)
	}
	if !almostEqual(entries[0].TotalHours, 3.5) {
		t.Errorf("live total should include running time, got %v", entries[0].TotalHours)
	}
}

func TestLiveStatusCoversFullRoster(t *testing.T) {
	presentID := primitive.NewObjectID()
	absentID := primitive.NewObjectID()
	svc, _ := newTestService(
		models.User{ID: presentID, Name: "Ada"},
		models.User{ID: absentID, Name: "Grace"},
	)
	ctx := context.Background()

	fixClock(svc, at(9, 0))
	if _, err := svc.CheckIn(ctx, employeeClaims(presentID), &models.CheckPayload{}); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	entries, err := svc.LiveStatus(ctx)
	if err != nil {
		t.Fatalf("LiveStatus: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected one entry per roster member, got %d", len(entries))
	}

	byName := make(map[string]models.PresenceEntry, len(entries))
	for _, e := range entries {
		byName[e.User.Name] = e
	}
	if byName["Ada"].Status != models.StatusPresent {
		t.Errorf("expected Ada Present, got %q", byName["Ada"].Status)
	}
	if byName["Grace"].Status != models.StatusAbsent {
		t.Errorf("expected Grace Absent, got %q", byName["Grace"].Status)
	}
	if byName["Grace"].CheckIn != nil {
		t.Errorf("absent member should carry no check-in")
	}
}

func TestBackdatedCheckOutClampsToZero(t *testing.T) {
	adminID := primitive.NewObjectID()
	employeeID := primitive.NewObjectID()
	svc, _ := newTestService(
		models.User{ID: adminID, Role: models.RoleAdmin},
		models.User{ID: employeeID},
	)
	ctx := context.Background()

	fixClock(svc, at(9, 0))
	if _, err := svc.CheckIn(ctx, employeeClaims(employeeID), &models.CheckPayload{}); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	fixClock(svc, at(10, 0))
	record, err := svc.CheckOut(ctx, adminClaims(adminID), &models.CheckPayload{
		UserID:     employeeID.Hex(),
		ManualTime: "2024-03-15T08:00:00Z",
	})
	if err != nil {
		t.Fatalf("backdated CheckOut: %v", err)
	}
	if !almostEqual(record.TotalHours, 0) {
		t.Errorf("check-out before check-in should clamp to zero, got %v", record.TotalHours)
	}
}

func TestOverrideDayStatus(t *testing.T) {
	adminID := primitive.NewObjectID()
	employeeID := primitive.NewObjectID()
	svc, _ := newTestService(
		models.User{ID: adminID, Role: models.RoleAdmin},
		models.User{ID: employeeID},
	)
	ctx := context.Background()

	fixClock(svc, at(9, 0))
	record, err := svc.CheckIn(ctx, employeeClaims(employeeID), &models.CheckPayload{})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	updated, err := svc.OverrideDayStatus(ctx, adminClaims(adminID), record.ID.Hex(), &models.DayStatusUpdatePayload{
		Status: models.StatusHalfDay,
		Note:   "left early, dentist",
	})
	if err != nil {
		t.Fatalf("OverrideDayStatus: %v", err)
	}
	if updated.Status != models.StatusHalfDay {
		t.Errorf("expected HalfDay, got %q", updated.Status)
	}
	if len(updated.Sessions) != 1 {
		t.Errorf("override must not touch sessions, got %d", len(updated.Sessions))
	}

	_, err = svc.OverrideDayStatus(ctx, employeeClaims(employeeID), record.ID.Hex(), &models.DayStatusUpdatePayload{
		Status: models.StatusLeave,
	})
	if !apperr.IsUnauthorized(err) {
		t.Fatalf("expected authorization error for employee override, got %v", err)
	}
}

func TestStatusTodayViews(t *testing.T) {
	userID := primitive.NewObjectID()
	svc, _ := newTestService(models.User{ID: userID})
	ctx := context.Background()
	claims := employeeClaims(userID)

	fixClock(svc, at(8, 0))
	record, today, err := svc.StatusToday(ctx, userID)
	if err != nil {
		t.Fatalf("StatusToday: %v", err)
	}
	if record != nil || today != nil {
		t.Fatalf("expected empty status before any activity")
	}

	fixClock(svc, at(9, 0))
	if _, err := svc.CheckIn(ctx, claims, &models.CheckPayload{}); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	_, today, err = svc.StatusToday(ctx, userID)
	if err != nil {
		t.Fatalf("StatusToday: %v", err)
	}
	if today.Open == nil {
		t.Fatalf("expected an open session in the view")
	}

	fixClock(svc, at(12, 0))
	if _, err := svc.CheckOut(ctx, claims, &models.CheckPayload{}); err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	_, today, err = svc.StatusToday(ctx, userID)
	if err != nil {
		t.Fatalf("StatusToday: %v", err)
	}
	if today.Open != nil {
		t.Errorf("expected no open session after check-out")
	}
	if today.Last == nil || today.Last.CheckOut == nil {
		t.Errorf("expected the last closed session in the view")
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	adminID := primitive.NewObjectID()
	employeeID := primitive.NewObjectID()
	svc, _ := newTestService(
		models.User{ID: adminID, Role: models.RoleAdmin},
		models.User{ID: employeeID},
	)
	ctx := context.Background()
	admin := adminClaims(adminID)

	fixClock(svc, at(10, 0))
	for _, day := range []string{"2024-03-11", "2024-03-13", "2024-03-12"} {
		if _, err := svc.CheckIn(ctx, admin, &models.CheckPayload{
			UserID:     employeeID.Hex(),
			ManualTime: day + "T09:00:00Z",
		}); err != nil {
			t.Fatalf("CheckIn %s: %v", day, err)
		}
	}

	records, err := svc.History(ctx, employeeID, "2024-03-11", "2024-03-13")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	want := []string{"2024-03-13", "2024-03-12", "2024-03-11"}
	for i, record := range records {
		if record.Date != want[i] {
			t.Errorf("record %d: expected %s, got %s", i, want[i], record.Date)
		}
	}
}

func TestScanToggle(t *testing.T) {
	userID := primitive.NewObjectID()
	svc, _ := newTestService(models.User{ID: userID})
	ctx := context.Background()
	claims := employeeClaims(userID)

	fixClock(svc, at(9, 0))
	record, opened, err := svc.ScanToggle(ctx, claims, nil)
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if !opened {
		t.Fatalf("first scan should open a session")
	}
	if record.OpenSession() == nil {
		t.Fatalf("expected an open session after first scan")
	}

	fixClock(svc, at(17, 0))
	record, opened, err = svc.ScanToggle(ctx, claims, nil)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if opened {
		t.Fatalf("second scan should close the session")
	}
	if record.OpenSession() != nil {
		t.Errorf("expected no open session after second scan")
	}
	if !almostEqual(record.TotalHours, 8.0) {
		t.Errorf("expected 8.0 total hours, got %v", record.TotalHours)
	}
}

func TestConcurrentCheckInsSingleWinner(t *testing.T) {
	userID := primitive.NewObjectID()
	svc, repo := newTestService(models.User{ID: userID})
	fixClock(svc, at(9, 0))
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CheckIn(ctx, employeeClaims(userID), &models.CheckPayload{})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case apperr.IsConflict(err):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("expected exactly one winning check-in, got %d", successes)
	}

	record, _ := repo.FindByUserAndDate(ctx, userID, "2024-03-15")
	if len(record.Sessions) != 1 {
		t.Errorf("expected 1 session after the race, got %d", len(record.Sessions))
	}
}
