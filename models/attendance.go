package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateLayout is the day-bucket format used as part of the (user_id, date)
// uniqueness key.
const DateLayout = "2006-01-02"

const (
	ApprovalApproved = "Approved"
	ApprovalPending  = "Pending"
	ApprovalRejected = "Rejected"
)

const (
	StatusPresent = "Present"
	StatusAbsent  = "Absent"
	StatusLeave   = "Leave"
	StatusHalfDay = "HalfDay"
	StatusOnBreak = "OnBreak"
)

type GeoLocation struct {
	Lat     float64 `json:"lat" bson:"lat,omitempty"`
	Lng     float64 `json:"lng" bson:"lng,omitempty"`
	Address string  `json:"address,omitempty" bson:"address,omitempty"`
}

// CheckEvent is one side of a session. ApprovalStatus is only ever set on
// the check-in side; check-outs carry no moderation state.
type CheckEvent struct {
	Time           time.Time    `json:"time" bson:"time"`
	Location       *GeoLocation `json:"location,omitempty" bson:"location,omitempty"`
	Reason         string       `json:"reason,omitempty" bson:"reason,omitempty"`
	ApprovalStatus string       `json:"status,omitempty" bson:"status,omitempty"`
}

// Session is one check-in/check-out pair embedded in an Attendance
// document. A session is open while CheckOut is absent.
type Session struct {
	ID       primitive.ObjectID `json:"id" bson:"_id"`
	CheckIn  CheckEvent         `json:"check_in" bson:"check_in"`
	CheckOut *CheckEvent        `json:"check_out,omitempty" bson:"check_out,omitempty"`
}

func (s *Session) IsOpen() bool {
	return s.CheckOut == nil || s.CheckOut.Time.IsZero()
}

// Elapsed returns the session duration: check-out minus check-in when
// closed, now minus check-in while open. Negative values from clock skew
// or backdated events are clamped to zero.
func (s *Session) Elapsed(now time.Time) time.Duration {
	end := now
	if !s.IsOpen() {
		end = s.CheckOut.Time
	}
	d := end.Sub(s.CheckIn.Time)
	if d < 0 {
		return 0
	}
	return d
}

// Attendance is the ledger document for one user on one calendar day.
// TotalHours caches the sum of closed-session durations only; open
// sessions never contribute to the persisted figure.
type Attendance struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID     primitive.ObjectID `json:"user_id" bson:"user_id"`
	Date       string             `json:"date" bson:"date"`
	Sessions   []Session          `json:"sessions" bson:"sessions"`
	TotalHours float64            `json:"total_hours" bson:"total_hours"`
	Status     string             `json:"status" bson:"status,omitempty"`
	Note       string             `json:"note,omitempty" bson:"note,omitempty"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at,omitempty"`
	UpdatedAt  time.Time          `json:"updated_at" bson:"updated_at,omitempty"`
}

// OpenSession returns the currently open session, or nil. At most one
// session is ever open; the repository's conditional updates enforce that.
func (a *Attendance) OpenSession() *Session {
	for i := range a.Sessions {
		if a.Sessions[i].IsOpen() {
			return &a.Sessions[i]
		}
	}
	return nil
}

// LastSession returns the most recently started session, or nil.
func (a *Attendance) LastSession() *Session {
	if len(a.Sessions) == 0 {
		return nil
	}
	return &a.Sessions[len(a.Sessions)-1]
}

// TotalWorked sums session durations. With includeOpen the running open
// session contributes its elapsed time (the live/UI figure); without it
// only closed sessions count (the persisted figure).
func (a *Attendance) TotalWorked(now time.Time, includeOpen bool) time.Duration {
	var total time.Duration
	for i := range a.Sessions {
		if a.Sessions[i].IsOpen() && !includeOpen {
			continue
		}
		total += a.Sessions[i].Elapsed(now)
	}
	return total
}

// TodayView is the computed convenience view returned alongside a raw day
// record: the open session if any, else the last closed one.
type TodayView struct {
	Open *Session `json:"open,omitempty"`
	Last *Session `json:"last,omitempty"`
}

func (a *Attendance) Today() *TodayView {
	view := &TodayView{Open: a.OpenSession()}
	if view.Open == nil {
		view.Last = a.LastSession()
	}
	return view
}

// PresenceEntry is one row of the live roster view. AttendanceID and
// SessionID let an admin target a follow-up action (approval, override)
// at the exact record shown.
type PresenceEntry struct {
	User         UserSummary         `json:"user"`
	Status       string              `json:"status"`
	CheckIn      *CheckEvent         `json:"check_in"`
	CheckOut     *CheckEvent         `json:"check_out"`
	TotalHours   float64             `json:"total_hours"`
	AttendanceID *primitive.ObjectID `json:"attendance_id,omitempty"`
	SessionID    *primitive.ObjectID `json:"session_id,omitempty"`
}

type CheckPayload struct {
	UserID     string       `json:"user_id,omitempty" validate:"omitempty,len=24,hexadecimal"`
	ManualTime string       `json:"manual_time,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Location   *GeoLocation `json:"location,omitempty"`
	Reason     string       `json:"reason,omitempty" validate:"max=255"`
}

type ApproveSessionPayload struct {
	AttendanceID string `json:"attendance_id" validate:"required,len=24,hexadecimal"`
	SessionID    string `json:"session_id" validate:"required,len=24,hexadecimal"`
}

type DayStatusUpdatePayload struct {
	Status string `json:"status" validate:"required,oneof=Present Absent Leave HalfDay OnBreak"`
	Note   string `json:"note,omitempty" validate:"max=255"`
}
