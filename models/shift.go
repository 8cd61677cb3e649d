package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Shift assigns a user a working window starting at EffectiveDate. A
// RecurrenceRule (RFC 5545 RRULE) makes the assignment repeat; expansion
// happens at read time.
type Shift struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID         primitive.ObjectID `json:"user_id" bson:"user_id"`
	AssignedBy     primitive.ObjectID `json:"assigned_by" bson:"assigned_by"`
	ShiftType      string             `json:"shift_type" bson:"shift_type"`
	StartTime      string             `json:"start_time" bson:"start_time"`
	EndTime        string             `json:"end_time" bson:"end_time"`
	EffectiveDate  string             `json:"effective_date" bson:"effective_date"`
	EndDate        string             `json:"end_date,omitempty" bson:"end_date,omitempty"`
	RecurrenceRule string             `json:"recurrence_rule,omitempty" bson:"recurrence_rule,omitempty"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at,omitempty"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at,omitempty"`
}

type ShiftAssignPayload struct {
	UserID         string `json:"user_id" validate:"required,len=24,hexadecimal"`
	ShiftType      string `json:"shift_type" validate:"required"`
	StartTime      string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime        string `json:"end_time" validate:"required,datetime=15:04"`
	EffectiveDate  string `json:"effective_date" validate:"required,datetime=2006-01-02"`
	EndDate        string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	RecurrenceRule string `json:"recurrence_rule,omitempty"`
}

type WeeklyShiftDay struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	ShiftType string `json:"shift_type"`
	StartTime string `json:"start_time" validate:"omitempty,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"omitempty,datetime=15:04"`
	IsOff     bool   `json:"is_off"`
}

type WeeklyShiftPayload struct {
	UserID string           `json:"user_id" validate:"required,len=24,hexadecimal"`
	Shifts []WeeklyShiftDay `json:"shifts" validate:"required,min=1,max=7,dive"`
}
