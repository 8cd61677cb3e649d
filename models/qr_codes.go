package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QRCode is a dated kiosk code. Scanning it routes the employee through
// the regular check-in/check-out state machine.
type QRCode struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Code      string             `json:"code" bson:"code"`
	Date      string             `json:"date" bson:"date"`
	ExpiresAt time.Time          `json:"expires_at" bson:"expires_at"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at,omitempty"`
}

type QRCodeScanPayload struct {
	QRCodeValue string       `json:"qr_code_value" validate:"required"`
	Location    *GeoLocation `json:"location,omitempty"`
}
