package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"attendance-tracker/config"
	"attendance-tracker/models"
)

// openSessionFilter matches documents whose sessions array contains an
// open session (one stored without a check_out).
var openSessionFilter = bson.M{"$elemMatch": bson.M{"check_out": bson.M{"$exists": false}}}

// AttendanceRepository persists the per-(user, day) session ledger. The
// append/close operations are conditional single-document updates: together
// with the unique (user_id, date) index they make the single-open-session
// rule hold even under concurrent writers.
type AttendanceRepository interface {
	EnsureDayRecord(ctx context.Context, userID primitive.ObjectID, date string) (*models.Attendance, error)
	AppendSession(ctx context.Context, userID primitive.ObjectID, date string, session models.Session) (*models.Attendance, error)
	CloseOpenSession(ctx context.Context, userID primitive.ObjectID, date string, checkOut models.CheckEvent, totalHours float64) (*models.Attendance, error)
	ApproveSession(ctx context.Context, attendanceID, sessionID primitive.ObjectID) (*models.Attendance, error)
	UpdateDayStatus(ctx context.Context, attendanceID primitive.ObjectID, status, note string) (*models.Attendance, error)

	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Attendance, error)
	FindByUserAndDate(ctx context.Context, userID primitive.ObjectID, date string) (*models.Attendance, error)
	FindAllByDate(ctx context.Context, date string) ([]models.Attendance, error)
	FindHistory(ctx context.Context, userID primitive.ObjectID, startDate, endDate string, limit int64) ([]models.Attendance, error)

	CreateQRCode(ctx context.Context, qrCode *models.QRCode) error
	FindQRCodeByValue(ctx context.Context, code string) (*models.QRCode, error)
}

type attendanceRepository struct {
	attendanceCollection *mongo.Collection
	qrCodeCollection     *mongo.Collection
}

func NewAttendanceRepository() AttendanceRepository {
	return &attendanceRepository{
		attendanceCollection: config.GetCollection(config.AttendanceCollection),
		qrCodeCollection:     config.GetCollection(config.QRCodeCollection),
	}
}

// EnsureDayRecord returns the day record for (userID, date), creating an
// empty one if none exists. The upsert races safely against concurrent
// callers thanks to the unique compound index.
func (r *attendanceRepository) EnsureDayRecord(ctx context.Context, userID primitive.ObjectID, date string) (*models.Attendance, error) {
	now := time.Now()
	filter := bson.M{"user_id": userID, "date": date}
	update := bson.M{
		"$setOnInsert": bson.M{
			"user_id":     userID,
			"date":        date,
			"sessions":    []models.Session{},
			"total_hours": 0.0,
			"status":      models.StatusAbsent,
			"created_at":  now,
			"updated_at":  now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var attendance models.Attendance
	if err := r.attendanceCollection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&attendance); err != nil {
		return nil, fmt.Errorf("failed to ensure day record: %w", err)
	}
	return &attendance, nil
}

// AppendSession pushes a new open session onto the day record, but only if
// no session is currently open. Returns nil (no error) when the condition
// did not hold, so the caller can report the conflict.
func (r *attendanceRepository) AppendSession(ctx context.Context, userID primitive.ObjectID, date string, session models.Session) (*models.Attendance, error) {
	filter := bson.M{
		"user_id":  userID,
		"date":     date,
		"sessions": bson.M{"$not": openSessionFilter},
	}
	update := bson.M{
		"$push": bson.M{"sessions": session},
		"$set": bson.M{
			"status":     models.StatusPresent,
			"updated_at": time.Now(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var attendance models.Attendance
	err := r.attendanceCollection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&attendance)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to append session: %w", err)
	}
	return &attendance, nil
}

// CloseOpenSession sets the check-out on the open session and stores the
// recomputed closed-session total. Returns nil when no open session
// exists.
func (r *attendanceRepository) CloseOpenSession(ctx context.Context, userID primitive.ObjectID, date string, checkOut models.CheckEvent, totalHours float64) (*models.Attendance, error) {
	filter := bson.M{
		"user_id":  userID,
		"date":     date,
		"sessions": openSessionFilter,
	}
	update := bson.M{
		"$set": bson.M{
			"sessions.$.check_out": checkOut,
			"total_hours":          totalHours,
			"updated_at":           time.Now(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var attendance models.Attendance
	err := r.attendanceCollection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&attendance)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to close open session: %w", err)
	}
	return &attendance, nil
}

// ApproveSession marks the check-in of the addressed session Approved.
// Re-approving an already approved session matches and rewrites the same
// value, so the operation is idempotent. Returns nil when the record or
// session does not exist.
func (r *attendanceRepository) ApproveSession(ctx context.Context, attendanceID, sessionID primitive.ObjectID) (*models.Attendance, error) {
	filter := bson.M{"_id": attendanceID, "sessions._id": sessionID}
	update := bson.M{
		"$set": bson.M{
			"sessions.$.check_in.status": models.ApprovalApproved,
			"updated_at":                 time.Now(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var attendance models.Attendance
	err := r.attendanceCollection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&attendance)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to approve session: %w", err)
	}
	return &attendance, nil
}

func (r *attendanceRepository) UpdateDayStatus(ctx context.Context, attendanceID primitive.ObjectID, status, note string) (*models.Attendance, error) {
	set := bson.M{
		"status":     status,
		"updated_at": time.Now(),
	}
	if note != "" {
		set["note"] = note
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var attendance models.Attendance
	err := r.attendanceCollection.FindOneAndUpdate(ctx, bson.M{"_id": attendanceID}, bson.M{"$set": set}, opts).Decode(&attendance)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update day status: %w", err)
	}
	return &attendance, nil
}

func (r *attendanceRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Attendance, error) {
	var attendance models.Attendance
	err := r.attendanceCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&attendance)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find attendance by id: %w", err)
	}
	return &attendance, nil
}

func (r *attendanceRepository) FindByUserAndDate(ctx context.Context, userID primitive.ObjectID, date string) (*models.Attendance, error) {
	var attendance models.Attendance
	filter := bson.M{"user_id": userID, "date": date}
	err := r.attendanceCollection.FindOne(ctx, filter).Decode(&attendance)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find attendance by user and date: %w", err)
	}
	return &attendance, nil
}

func (r *attendanceRepository) FindAllByDate(ctx context.Context, date string) ([]models.Attendance, error) {
	cursor, err := r.attendanceCollection.Find(ctx, bson.M{"date": date})
	if err != nil {
		return nil, fmt.Errorf("failed to find attendances for date: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.Attendance
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode attendances for date: %w", err)
	}
	return results, nil
}

// FindHistory returns a user's day records between startDate and endDate
// inclusive, most recent day first. A limit of 0 means unbounded.
func (r *attendanceRepository) FindHistory(ctx context.Context, userID primitive.ObjectID, startDate, endDate string, limit int64) ([]models.Attendance, error) {
	filter := bson.M{
		"user_id": userID,
		"date":    bson.M{"$gte": startDate, "$lte": endDate},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	if limit > 0 {
		findOptions.SetLimit(limit)
	}

	cursor, err := r.attendanceCollection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find attendance history: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.Attendance
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode attendance history: %w", err)
	}
	if len(results) == 0 {
		return []models.Attendance{}, nil
	}
	return results, nil
}

func (r *attendanceRepository) CreateQRCode(ctx context.Context, qrCode *models.QRCode) error {
	if _, err := r.qrCodeCollection.InsertOne(ctx, qrCode); err != nil {
		return fmt.Errorf("failed to create QR code: %w", err)
	}
	return nil
}

func (r *attendanceRepository) FindQRCodeByValue(ctx context.Context, code string) (*models.QRCode, error) {
	var qrCode models.QRCode
	err := r.qrCodeCollection.FindOne(ctx, bson.M{"code": code}).Decode(&qrCode)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find QR code: %w", err)
	}
	return &qrCode, nil
}
