package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"attendance-tracker/config"
	"attendance-tracker/models"
)

type ShiftRepository struct {
	collection *mongo.Collection
}

func NewShiftRepository() *ShiftRepository {
	return &ShiftRepository{
		collection: config.GetCollection(config.ShiftCollection),
	}
}

func (r *ShiftRepository) Create(ctx context.Context, shift *models.Shift) error {
	shift.ID = primitive.NewObjectID()
	shift.CreatedAt = time.Now()
	shift.UpdatedAt = time.Now()

	if _, err := r.collection.InsertOne(ctx, shift); err != nil {
		return fmt.Errorf("failed to create shift: %w", err)
	}
	return nil
}

// UpsertByUserAndDate creates or replaces the shift for one user on one
// effective date; weekly planning rewrites a whole week this way.
func (r *ShiftRepository) UpsertByUserAndDate(ctx context.Context, shift *models.Shift) error {
	filter := bson.M{"user_id": shift.UserID, "effective_date": shift.EffectiveDate}
	update := bson.M{
		"$set": bson.M{
			"assigned_by": shift.AssignedBy,
			"shift_type":  shift.ShiftType,
			"start_time":  shift.StartTime,
			"end_time":    shift.EndTime,
			"updated_at":  time.Now(),
		},
		"$setOnInsert": bson.M{
			"user_id":        shift.UserID,
			"effective_date": shift.EffectiveDate,
			"created_at":     time.Now(),
		},
	}

	if _, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to upsert shift: %w", err)
	}
	return nil
}

func (r *ShiftRepository) DeleteByUserAndDate(ctx context.Context, userID primitive.ObjectID, effectiveDate string) error {
	filter := bson.M{"user_id": userID, "effective_date": effectiveDate}
	if _, err := r.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete shift: %w", err)
	}
	return nil
}

func (r *ShiftRepository) FindByUserID(ctx context.Context, userID primitive.ObjectID) ([]models.Shift, error) {
	return r.findSorted(ctx, bson.M{"user_id": userID})
}

func (r *ShiftRepository) FindByAssignedBy(ctx context.Context, assignedBy primitive.ObjectID) ([]models.Shift, error) {
	return r.findSorted(ctx, bson.M{"assigned_by": assignedBy})
}

func (r *ShiftRepository) findSorted(ctx context.Context, filter bson.M) ([]models.Shift, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "effective_date", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find shifts: %w", err)
	}
	defer cursor.Close(ctx)

	var shifts []models.Shift
	if err = cursor.All(ctx, &shifts); err != nil {
		return nil, fmt.Errorf("failed to decode shifts: %w", err)
	}
	if len(shifts) == 0 {
		return []models.Shift{}, nil
	}
	return shifts, nil
}
