package repository

import (
	"context"
	"fmt"
	"smartpark/pkg/config"
	"smartpark/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Booking_history"
)

type HistoryRepository interface {
	Archive(ctx context.Context, record *model.HistoryRecord) error
	FindByVehicle(ctx context.Context, vehicle string, limit int, offset int64) ([]*model.HistoryRecord, error)
	CountByVehicle(ctx context.Context, vehicle string) (int64, error)
}

type mongoHistoryRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoHistoryRepository(cfg *config.Config, db *mongo.Database) HistoryRepository {
	return &mongoHistoryRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

// withTimeout keeps the caller's deadline when it is the shorter one.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	if remaining := time.Until(deadline); remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoHistoryRepository) Archive(ctx context.Context, record *model.HistoryRecord) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	record.StartTime = record.StartTime.UTC().Truncate(time.Millisecond)
	record.EndTime = record.EndTime.UTC().Truncate(time.Millisecond)
	record.ClosedAt = record.ClosedAt.UTC().Truncate(time.Millisecond)

	result, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to archive booking %s: %w", record.Reference, err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		record.ID = oid.Hex()
	}
	return nil
}

func (r *mongoHistoryRepository) FindByVehicle(ctx context.Context, vehicle string, limit int, offset int64) ([]*model.HistoryRecord, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "closed_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"vehicle_number": vehicle}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query booking history: %w", err)
	}
	defer cursor.Close(ctx)

	records := []*model.HistoryRecord{}
	if err = cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode booking history: %w", err)
	}
	return records, nil
}

func (r *mongoHistoryRepository) CountByVehicle(ctx context.Context, vehicle string) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"vehicle_number": vehicle})
	if err != nil {
		return 0, fmt.Errorf("failed to count booking history: %w", err)
	}
	return count, nil
}

type nopHistoryRepository struct{}

// NewNopHistoryRepository drops archived records; reads report ErrHistoryDisabled.
func NewNopHistoryRepository() HistoryRepository {
	return nopHistoryRepository{}
}

func (nopHistoryRepository) Archive(context.Context, *model.HistoryRecord) error {
	return nil
}

func (nopHistoryRepository) FindByVehicle(context.Context, string, int, int64) ([]*model.HistoryRecord, error) {
	return nil, ErrHistoryDisabled
}

func (nopHistoryRepository) CountByVehicle(context.Context, string) (int64, error) {
	return 0, ErrHistoryDisabled
}
