package repository

import (
	"context"
	"fmt"
	"smartpark/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var HistoryIndexes = []mongo.IndexModel{
	{Keys: bson.D{
		{Key: "vehicle_number", Value: 1},
		{Key: "closed_at", Value: -1},
	}},
	{Keys: bson.D{{Key: "reference", Value: 1}}},
	{Keys: bson.D{{Key: "slot", Value: 1}, {Key: "start_time", Value: 1}}},
}

var HistoryValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"reference",
			"vehicle_number",
			"slot",
			"kind",
			"start_time",
			"end_time",
			"outcome",
			"closed_at",
		},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":            bson.M{"bsonType": "objectId"},
			"reference":      bson.M{"bsonType": "string", "minLength": 1},
			"vehicle_number": bson.M{"bsonType": "string", "minLength": 2, "maxLength": 16},
			"slot":           bson.M{"bsonType": "string", "minLength": 2},
			"kind":           bson.M{"enum": []string{"prebooking", "checkin"}},
			"start_time":     bson.M{"bsonType": "date"},
			"end_time":       bson.M{"bsonType": "date"},
			"outcome":        bson.M{"enum": []string{"checked_out", "expired"}},
			"closed_at":      bson.M{"bsonType": "date"},
		},
	},
}

// EnsureSchema creates the history collection with its validator and indexes.
// It is safe to run on every start.
func EnsureSchema(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	if err := ensureCollection(ctx, db, CollectionName, HistoryValidator, log); err != nil {
		return fmt.Errorf("failed to ensure collection %s: %w", CollectionName, err)
	}
	if _, err := db.Collection(CollectionName).Indexes().CreateMany(ctx, HistoryIndexes); err != nil {
		return fmt.Errorf("failed to ensure indexes for %s: %w", CollectionName, err)
	}
	log.Info("History schema ensured", "collection", CollectionName)
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating collection validator", "collection", name, "error", err)
	}
	return nil
}
