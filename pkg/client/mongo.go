package client

import (
	"context"
	"fmt"
	"smartpark/pkg/logger"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoClient struct {
	Client *mongo.Client
}

func NewMongoClient(ctx context.Context, log *logger.Logger, mongoURI string, mongoConnTimeout time.Duration) (*MongoClient, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoConnTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Info("Successfully connected to MongoDB")
	return &MongoClient{Client: client}, nil
}

func (c *MongoClient) Database(name string) *mongo.Database {
	return c.Client.Database(name)
}

// Ping implements the readiness check.
func (c *MongoClient) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx, readpref.Primary())
}

func (c *MongoClient) Close(ctx context.Context) error {
	return c.Client.Disconnect(ctx)
}
