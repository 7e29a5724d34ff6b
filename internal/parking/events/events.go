package events

import (
	"context"
	"fmt"
	"smartpark/pkg/kafka"
	"smartpark/pkg/middleware"
	"time"
)

type Type string

const (
	BookingAllocated Type = "booking.allocated"
	BookingCheckedIn Type = "booking.checked_in"
	BookingReleased  Type = "booking.released"
	BookingExpired   Type = "booking.expired"
)

const SchemaVersion = "1"

type BookingEvent struct {
	Type          Type      `json:"type"`
	Reference     string    `json:"reference"`
	VehicleNumber string    `json:"vehicle_number"`
	Slot          string    `json:"slot"`
	Kind          string    `json:"kind"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	BestFit       bool      `json:"best_fit,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event BookingEvent) error
	Close() error
}

// messageProducer is the part of *kafka.Producer the publisher needs.
type messageProducer interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	producer messageProducer
	source   string
}

func NewKafkaPublisher(producer messageProducer, source string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, source: source}
}

// Publish keys events by vehicle so one vehicle's lifecycle stays ordered on a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event BookingEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(event.VehicleNumber).
		WithValue(event).
		WithEventID("").
		WithEventType(string(event.Type)).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		WithCorrelationID(middleware.RequestIDFromContext(ctx)).
		WithTimestamp(event.OccurredAt).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", event.Type, err)
	}
	return p.producer.Publish(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, BookingEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
