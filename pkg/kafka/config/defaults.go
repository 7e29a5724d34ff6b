package kafka_config

import "time"

const (
	// Empty broker list disables event publishing
	DefaultKafkaBrokers = ""

	DefaultBookingTopic    = "parking.bookings"
	DefaultBookingDLQTopic = "parking.bookings.dlq"

	// Producer defaults
	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1 // Require all replicas
	DefaultProducerCompression  = "snappy"
	DefaultProducerAsync        = false
	DefaultPublishTimeout       = 5 * time.Second

	// Middleware defaults
	DefaultEnableMiddleware = true
)
