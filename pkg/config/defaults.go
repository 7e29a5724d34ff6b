package config

import "time"

const (
	DefaultPort      = "8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultSlotCount           = 100
	DefaultSlotsPerRow         = 10
	DefaultAllocationThreshold = 1799 * time.Second
	DefaultFallbackStrategy    = "random"
	DefaultTimezone            = "UTC"
	DefaultSweepSchedule       = "@every 1m"
	DefaultMaxCheckinHours     = 24
	DefaultCheckinHours        = 6

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 10 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 64 * 1024 // 64KB

	DefaultEffectTimeout   = 5 * time.Second
	DefaultEffectQueueSize = 4096

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultMongoDatabaseName = "smartpark"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPaginationLimit = 100
)
