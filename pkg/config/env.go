package config

const (
	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvSlotCount           = "SLOT_COUNT"
	EnvSlotsPerRow         = "SLOTS_PER_ROW"
	EnvAllocationThreshold = "ALLOCATION_THRESHOLD"
	EnvFallbackStrategy    = "FALLBACK_STRATEGY"
	EnvTimezone            = "TIMEZONE"
	EnvSweepSchedule       = "SWEEP_SCHEDULE"
	EnvMaxCheckinHours     = "MAX_CHECKIN_HOURS"
	EnvDefaultCheckinHours = "DEFAULT_CHECKIN_HOURS"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvEffectTimeout   = "EFFECT_TIMEOUT"
	EnvEffectQueueSize = "EFFECT_QUEUE_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvDotEnvFile = "DOTENV_FILE"
)
