package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	kafka_config "smartpark/pkg/kafka/config"
	"smartpark/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	SlotCount           int
	SlotsPerRow         int
	AllocationThreshold time.Duration
	FallbackStrategy    string
	Timezone            string
	Location            *time.Location
	SweepSchedule       string
	MaxCheckinHours     int
	DefaultCheckinHours int

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	// EffectTimeout bounds each history write and event publish. Those run
	// after the response, detached from the request context.
	EffectTimeout   time.Duration
	EffectQueueSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// An empty MongoURI disables the booking history archive.
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Kafka *kafka_config.Config

	Log *logger.Logger
}

// Load reads the configuration from the environment, after applying an optional
// .env file, and exits the process when it does not validate.
func Load(serviceName string) *Config {
	loadDotEnv()

	cfg := &Config{
		Port:      getEnvStr(EnvPort, DefaultPort),
		LogLevel:  getEnvStr(EnvLogLevel, DefaultLogLevel),
		LogFormat: getEnvStr(EnvLogFormat, DefaultLogFormat),

		SlotCount:           getEnvNum(EnvSlotCount, DefaultSlotCount),
		SlotsPerRow:         getEnvNum(EnvSlotsPerRow, DefaultSlotsPerRow),
		AllocationThreshold: getEnvDuration(EnvAllocationThreshold, DefaultAllocationThreshold),
		FallbackStrategy:    getEnvStr(EnvFallbackStrategy, DefaultFallbackStrategy),
		Timezone:            getEnvStr(EnvTimezone, DefaultTimezone),
		SweepSchedule:       getEnvStr(EnvSweepSchedule, DefaultSweepSchedule),
		MaxCheckinHours:     getEnvNum(EnvMaxCheckinHours, DefaultMaxCheckinHours),
		DefaultCheckinHours: getEnvNum(EnvDefaultCheckinHours, DefaultCheckinHours),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		EffectTimeout:   getEnvDuration(EnvEffectTimeout, DefaultEffectTimeout),
		EffectQueueSize: getEnvNum(EnvEffectQueueSize, DefaultEffectQueueSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		MongoURI:          getEnvStr(EnvMongoURI, ""),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Kafka: kafka_config.Load(),
	}

	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		AddSource: true,
		Service:   serviceName,
	})

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func loadDotEnv() {
	file := getEnvStr(EnvDotEnvFile, ".env")
	// A missing file is normal outside local development.
	_ = godotenv.Load(file)
}

// Validate checks every field and also resolves Location from Timezone.
func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.SlotCount <= 0 {
		errs = append(errs, fmt.Sprintf("SlotCount must be positive, got: %d", cfg.SlotCount))
	}
	if cfg.SlotsPerRow <= 0 {
		errs = append(errs, fmt.Sprintf("SlotsPerRow must be positive, got: %d", cfg.SlotsPerRow))
	}
	if cfg.AllocationThreshold < 0 {
		errs = append(errs, fmt.Sprintf("AllocationThreshold cannot be negative, got: %s", cfg.AllocationThreshold))
	}
	if cfg.FallbackStrategy != "random" && cfg.FallbackStrategy != "round_robin" {
		errs = append(errs, fmt.Sprintf("FallbackStrategy must be one of [random, round_robin], got: %s", cfg.FallbackStrategy))
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		errs = append(errs, fmt.Sprintf("Timezone must be a valid IANA name, got: %s", cfg.Timezone))
	} else {
		cfg.Location = loc
	}

	if _, err := cron.ParseStandard(cfg.SweepSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("SweepSchedule is not a valid cron spec (%v), got: %s", err, cfg.SweepSchedule))
	}

	if cfg.MaxCheckinHours <= 0 {
		errs = append(errs, fmt.Sprintf("MaxCheckinHours must be positive, got: %d", cfg.MaxCheckinHours))
	}
	if cfg.DefaultCheckinHours <= 0 || cfg.DefaultCheckinHours > cfg.MaxCheckinHours {
		errs = append(errs, fmt.Sprintf("DefaultCheckinHours (%d) must be between 1 and MaxCheckinHours (%d)", cfg.DefaultCheckinHours, cfg.MaxCheckinHours))
	}

	if cfg.RateLimitRequests <= 0 {
		errs = append(errs, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RateLimitWindow <= 0 {
		errs = append(errs, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errs = append(errs, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.EffectTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("EffectTimeout must be positive, got: %s", cfg.EffectTimeout))
	}
	if cfg.EffectQueueSize <= 0 {
		errs = append(errs, fmt.Sprintf("EffectQueueSize must be positive, got: %d", cfg.EffectQueueSize))
	}
	if cfg.ReadTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.MongoURI != "" {
		if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errs = append(errs, "MongoDatabaseName cannot be empty when MongoURI is set")
		}
		if cfg.MongoConnTimeout <= 0 {
			errs = append(errs, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
	}

	if cfg.Kafka != nil {
		if err := cfg.Kafka.Validate(); err != nil {
			errs = append(errs, strings.TrimSpace(err.Error()))
		}
	}

	if len(errs) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, e := range errs {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, e)
		}
		return errors.New(errMsg)
	}

	return nil
}

func (cfg *Config) HistoryEnabled() bool {
	return cfg.MongoURI != ""
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"port", cfg.Port,
		"log_level", cfg.LogLevel,
		"slot_count", cfg.SlotCount,
		"slots_per_row", cfg.SlotsPerRow,
		"allocation_threshold", cfg.AllocationThreshold,
		"fallback_strategy", cfg.FallbackStrategy,
		"timezone", cfg.Timezone,
		"sweep_schedule", cfg.SweepSchedule,
		"max_checkin_hours", cfg.MaxCheckinHours,
		"default_checkin_hours", cfg.DefaultCheckinHours,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"effect_timeout", cfg.EffectTimeout,
		"effect_queue_size", cfg.EffectQueueSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"history_enabled", cfg.HistoryEnabled(),
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
	)
	if cfg.Kafka != nil {
		cfg.Kafka.LogConfiguration(cfg.Log.Info)
	}
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
