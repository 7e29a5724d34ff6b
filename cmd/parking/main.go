package main

import (
	"context"

	"smartpark/internal/allocation"
	"smartpark/internal/observability"
	"smartpark/internal/parking/events"
	"smartpark/internal/parking/handler"
	"smartpark/internal/parking/jobs"
	"smartpark/internal/parking/repository"
	"smartpark/internal/parking/service"
	"smartpark/internal/parking/validator"
	"smartpark/pkg/app"
	"smartpark/pkg/client"
	"smartpark/pkg/config"
	"smartpark/pkg/kafka"
	kafka_middleware "smartpark/pkg/kafka/middleware"

	"github.com/prometheus/client_golang/prometheus"
)

const ServiceName = "smartpark"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting parking service")

	serverApp := app.NewApplication(cfg)

	var pinger handler.Pinger
	var mongoClient *client.MongoClient
	history := repository.NewNopHistoryRepository()
	if cfg.HistoryEnabled() {
		var err error
		mongoClient, err = client.NewMongoClient(context.Background(), cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
		if err != nil {
			cfg.Log.Fatal("Failed to connect to MongoDB", "error", err)
		}
		db := mongoClient.Database(cfg.MongoDatabaseName)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnTimeout)
		if err := repository.EnsureSchema(ctx, db, cfg.Log); err != nil {
			cancel()
			cfg.Log.Fatal("Failed to prepare history collection", "error", err)
		}
		cancel()
		history = repository.NewMongoHistoryRepository(cfg, db)
		pinger = mongoClient
	}

	publisher := initPublisher(cfg)

	registry := prometheus.NewRegistry()
	metrics, err := observability.NewParkingCollector(registry)
	if err != nil {
		cfg.Log.Fatal("Failed to register metrics", "error", err)
	}

	parkingService := initService(cfg, history, publisher, metrics)

	sweeper, err := jobs.NewSweeper(parkingService, cfg.SweepSchedule, cfg.Location, cfg.RequestTimeout, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to schedule expiry sweeper", "error", err)
	}
	serverApp.AddJob(sweeper)

	// Queued history writes and events drain before their sinks close.
	serverApp.OnShutdown("parking effects", parkingService.Close)
	serverApp.OnShutdown("publisher", func(context.Context) error { return publisher.Close() })
	if mongoClient != nil {
		serverApp.OnShutdown("mongo", mongoClient.Close)
	}

	serverApp.SetApp(
		handler.NewHealthHandler(pinger, cfg.Log),
		handler.NewParkingHandler(parkingService, cfg.Log),
		metrics.Gatherer(),
	)
	serverApp.Run()
}

func initPublisher(cfg *config.Config) events.Publisher {
	if cfg.Kafka == nil || !cfg.Kafka.Enabled() {
		cfg.Log.Info("Kafka disabled, booking events will not be published")
		return events.NopPublisher{}
	}
	producer, err := kafka.NewProducer(cfg.Kafka, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	return events.NewKafkaPublisher(producer, ServiceName)
}

func initService(
	cfg *config.Config,
	history repository.HistoryRepository,
	publisher events.Publisher,
	metrics *observability.ParkingCollector,
) service.ParkingService {
	picker, err := allocation.NewPicker(cfg.FallbackStrategy)
	if err != nil {
		cfg.Log.Fatal("Invalid fallback strategy", "error", err)
	}
	engine := allocation.NewEngine(
		allocation.NewPool(cfg.SlotCount, cfg.SlotsPerRow),
		allocation.NewDirectory(),
		allocation.WithThreshold(cfg.AllocationThreshold),
		allocation.WithPicker(picker),
	)

	parkingService := service.NewParkingService(
		engine,
		validator.NewParkingValidator(cfg.Log, cfg.MaxCheckinHours),
		history,
		publisher,
		metrics,
		cfg,
	)

	cfg.Log.Info("Parking service initialized",
		"slots", cfg.SlotCount,
		"history_enabled", cfg.HistoryEnabled(),
	)
	return parkingService
}
