package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	bookingsrepo "classbook/internal/bookings/repository"
	bookingsservice "classbook/internal/bookings/service"
	bookingsvalidator "classbook/internal/bookings/validator"
	"classbook/internal/events"
	lessonsrepo "classbook/internal/lessons/repository"
	lessonsservice "classbook/internal/lessons/service"
	lessonsvalidator "classbook/internal/lessons/validator"
	"classbook/internal/lockout"
	"classbook/internal/payments"
	transactionsrepo "classbook/internal/transactions/repository"
	"classbook/pkg/cache"
	"classbook/pkg/config"
	"classbook/pkg/kafka"
	kafka_middleware "classbook/pkg/kafka/middleware"
)

const ServiceName = "payments-worker"

func main() {
	cfg := config.Load(ServiceName)
	if !cfg.KafkaEnabled || cfg.Kafka == nil {
		cfg.Log.Fatal("Payments worker requires Kafka", "env", config.EnvKafkaEnabled)
	}
	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	metrics := &kafka_middleware.Metrics{}
	publisher, err := events.NewPublisher(cfg, metrics)
	if err != nil {
		cfg.Log.Fatal("Failed to create event publisher", "error", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	}()

	handler := payments.NewHandler(initBookingService(cfg, publisher), cfg.Log)

	consumer, err := kafka.NewConsumer(
		cfg.Kafka,
		cfg.KafkaPaymentsTopic,
		cfg.KafkaPaymentsGroup,
		cfg.KafkaPaymentsDLQTopic,
		handler.Handle,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create payments consumer", "error", err)
	}
	if cfg.Kafka.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(metrics.ConsumerMiddleware())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Starting payments worker",
		"topic", cfg.KafkaPaymentsTopic,
		"group", cfg.KafkaPaymentsGroup,
		"dlq_topic", cfg.KafkaPaymentsDLQTopic,
	)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Payments consumer stopped", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close payments consumer", "error", err)
	}
	cfg.Log.Info("Payments worker stopped", "metrics", metrics.Snapshot())
}

func initBookingService(cfg *config.Config, publisher events.Publisher) bookingsservice.BookingService {
	lessonRepo := lessonsrepo.NewMongoLessonRepository(cfg)
	bookingRepo := bookingsrepo.NewMongoBookingRepository(cfg)

	lessonService := lessonsservice.NewLessonService(
		lessonRepo,
		lessonsrepo.NewMongoClassOptionRepository(cfg),
		bookingRepo,
		cache.NewAvailabilityCache(cfg.Client.Redis, cfg.AvailabilityCacheTTL, cfg.Log),
		lessonsvalidator.NewLessonValidator(cfg.Log),
		cfg,
	)

	return bookingsservice.NewBookingService(
		bookingRepo,
		transactionsrepo.NewMongoTransactionRepository(cfg),
		lessonService,
		lockout.NewManager(lessonRepo, bookingRepo, cfg.Log),
		bookingsservice.NewLessonLocker(bookingsrepo.NewBookingLockRepository(cfg), cfg.LessonLockTTL, cfg.LessonLockWait, cfg.Log),
		publisher,
		bookingsvalidator.NewBookingValidator(cfg.Log),
		cfg,
	)
}
