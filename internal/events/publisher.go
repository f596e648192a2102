package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"classbook/pkg/config"
	"classbook/pkg/kafka"
	kafka_middleware "classbook/pkg/kafka/middleware"
	"classbook/pkg/logger"
	"classbook/pkg/middleware"
)

const (
	source        = "classbook"
	schemaVersion = "1"
)

// Publisher delivers domain events after the writes they describe have
// committed. Delivery failures are logged and never fail the caller.
type Publisher interface {
	Publish(ctx context.Context, events ...Event)
	Close() error
}

type kafkaPublisher struct {
	bookings *kafka.Producer
	lessons  *kafka.Producer
	log      *logger.Logger
}

// NewPublisher returns a Kafka publisher, or a no-op publisher when Kafka is
// disabled.
func NewPublisher(cfg *config.Config, metrics *kafka_middleware.Metrics) (Publisher, error) {
	if !cfg.KafkaEnabled || cfg.Kafka == nil {
		cfg.Log.Info("Kafka disabled, domain events will not be published")
		return NoopPublisher{}, nil
	}

	bookings, err := kafka.NewProducer(cfg.Kafka, cfg.KafkaBookingsTopic, cfg.KafkaEventsDLQTopic, cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create bookings producer: %w", err)
	}
	lessons, err := kafka.NewProducer(cfg.Kafka, cfg.KafkaLessonsTopic, cfg.KafkaEventsDLQTopic, cfg.Log)
	if err != nil {
		_ = bookings.Close()
		return nil, fmt.Errorf("failed to create lessons producer: %w", err)
	}

	if cfg.Kafka.EnableMiddleware {
		for _, p := range []*kafka.Producer{bookings, lessons} {
			p.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
			if metrics != nil {
				p.Use(metrics.ProducerMiddleware())
			}
		}
	}

	return &kafkaPublisher{bookings: bookings, lessons: lessons, log: cfg.Log}, nil
}

func (p *kafkaPublisher) Publish(ctx context.Context, events ...Event) {
	for _, event := range events {
		msg, err := NewMessage(ctx, event)
		if err != nil {
			p.log.Error("failed to build event message", "event_type", event.Type(), "error", err)
			continue
		}

		producer := p.bookings
		if strings.HasPrefix(event.Type(), "lesson.") {
			producer = p.lessons
		}
		if err := producer.Publish(ctx, msg); err != nil {
			p.log.Error("failed to publish event",
				"event_type", event.Type(),
				"key", event.Key(),
				"topic", producer.Topic(),
				"error", err,
			)
		}
	}
}

func (p *kafkaPublisher) Close() error {
	return errors.Join(p.bookings.Close(), p.lessons.Close())
}

// NewMessage wraps event in the shared header envelope.
func NewMessage(ctx context.Context, event Event) (kafka.Message, error) {
	return kafka.NewMessage().
		WithKey(event.Key()).
		WithValue(event).
		WithEventType(event.Type()).
		WithSource(source).
		WithSchemaVersion(schemaVersion).
		WithCorrelationID(middleware.RequestID(ctx)).
		Build()
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, ...Event) {}

func (NoopPublisher) Close() error { return nil }
