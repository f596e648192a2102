package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "classbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100

	DefaultRedisDB              = 0
	DefaultAvailabilityCacheTTL = 30 * time.Second

	DefaultLessonLockTTL   = 10 * time.Second
	DefaultLessonLockWait  = 2 * time.Second
	DefaultBcryptCost      = 10
	DefaultDefaultCurrency = "EUR"

	DefaultKafkaEnabled          = false
	DefaultKafkaBookingsTopic    = "classbook.bookings"
	DefaultKafkaLessonsTopic     = "classbook.lessons"
	DefaultKafkaPaymentsTopic    = "classbook.payments"
	DefaultKafkaPaymentsGroup    = "classbook-payments-worker"
	DefaultKafkaPaymentsDLQTopic = "classbook.payments.dlq"
	DefaultKafkaEventsDLQTopic   = "classbook.events.dlq"
)
