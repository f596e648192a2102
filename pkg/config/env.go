package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvRedisAddr            = "REDIS_ADDR"
	EnvRedisPassword        = "REDIS_PASSWORD"
	EnvRedisDB              = "REDIS_DB"
	EnvAvailabilityCacheTTL = "AVAILABILITY_CACHE_TTL"

	EnvLessonLockTTL   = "LESSON_LOCK_TTL"
	EnvLessonLockWait  = "LESSON_LOCK_WAIT"
	EnvBcryptCost      = "BCRYPT_COST"
	EnvDefaultCurrency = "DEFAULT_CURRENCY"

	EnvKafkaEnabled          = "KAFKA_ENABLED"
	EnvKafkaBookingsTopic    = "KAFKA_BOOKINGS_TOPIC"
	EnvKafkaLessonsTopic     = "KAFKA_LESSONS_TOPIC"
	EnvKafkaPaymentsTopic    = "KAFKA_PAYMENTS_TOPIC"
	EnvKafkaPaymentsGroup    = "KAFKA_PAYMENTS_GROUP"
	EnvKafkaPaymentsDLQTopic = "KAFKA_PAYMENTS_DLQ_TOPIC"
	EnvKafkaEventsDLQTopic   = "KAFKA_EVENTS_DLQ_TOPIC"
)
