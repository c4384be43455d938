package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"

	EnvKafkaBrokers            = "KAFKA_BROKERS"
	EnvKafkaNotificationsTopic = "KAFKA_NOTIFICATIONS_TOPIC"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitWindow        = "RATE_LIMIT_WINDOW"
	EnvRateLimitSegments      = "RATE_LIMIT_SEGMENTS"
	EnvReservationWriteLimit  = "RESERVATION_WRITE_LIMIT"
	EnvReadLimit              = "READ_LIMIT"
	EnvAnalyticsLimit         = "ANALYTICS_LIMIT"
	EnvDefaultWriteLimit      = "DEFAULT_WRITE_LIMIT"
	EnvSuggestionLookaheadDay = "SUGGESTION_LOOKAHEAD_DAYS"
	EnvSuggestionLimit        = "SUGGESTION_LIMIT"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
