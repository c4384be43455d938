package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "slotter"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultKafkaNotificationsTopic = "bookings.notifications"

	DefaultPort = "8080"

	DefaultRateLimitWindow   = 1 * time.Minute
	DefaultRateLimitSegments = 12

	// Policy tier limits per window. Reservation writes are the scarce
	// path and get the tightest quota.
	DefaultReservationWriteLimit = 20
	DefaultReadLimit             = 120
	DefaultAnalyticsLimit        = 300
	DefaultDefaultWriteLimit     = 60

	DefaultSuggestionLookaheadDays = 7
	DefaultSuggestionLimit         = 5

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100
)
