package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"slotter/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	// Optional. When set, rate-limit window state is shared through Redis
	// so multiple instances enforce one quota.
	RedisAddr     string
	RedisPassword string

	KafkaBrokers            []string
	KafkaNotificationsTopic string

	Port string

	RateLimitWindow       time.Duration
	RateLimitSegments     int
	ReservationWriteLimit int
	ReadLimit             int
	AnalyticsLimit        int
	DefaultWriteLimit     int

	SuggestionLookahead time.Duration
	SuggestionLimit     int

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log   *logger.Logger
	Mongo *mongo.Client
	Redis *redis.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, ""),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),

		KafkaBrokers:            getEnvList(EnvKafkaBrokers, nil),
		KafkaNotificationsTopic: getEnvStr(EnvKafkaNotificationsTopic, DefaultKafkaNotificationsTopic),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitWindow:       getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),
		RateLimitSegments:     getEnvNum(EnvRateLimitSegments, DefaultRateLimitSegments),
		ReservationWriteLimit: getEnvNum(EnvReservationWriteLimit, DefaultReservationWriteLimit),
		ReadLimit:             getEnvNum(EnvReadLimit, DefaultReadLimit),
		AnalyticsLimit:        getEnvNum(EnvAnalyticsLimit, DefaultAnalyticsLimit),
		DefaultWriteLimit:     getEnvNum(EnvDefaultWriteLimit, DefaultDefaultWriteLimit),

		SuggestionLookahead: time.Duration(getEnvNum(EnvSuggestionLookaheadDay, DefaultSuggestionLookaheadDays)) * 24 * time.Hour,
		SuggestionLimit:     getEnvNum(EnvSuggestionLimit, DefaultSuggestionLimit),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, logger.INFO),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) ConnectMongo() {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		cfg.Log.Fatal("Failed to connect to MongoDB", "error", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		cfg.Log.Fatal("Failed to ping MongoDB", "error", err)
	}

	cfg.Log.Info("Successfully connected to MongoDB")
	cfg.Mongo = client
}

func (cfg *Config) ConnectRedis() {
	if cfg.RedisAddr == "" {
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		cfg.Log.Fatal("Failed to ping Redis", "error", err, "addr", cfg.RedisAddr)
	}

	cfg.Log.Info("Successfully connected to Redis", "addr", cfg.RedisAddr)
	cfg.Redis = client
}

func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errs = append(errs, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}
	if cfg.MongoDatabaseName == "" {
		errs = append(errs, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	if cfg.RateLimitWindow <= 0 {
		errs = append(errs, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RateLimitSegments < 1 {
		errs = append(errs, fmt.Sprintf("RateLimitSegments must be at least 1, got: %d", cfg.RateLimitSegments))
	}
	for name, limit := range map[string]int{
		"ReservationWriteLimit": cfg.ReservationWriteLimit,
		"ReadLimit":             cfg.ReadLimit,
		"AnalyticsLimit":        cfg.AnalyticsLimit,
		"DefaultWriteLimit":     cfg.DefaultWriteLimit,
	} {
		if limit <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got: %d", name, limit))
		}
	}

	if cfg.SuggestionLookahead <= 0 {
		errs = append(errs, fmt.Sprintf("SuggestionLookahead must be positive, got: %s", cfg.SuggestionLookahead))
	}
	if cfg.SuggestionLimit <= 0 {
		errs = append(errs, fmt.Sprintf("SuggestionLimit must be positive, got: %d", cfg.SuggestionLimit))
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

	if len(errs) > 0 {
		msg := "Configuration validation failed:\n"
		for i, e := range errs {
			msg += fmt.Sprintf("  %d. %s\n", i+1, e)
		}
		return fmt.Errorf("%s", msg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
		"kafka_notifications_topic", cfg.KafkaNotificationsTopic,
		"port", cfg.Port,
		"rate_limit_window", cfg.RateLimitWindow,
		"rate_limit_segments", cfg.RateLimitSegments,
		"reservation_write_limit", cfg.ReservationWriteLimit,
		"read_limit", cfg.ReadLimit,
		"analytics_limit", cfg.AnalyticsLimit,
		"default_write_limit", cfg.DefaultWriteLimit,
		"suggestion_lookahead", cfg.SuggestionLookahead,
		"suggestion_limit", cfg.SuggestionLimit,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func (cfg *Config) GracefulShutdown() {
	if cfg.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := cfg.Mongo.Disconnect(ctx); err != nil {
			cfg.Log.Error("Failed to disconnect MongoDB", "error", err)
		}
	}
	if cfg.Redis != nil {
		if err := cfg.Redis.Close(); err != nil {
			cfg.Log.Error("Failed to close Redis client", "error", err)
		}
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

func getEnvList(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
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
