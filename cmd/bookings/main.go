package main

import (
	"net/http"

	bookinghandler "slotter/internal/bookings/handler"
	bookingrepo "slotter/internal/bookings/repository"
	bookingservice "slotter/internal/bookings/service"
	bookingvalidator "slotter/internal/bookings/validator"
	slothandler "slotter/internal/slots/handler"
	slotrepo "slotter/internal/slots/repository"
	slotservice "slotter/internal/slots/service"
	slotvalidator "slotter/internal/slots/validator"
	workshoprepo "slotter/internal/workshops/repository"
	"slotter/pkg/app"
	"slotter/pkg/config"
	"slotter/pkg/kafka"
	"slotter/pkg/middleware"
	"slotter/pkg/ratelimit"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)

	cfg.ConnectMongo()
	cfg.ConnectRedis()

	cfg.Log.Info("Starting bookings service")

	limiter, err := buildLimiter(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to build rate limiter", "error", err)
	}
	rateLimit := middleware.NewRateLimit(limiter, cfg.Log)

	notifier, producer := buildNotifier(cfg)

	slotRepo := slotrepo.NewMongoSlotRepository(cfg)
	workshopRepo := workshoprepo.NewMongoWorkshopRepository(cfg)
	serviceRepo := workshoprepo.NewMongoServiceRepository(cfg)

	slotSvc := slotservice.NewSlotService(
		slotRepo,
		workshopRepo,
		slotvalidator.NewSlotValidator(cfg.Log),
		cfg,
	)
	bookingSvc := bookingservice.NewBookingService(
		bookingrepo.NewMongoBookingRepository(cfg),
		slotRepo,
		serviceRepo,
		workshopRepo,
		bookingvalidator.NewBookingValidator(cfg.Log),
		notifier,
		cfg,
	)
	advisor := bookingservice.NewAdvisorService(slotRepo, cfg)

	serverApp := app.NewApplication()
	serverApp.SetApp(cfg, limiter,
		slothandler.NewSlotHandler(slotSvc, advisor, rateLimit, cfg.Log),
		bookinghandler.NewBookingHandler(bookingSvc, rateLimit, cfg.Log),
	)
	if producer != nil {
		serverApp.OnShutdown(func() {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka producer", "error", err)
			}
		})
	}
	serverApp.Run()
}

// buildLimiter binds every rate-limited route to its policy tier. The
// table is assembled once at startup; an unknown (method, route) pair at
// request time simply passes through unlimited.
func buildLimiter(cfg *config.Config) (*ratelimit.Limiter, error) {
	reservationWrite := ratelimit.Policy{
		Name:     "reservation-write",
		Limit:    cfg.ReservationWriteLimit,
		Window:   cfg.RateLimitWindow,
		Segments: cfg.RateLimitSegments,
	}
	read := ratelimit.Policy{
		Name:     "read",
		Limit:    cfg.ReadLimit,
		Window:   cfg.RateLimitWindow,
		Segments: cfg.RateLimitSegments,
	}
	analytics := ratelimit.Policy{
		Name:     "analytics",
		Limit:    cfg.AnalyticsLimit,
		Window:   cfg.RateLimitWindow,
		Segments: cfg.RateLimitSegments,
	}
	defaultWrite := ratelimit.Policy{
		Name:     "default-write",
		Limit:    cfg.DefaultWriteLimit,
		Window:   cfg.RateLimitWindow,
		Segments: cfg.RateLimitSegments,
	}

	registry := ratelimit.NewRegistry()
	bindings := []struct {
		method  string
		pattern string
		policy  ratelimit.Policy
	}{
		{http.MethodPost, bookinghandler.RouteBookings, reservationWrite},
		{http.MethodGet, bookinghandler.RouteBookingByID, read},
		{http.MethodPatch, bookinghandler.RouteBookingStatus, defaultWrite},
		{http.MethodGet, bookinghandler.RouteWorkshopBookingStats, analytics},
		{http.MethodPost, slothandler.RouteSlots, defaultWrite},
		{http.MethodDelete, slothandler.RouteSlotByID, defaultWrite},
		{http.MethodGet, slothandler.RouteSlots, read},
		{http.MethodGet, slothandler.RouteSlotSuggestions, read},
	}
	for _, b := range bindings {
		if err := registry.Register(b.method, b.pattern, b.policy); err != nil {
			return nil, err
		}
	}

	var store ratelimit.Store
	if cfg.Redis != nil {
		store = ratelimit.NewRedisStore(cfg.Redis, "ratelimit")
		cfg.Log.Info("Rate limiting backed by Redis", "addr", cfg.RedisAddr)
	} else {
		store = ratelimit.NewMemoryStore(10 * cfg.RateLimitWindow)
		cfg.Log.Info("Rate limiting backed by in-process memory")
	}

	return ratelimit.NewLimiter(registry, store), nil
}

func buildNotifier(cfg *config.Config) (bookingservice.Notifier, *kafka.Producer) {
	if len(cfg.KafkaBrokers) == 0 {
		cfg.Log.Info("Kafka brokers not configured, reservation notifications disabled")
		return bookingservice.NewNoopNotifier(), nil
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaNotificationsTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	cfg.Log.Info("Reservation notifications enabled",
		"topic", cfg.KafkaNotificationsTopic,
		"brokers", cfg.KafkaBrokers,
	)
	return bookingservice.NewKafkaNotifier(producer, cfg.Log), producer
}
