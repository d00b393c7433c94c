package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/resortbooking/api"
	"github.com/Domenick1991/resortbooking/config"
	"github.com/Domenick1991/resortbooking/internal/bootstrap"
	"github.com/Domenick1991/resortbooking/internal/cache"
	"github.com/Domenick1991/resortbooking/internal/database"
	"github.com/Domenick1991/resortbooking/internal/kafka"
	"github.com/Domenick1991/resortbooking/internal/logger"
	"github.com/Domenick1991/resortbooking/internal/metrics"
	"github.com/Domenick1991/resortbooking/internal/repository"
	"github.com/Domenick1991/resortbooking/internal/repository/memory"
	"github.com/Domenick1991/resortbooking/internal/service/dashboard"
	"github.com/Domenick1991/resortbooking/internal/service/events"
	"github.com/Domenick1991/resortbooking/internal/service/stays"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type storage struct {
	rooms  repository.RoomRepository
	events repository.EventRepository
	db     api.Pinger
	close  func()
}

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log, os.Stdout)

	if err := run(cfg, log); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Booking.Location()
	if err != nil {
		return fmt.Errorf("booking timezone: %w", err)
	}

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	stayOpts := []stays.Option{
		stays.WithMetrics(m),
		stays.WithLocation(loc),
		stays.WithListLimit(cfg.Booking.MyReservationsLimit),
	}
	eventOpts := []events.Option{
		events.WithMetrics(m),
		events.WithListLimit(cfg.Booking.MySignupsLimit),
	}

	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.AvailabilityTTL(), cfg.Booking.EventsTTL())
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn("redis unreachable, reads fall back to storage", "addr", cfg.Redis.Addr, "error", err)
		}
		stayOpts = append(stayOpts, stays.WithCache(redisCache))
		eventOpts = append(eventOpts, events.WithCache(redisCache))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer producer.Close()
		if err := producer.CheckConnection(ctx); err != nil {
			log.Warn("kafka unreachable, booking events may be lost", "brokers", cfg.Kafka.Brokers, "error", err)
		}
		stayOpts = append(stayOpts,
			stays.WithProducer(producer, cfg.Kafka.BookingTopic),
			stays.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
			stays.WithPublishTimeout(cfg.Kafka.PublishTimeout()),
		)
		eventOpts = append(eventOpts,
			events.WithProducer(producer, cfg.Kafka.BookingTopic),
			events.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
			events.WithPublishTimeout(cfg.Kafka.PublishTimeout()),
		)
	}

	stayService := stays.NewStayService(store.rooms, log, stayOpts...)
	eventService := events.NewEventService(store.events, log, eventOpts...)
	dashboardService := dashboard.NewDashboardService(store.rooms, store.events, log,
		dashboard.WithLimits(cfg.Booking.DashboardReservationsMax, cfg.Booking.MySignupsLimit),
	)

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(log, m, []byte(cfg.Auth.JWTSecret), api.Handlers{
		Rooms:  api.NewRoomHandler(stayService),
		Events: api.NewEventHandler(eventService),
		User:   api.NewUserHandler(dashboardService),
		Health: api.NewHealthHandler(store.db),
	})

	return bootstrap.Run(ctx, cfg, log, router, reg)
}

func openStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (*storage, error) {
	if cfg.Storage.Driver == "memory" {
		store := memory.NewStore()
		if cfg.Storage.SeedPath != "" {
			seed, err := memory.LoadSeed(cfg.Storage.SeedPath)
			if err != nil {
				return nil, err
			}
			if err := store.Apply(seed); err != nil {
				return nil, err
			}
			log.Info("memory store seeded", "path", cfg.Storage.SeedPath, "rooms", len(seed.Rooms), "events", len(seed.Events))
		}
		return &storage{rooms: store, events: store, close: func() {}}, nil
	}

	pool, err := database.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, pool, log); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return &storage{
		rooms:  repository.NewRoomRepository(pool, cfg.Database.LockTimeout()),
		events: repository.NewEventRepository(pool, cfg.Database.LockTimeout()),
		db:     pool,
		close:  pool.Close,
	}, nil
}
