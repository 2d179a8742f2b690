package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/skyinventory/config"
	"github.com/Domenick1991/skyinventory/internal/auth"
	"github.com/Domenick1991/skyinventory/internal/bootstrap"
	"github.com/Domenick1991/skyinventory/internal/cache"
	"github.com/Domenick1991/skyinventory/internal/inventory"
	"github.com/Domenick1991/skyinventory/internal/kafka"
	"github.com/Domenick1991/skyinventory/internal/logger"
	"github.com/Domenick1991/skyinventory/internal/metrics"
	"github.com/Domenick1991/skyinventory/internal/service/booking"
	"github.com/Domenick1991/skyinventory/internal/service/flights"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log, os.Stdout)
	metrics.Register()
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	store, health, closeStore, err := bootstrap.OpenStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer closeStore()

	policy, err := flights.ParseDeletePolicy(cfg.Booking.DeletePolicy)
	if err != nil {
		return err
	}

	locker := inventory.Chain{inventory.NewLocalLocker()}
	flightOpts := []flights.FlightServiceOption{flights.WithLogger(log), flights.WithDeletePolicy(policy)}
	bookingOpts := []booking.BookingServiceOption{booking.WithLogger(log), booking.WithTimeout(cfg.Booking.Timeout())}

	if cfg.Redis.Enabled() {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.CacheTTL())
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn("redis unreachable, cache lookups will fall through", "error", err)
		}

		flightOpts = append(flightOpts, flights.WithCache(redisCache))
		bookingOpts = append(bookingOpts, booking.WithCache(redisCache))
		if cfg.Booking.DistributedLocks {
			locker = append(locker, redisCache.Locker(cfg.Booking.LockTTL()))
		}
	}

	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer producer.Close()
		if err := producer.CheckConnection(ctx); err != nil {
			log.Warn("kafka unreachable, events will be dropped", "error", err)
		}

		flightOpts = append(flightOpts, flights.WithProducer(producer, cfg.Kafka.FlightTopic))
		bookingOpts = append(bookingOpts, booking.WithProducer(producer, cfg.Kafka.TicketTopic))
	}

	inv := inventory.New(store, inventory.WithLocker(locker), inventory.WithLogger(log))
	flightService := flights.NewFlightService(store, inv, flightOpts...)
	bookingService := booking.NewBookingService(store, inv, bookingOpts...)

	router := bootstrap.NewRouter(log, auth.NewGate(cfg.Auth), flightService, bookingService, health)
	return bootstrap.Run(ctx, cfg, log, router)
}
