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
	"time"

	"github.com/Domenick1991/skyinventory/config"
	"github.com/Domenick1991/skyinventory/internal/bootstrap"
	"github.com/Domenick1991/skyinventory/internal/cache"
	"github.com/Domenick1991/skyinventory/internal/inventory"
	"github.com/Domenick1991/skyinventory/internal/kafka"
	"github.com/Domenick1991/skyinventory/internal/logger"
	"github.com/joho/godotenv"
	kafkaGo "github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

type cacheInvalidator interface {
	InvalidateFlights(ctx context.Context) error
}

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

	log := logger.New(cfg.Log, os.Stdout).With("component", "worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("worker stopped", "error", err)
		os.Exit(1)
	}
	log.Info("worker stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	store, _, closeStore, err := bootstrap.OpenStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer closeStore()

	locker := inventory.Chain{inventory.NewLocalLocker()}
	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled() {
		redisCache = cache.NewRedisCache(cfg.Redis, cfg.Booking.CacheTTL())
		defer redisCache.Close()
		if cfg.Booking.DistributedLocks {
			locker = append(locker, redisCache.Locker(cfg.Booking.LockTTL()))
		}
	}
	inv := inventory.New(store, inventory.WithLocker(locker), inventory.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)

	if redisCache != nil && cfg.Kafka.Enabled() {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.FlightTopic)
		defer consumer.Close()

		g.Go(func() error {
			err := consumer.Consume(ctx, flightEventHandler(redisCache, log))
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("consume flight events: %w", err)
		})
	}

	g.Go(func() error {
		return sweep(ctx, inv, cfg.Worker, log)
	})

	return g.Wait()
}

// flightEventHandler drops every cached search on any schedule change.
// Undecodable messages are logged and skipped.
func flightEventHandler(c cacheInvalidator, log *slog.Logger) func(context.Context, kafkaGo.Message) error {
	return func(ctx context.Context, msg kafkaGo.Message) error {
		event, err := kafka.DecodeFlightEvent(msg.Value)
		if err != nil {
			log.Warn("decode flight event", "offset", msg.Offset, "error", err)
			return nil
		}
		if err := c.InvalidateFlights(ctx); err != nil {
			log.Warn("invalidate flight cache", "type", event.Type, "flight_id", event.FlightID, "error", err)
			return nil
		}
		log.Debug("flight cache invalidated", "type", event.Type, "flight_id", event.FlightID)
		return nil
	}
}

func sweep(ctx context.Context, inv *inventory.Inventory, cfg config.WorkerConfig, log *slog.Logger) error {
	if cfg.ReconcileSweepMinutes <= 0 {
		log.Info("reconcile sweep disabled")
		return nil
	}

	ticker := time.NewTicker(time.Duration(cfg.ReconcileSweepMinutes) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			drifted, err := inv.ReconcileAll(ctx, cfg.RepairDrift)
			if err != nil {
				log.Error("reconcile sweep", "error", err)
			}
			if len(drifted) > 0 {
				log.Warn("reconcile sweep found drift", "flights", len(drifted), "repaired", cfg.RepairDrift)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
