package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Domenick1991/skyinventory/config"
	"github.com/Domenick1991/skyinventory/internal/repository"
	"github.com/Domenick1991/skyinventory/internal/repository/memory"
)

// OpenStore builds the configured store. The returned close func is never nil.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (repository.Store, HealthChecker, func(), error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn("using in-memory store; data is lost on exit")
		return memory.NewStore(), nil, func() {}, nil
	}

	pool, err := repository.NewPool(ctx, cfg)
	if err != nil {
		return nil, nil, func() {}, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Migrate {
		if err := repository.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, func() {}, err
		}
		log.Info("schema migrated")
	}
	return repository.NewStore(pool), pool.Ping, pool.Close, nil
}
