package main

import (
	"context"
	"fmt"

	"chesscoach/internal/config"
	"chesscoach/internal/events"
	"chesscoach/internal/recorder"
	"chesscoach/internal/server/pgstore"
	"chesscoach/internal/server/service"
	"chesscoach/internal/server/storage"

	log "github.com/sirupsen/logrus"
)

// openBackends connects the optional stores named in cfg and fills opts only
// when all of them are up. On error anything already opened is closed again.
// The returned release closes the Postgres and Redis clients; the service
// owns the SQLite store and the publisher.
func openBackends(ctx context.Context, cfg config.Config, opts *service.Options) (_ func(), err error) {
	var (
		closers []func()
		next    = *opts
	)
	defer func() {
		if err != nil {
			closeAll(closers)
		}
	}()

	if cfg.StoragePath != "" {
		store, err := storage.NewStore(cfg.StoragePath, cfg.Dev)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		closers = append(closers, func() { store.Close() })
		if err := store.InitDB(); err != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		next.Store = store
		log.WithField("path", cfg.StoragePath).Info("Persistent storage enabled")
	} else {
		log.Warn("Persistent storage disabled, accounts unavailable (use -storage-path to enable)")
	}

	if cfg.DatabaseURL != "" {
		if err := pgstore.MigrateUp(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("postgres migrations failed: %w", err)
		}
		pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		closers = append(closers, pg.Close)
		next.Attempts = pg
		log.Info("Attempt history stored in Postgres")
	}

	if cfg.RedisURL != "" {
		rdb, err := recorder.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		closers = append(closers, func() { rdb.Close() })
		next.Guard = recorder.NewRedisGuard(rdb, cfg.AttemptTTL)
		log.Info("Attempt idempotency keys stored in Redis")
	}

	if cfg.NATSServers != "" {
		pub, err := events.ConnectNATS(cfg.NATSServers, "coach-server")
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		next.Publisher = pub
	}

	*opts = next
	owned := closers
	if next.Store != nil {
		owned = closers[1:]
	}
	return func() { closeAll(owned) }, nil
}

// closeAll runs closers in reverse opening order
func closeAll(closers []func()) {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}
