// Package setup builds the store and lock a kitchen process runs against
// from configuration. Both the service and kitchenctl use it.
package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/repository"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/config"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/database"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/lock"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Store is an opened store together with whatever must be released on exit.
type Store struct {
	repository.Store
	closers []func() error
}

// Close releases the store's resources in reverse order of acquisition.
func (s *Store) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenStore opens the store selected by cfg.Store.Driver.
func OpenStore(ctx context.Context, cfg *config.Config, layout repository.Layout, loc *time.Location, log *logger.Logger) (*Store, error) {
	switch cfg.Store.Driver {
	case "", config.StoreMemory:
		log.Warn().Msg("using in-memory store, nothing is persisted")
		return &Store{Store: repository.NewMemoryStore(loc)}, nil

	case config.StorePostgres:
		db, err := database.New(&cfg.Database, log)
		if err != nil {
			return nil, err
		}
		if cfg.Store.AutoMigrate {
			if err := repository.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to migrate: %w", err)
			}
		}
		log.Info().Str("database", cfg.Database.Database).Msg("using postgres store")
		return &Store{Store: repository.NewPostgresStore(db, loc), closers: []func() error{db.Close}}, nil

	case config.StoreWorkbook:
		wb, err := repository.OpenWorkbook(cfg.Store.WorkbookPath, layout, loc)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.Store.WorkbookPath).Msg("using workbook store")
		return &Store{Store: wb, closers: []func() error{wb.Close}}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// NewLocker returns a Redis lock when Redis is enabled, otherwise an
// in-process one. The returned close func releases the Redis client.
func NewLocker(ctx context.Context, cfg *config.RedisConfig, log *logger.Logger) (lock.Locker, func() error, error) {
	if !cfg.Enabled {
		return lock.NewLocal(), func() error { return nil }, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Str("addr", cfg.Addr).Str("key", cfg.LockKey).Msg("using redis lock")
	return lock.NewRedis(rdb, cfg.LockKey, cfg.LockTTL, cfg.LockRetry, log), rdb.Close, nil
}
