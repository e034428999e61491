// Package backend opens the configured collection.
package backend

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/livetodo/internal/config"
	"github.com/idilsaglam/livetodo/internal/store"
	"github.com/idilsaglam/livetodo/internal/store/jsonstore"
	"github.com/idilsaglam/livetodo/internal/store/memstore"
	"github.com/idilsaglam/livetodo/internal/store/pgstore"
	"github.com/idilsaglam/livetodo/internal/store/redisstore"
	"github.com/idilsaglam/livetodo/internal/store/sqlitestore"
)

// Open returns the collection named by cfg.Backend. The caller closes it.
func Open(ctx context.Context, cfg config.Config, logger *log.Logger) (store.Collection, error) {
	collection := cfg.Backend.Collection
	switch cfg.Backend.Driver {
	case config.DriverMemory:
		return memstore.New(logger), nil

	case config.DriverSQLite:
		s, err := sqlitestore.Open(ctx, sqlitestore.Options{
			Path:         cfg.SQLite.Path,
			Collection:   collection,
			PollInterval: cfg.SQLite.PollInterval,
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.DriverJSON:
		s, err := jsonstore.Open(cfg.JSON.Path, logger)
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.DriverPostgres:
		s, err := pgstore.Open(ctx, pgstore.Options{
			DSN:        cfg.Postgres.DSN,
			Collection: collection,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.DriverRedis:
		s, err := redisstore.Open(ctx, redisstore.Options{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			URL:        cfg.Redis.URL,
			Collection: collection,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown backend driver %q", cfg.Backend.Driver)
}
