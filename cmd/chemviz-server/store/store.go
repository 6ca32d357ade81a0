// Package store builds the configured dataset store.
package store

import (
	"fmt"
	"log/slog"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/cmd/chemviz-server/config"
	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/storage"
)

// New opens the backend named by cfg.Storage. onEvict, if set, is called
// with the IDs each Save evicted. Callers should close the returned store
// when it implements io.Closer.
func New(cfg *config.Config, logger *slog.Logger, onEvict func(ids []string)) (storage.Store, error) {
	log := logger.With("component", "store", "backend", cfg.Storage)

	opts := storage.Options{
		MaxDatasets: cfg.MaxDatasets,
		OnEvict: func(ids []string) {
			log.Info("datasets evicted", "ids", ids, "max_datasets", cfg.MaxDatasets)
			if onEvict != nil {
				onEvict(ids)
			}
		},
	}

	switch cfg.Storage {
	case "memory":
		log.Info("using in-memory storage", "max_datasets", cfg.MaxDatasets)
		return storage.NewMemoryStore(opts), nil

	case "redis":
		s, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts)
		if err != nil {
			return nil, fmt.Errorf("redis storage: %w", err)
		}
		log.Info("using redis storage", "addr", cfg.RedisAddr, "db", cfg.RedisDB, "max_datasets", cfg.MaxDatasets)
		return s, nil

	case "badger":
		s, err := storage.OpenBadgerStore(cfg.BadgerDir, opts, logger)
		if err != nil {
			return nil, fmt.Errorf("badger storage: %w", err)
		}
		log.Info("using badger storage", "dir", cfg.BadgerDir, "max_datasets", cfg.MaxDatasets)
		return s, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}
