// Package engine 根据配置打开具体的存储引擎
package engine

import (
	"fmt"

	"nessdb/internal/config"
	"nessdb/internal/logger"
	"nessdb/internal/storage"
	"nessdb/internal/storage/badger"
	"nessdb/internal/storage/leveldb"
	"nessdb/internal/storage/memory"

	"go.uber.org/zap"
)

func Open(cfg config.StorageConfig) (storage.Store, error) {
	var (
		store storage.Store
		err   error
	)

	switch cfg.Engine {
	case config.EngineMemory, "":
		opts := memory.Options{MaxBytes: cfg.BufferPoolSize.Uint64()}
		if cfg.Eviction == config.EvictionRandom {
			opts.Policy = memory.EvictRandom
		}
		if cfg.AppendLog {
			opts.Dir = cfg.Dir
		}
		store, err = memory.Open(opts)
	case config.EngineBadger:
		store, err = badger.Open(badger.Options{
			Dir:            cfg.Dir,
			BlockCacheSize: cfg.BufferPoolSize.Int64(),
		})
	case config.EngineLevelDB:
		store, err = leveldb.Open(leveldb.Options{
			Dir:            cfg.Dir,
			BlockCacheSize: cfg.BufferPoolSize.Int64(),
		})
	default:
		return nil, fmt.Errorf("unknown storage engine %q", cfg.Engine)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheEntries > 0 {
		store = storage.NewCached(store, cfg.CacheEntries)
	}

	logger.Info("[storage] engine opened",
		zap.String("engine", cfg.Engine),
		zap.String("dir", cfg.Dir),
		zap.String("buffer_pool", cfg.BufferPoolSize.String()),
		zap.Int("cache_entries", cfg.CacheEntries))
	return store, nil
}
