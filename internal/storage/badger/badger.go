// Package badger 把 BadgerDB 适配为 storage.Store
package badger

import (
	"errors"
	"fmt"
	"strings"

	"nessdb/internal/logger"
	"nessdb/internal/storage"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/dustin/go-humanize"
)

type Options struct {
	Dir string
	// BlockCacheSize 对应服务端的 buffer pool 大小
	BlockCacheSize int64
	InMemory       bool
}

type Store struct {
	db  *badgerdb.DB
	dir string
}

func Open(opts Options) (*Store, error) {
	bopts := badgerdb.DefaultOptions(opts.Dir)
	if opts.InMemory {
		bopts = badgerdb.DefaultOptions("").WithInMemory(true)
	}
	bopts = bopts.WithLoggingLevel(badgerdb.WARNING)
	bopts = bopts.WithLogger(zapAdapter{})
	if opts.BlockCacheSize > 0 {
		bopts = bopts.WithBlockCacheSize(opts.BlockCacheSize)
	}

	db, err := badgerdb.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", opts.Dir, err)
	}
	return &Store{db: db, dir: opts.Dir}, nil
}

func (s *Store) Put(key, value []byte) error {
	if len(key) == 0 {
		return storage.ErrEmptyKey
	}
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(storage.CloneBytes(key), storage.CloneBytes(value))
	})
	if err != nil {
		return wrap("put", err)
	}
	return nil
}

func (s *Store) Get(key []byte) ([]byte, bool, error) {
	if len(key) == 0 {
		return nil, false, nil
	}
	var val []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap("get", err)
	}
	if val == nil {
		val = []byte{}
	}
	return val, true, nil
}

func (s *Store) Remove(key []byte) error {
	if len(key) == 0 {
		return nil
	}
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return wrap("remove", err)
	}
	return nil
}

func (s *Store) Exists(key []byte) (bool, error) {
	if len(key) == 0 {
		return false, nil
	}
	err := s.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, wrap("exists", err)
	}
	return true, nil
}

func (s *Store) Stats() string {
	lsm, vlog := s.db.Size()

	var b strings.Builder
	fmt.Fprintf(&b, "engine:badger\r\n")
	if s.dir != "" {
		fmt.Fprintf(&b, "dir:%s\r\n", s.dir)
	}
	fmt.Fprintf(&b, "lsm_size:%s\r\n", humanize.IBytes(uint64(lsm)))
	fmt.Fprintf(&b, "vlog_size:%s\r\n", humanize.IBytes(uint64(vlog)))
	if m := s.db.BlockCacheMetrics(); m != nil {
		fmt.Fprintf(&b, "block_cache_hits:%d\r\n", m.Hits())
		fmt.Fprintf(&b, "block_cache_misses:%d\r\n", m.Misses())
	}
	for _, t := range s.db.Tables() {
		fmt.Fprintf(&b, "level%d_table:%d keys:%d size:%s\r\n",
			t.Level, t.ID, t.KeyCount, humanize.IBytes(uint64(t.OnDiskSize)))
	}
	return storage.TruncateStats(b.String())
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return wrap("close", err)
	}
	return nil
}

func wrap(op string, err error) error {
	if errors.Is(err, badgerdb.ErrDBClosed) {
		return fmt.Errorf("badger: %s: %w", op, storage.ErrClosed)
	}
	return fmt.Errorf("badger: %s: %w", op, err)
}

// zapAdapter 把 badger 的日志转到全局 zap logger
type zapAdapter struct{}

func (zapAdapter) Errorf(format string, args ...interface{}) {
	logger.SugarLogger.Errorf("[badger] "+strings.TrimSuffix(format, "\n"), args...)
}

func (zapAdapter) Warningf(format string, args ...interface{}) {
	logger.SugarLogger.Warnf("[badger] "+strings.TrimSuffix(format, "\n"), args...)
}

func (zapAdapter) Infof(format string, args ...interface{}) {
	logger.SugarLogger.Infof("[badger] "+strings.TrimSuffix(format, "\n"), args...)
}

func (zapAdapter) Debugf(format string, args ...interface{}) {
	logger.SugarLogger.Debugf("[badger] "+strings.TrimSuffix(format, "\n"), args...)
}
