// Package leveldb 把 goleveldb 适配为 storage.Store
package leveldb

import (
	"errors"
	"fmt"
	"strings"

	"nessdb/internal/storage"

	"github.com/dustin/go-humanize"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	lvlstorage "github.com/syndtr/goleveldb/leveldb/storage"
)

// goleveldb 自身的最小块缓存
const minBlockCache = 8 * opt.MiB

type Options struct {
	Dir string
	// BlockCacheSize 对应服务端的 buffer pool 大小
	BlockCacheSize int64
	InMemory       bool
}

type Store struct {
	db  *leveldb.DB
	dir string
	cap int
}

func Open(opts Options) (*Store, error) {
	capacity := int(opts.BlockCacheSize)
	if capacity < minBlockCache {
		capacity = minBlockCache
	}
	lopts := &opt.Options{
		BlockCacheCapacity: capacity,
	}

	var (
		db  *leveldb.DB
		err error
	)
	if opts.InMemory {
		db, err = leveldb.Open(lvlstorage.NewMemStorage(), lopts)
	} else {
		db, err = leveldb.OpenFile(opts.Dir, lopts)
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb: open %s: %w", opts.Dir, err)
	}
	return &Store{db: db, dir: opts.Dir, cap: capacity}, nil
}

func (s *Store) Put(key, value []byte) error {
	if len(key) == 0 {
		return storage.ErrEmptyKey
	}
	// goleveldb 在写入时会拷贝 key 和 value
	if err := s.db.Put(key, value, nil); err != nil {
		return wrap("put", err)
	}
	return nil
}

func (s *Store) Get(key []byte) ([]byte, bool, error) {
	val, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
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
	if err := s.db.Delete(key, nil); err != nil {
		return wrap("remove", err)
	}
	return nil
}

func (s *Store) Exists(key []byte) (bool, error) {
	ok, err := s.db.Has(key, nil)
	if err != nil {
		return false, wrap("exists", err)
	}
	return ok, nil
}

func (s *Store) Stats() string {
	var b strings.Builder
	fmt.Fprintf(&b, "engine:leveldb\r\n")
	if s.dir != "" {
		fmt.Fprintf(&b, "dir:%s\r\n", s.dir)
	}
	fmt.Fprintf(&b, "block_cache_capacity:%s\r\n", humanize.IBytes(uint64(s.cap)))

	var st leveldb.DBStats
	if err := s.db.Stats(&st); err == nil {
		fmt.Fprintf(&b, "alive_snapshots:%d\r\n", st.AliveSnapshots)
		fmt.Fprintf(&b, "alive_iterators:%d\r\n", st.AliveIterators)
		fmt.Fprintf(&b, "block_cache_size:%s\r\n", humanize.IBytes(uint64(st.BlockCacheSize)))
	}
	if prop, err := s.db.GetProperty("leveldb.stats"); err == nil {
		b.WriteString(prop)
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
	if errors.Is(err, leveldb.ErrClosed) {
		return fmt.Errorf("leveldb: %s: %w", op, storage.ErrClosed)
	}
	return fmt.Errorf("leveldb: %s: %w", op, err)
}
