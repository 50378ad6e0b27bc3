// Package memory 是基于分片 map 的内存存储引擎，可选追加日志持久化。
package memory

import (
	"errors"
	"fmt"
	"strings"

	"nessdb/internal/logger"
	"nessdb/internal/storage"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// 每次驱逐采样的 key 数
const evictBatch = 16

// Policy 决定写入超出 MaxBytes 时的行为
type Policy int

const (
	// NoEviction 拒绝写入并返回 storage.ErrNoSpace
	NoEviction Policy = iota
	// EvictRandom 随机删除其它 key 腾出空间
	EvictRandom
)

func (p Policy) String() string {
	if p == EvictRandom {
		return "allkeys-random"
	}
	return "noeviction"
}

type Options struct {
	// MaxBytes 是 key+value 的总字节上限，0 表示不限制
	MaxBytes uint64
	Policy   Policy
	// Dir 非空时开启追加日志
	Dir        string
	ShardCount int
}

type Store struct {
	data    *dict
	aof     *aofHandler
	opts    Options
	closed  bool
	onEvict func(key []byte)

	evicted  uint64
	rejected uint64
}

func Open(opts Options) (*Store, error) {
	s := &Store{
		data: newDict(opts.ShardCount),
		opts: opts,
	}
	if opts.Dir == "" {
		return s, nil
	}

	aof, err := openAOF(opts.Dir)
	if err != nil {
		return nil, err
	}
	n, err := aof.load(s.replay)
	if err != nil {
		aof.close()
		return nil, err
	}
	s.aof = aof
	logger.Info("[memory] append log loaded",
		zap.String("dir", opts.Dir), zap.Int("records", n), zap.Int("keys", s.data.len()))
	return s, nil
}

func (s *Store) replay(args [][]byte) {
	if len(args) == 0 {
		return
	}
	switch strings.ToUpper(string(args[0])) {
	case "SET":
		if len(args) == 3 {
			s.data.put(string(args[1]), args[2])
		}
	case "DEL":
		for _, key := range args[1:] {
			s.data.remove(string(key))
		}
	default:
		logger.Warn("[memory] unknown record in append log", zap.ByteString("cmd", args[0]))
	}
}

func (s *Store) Put(key, value []byte) error {
	if s.closed {
		return storage.ErrClosed
	}
	if len(key) == 0 {
		return storage.ErrEmptyKey
	}
	val := storage.CloneBytes(value)
	if val == nil {
		val = []byte{}
	}
	k := string(key)
	if err := s.reserve(k, len(val)); err != nil {
		if errors.Is(err, storage.ErrNoSpace) {
			s.rejected++
		}
		return err
	}
	if s.aof != nil {
		if err := s.aof.append([]byte("SET"), key, val); err != nil {
			return err
		}
	}
	s.data.put(k, val)
	return nil
}

func (s *Store) Get(key []byte) ([]byte, bool, error) {
	if s.closed {
		return nil, false, storage.ErrClosed
	}
	val, ok := s.data.get(string(key))
	if !ok {
		return nil, false, nil
	}
	return storage.CloneBytes(val), true, nil
}

func (s *Store) Remove(key []byte) error {
	if s.closed {
		return storage.ErrClosed
	}
	k := string(key)
	if _, ok := s.data.get(k); !ok {
		return nil
	}
	if s.aof != nil {
		if err := s.aof.append([]byte("DEL"), key); err != nil {
			return err
		}
	}
	s.data.remove(k)
	return nil
}

func (s *Store) Exists(key []byte) (bool, error) {
	if s.closed {
		return false, storage.ErrClosed
	}
	_, ok := s.data.get(string(key))
	return ok, nil
}

// OnEvict 注册驱逐回调，只在 EvictRandom 策略下触发
func (s *Store) OnEvict(fn func(key []byte)) {
	s.onEvict = fn
}

// reserve 确认 key 写入 size 字节的 value 后不会超出 MaxBytes。
// NoEviction 下超出即返回 ErrNoSpace；EvictRandom 下随机删除其它 key，
// 单条记录本身超出预算时两种策略都拒绝。
func (s *Store) reserve(key string, size int) error {
	if s.opts.MaxBytes == 0 {
		return nil
	}
	limit := int64(s.opts.MaxBytes)
	need := s.data.growth(key, size)
	if need <= 0 || s.data.size()+need <= limit {
		return nil
	}
	if s.opts.Policy != EvictRandom || int64(len(key)+size) > limit {
		return storage.ErrNoSpace
	}

	for s.data.size()+need > limit {
		dropped := false
		for _, victim := range s.data.randomKeys(evictBatch) {
			if victim == key {
				continue
			}
			if err := s.drop(victim); err != nil {
				return err
			}
			dropped = true
			if s.data.size()+need <= limit {
				return nil
			}
		}
		if !dropped {
			return storage.ErrNoSpace
		}
	}
	return nil
}

func (s *Store) drop(key string) error {
	if s.aof != nil {
		if err := s.aof.append([]byte("DEL"), []byte(key)); err != nil {
			return err
		}
	}
	s.data.remove(key)
	s.evicted++
	if s.onEvict != nil {
		s.onEvict([]byte(key))
	}
	return nil
}

func (s *Store) Stats() string {
	var b strings.Builder
	fmt.Fprintf(&b, "engine:memory\r\n")
	fmt.Fprintf(&b, "keys:%d\r\n", s.data.len())
	fmt.Fprintf(&b, "used_bytes:%d\r\n", s.data.size())
	fmt.Fprintf(&b, "used_human:%s\r\n", humanize.IBytes(uint64(s.data.size())))
	if s.opts.MaxBytes > 0 {
		fmt.Fprintf(&b, "max_bytes:%d\r\n", s.opts.MaxBytes)
		fmt.Fprintf(&b, "max_human:%s\r\n", humanize.IBytes(s.opts.MaxBytes))
	}
	fmt.Fprintf(&b, "eviction_policy:%s\r\n", s.opts.Policy)
	fmt.Fprintf(&b, "evicted_keys:%d\r\n", s.evicted)
	fmt.Fprintf(&b, "rejected_writes:%d\r\n", s.rejected)
	if s.aof != nil {
		fmt.Fprintf(&b, "append_log:%s\r\n", s.aof.path)
		fmt.Fprintf(&b, "append_log_size:%s\r\n", humanize.IBytes(uint64(s.aof.size())))
	}
	return storage.TruncateStats(b.String())
}

func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.aof != nil {
		return s.aof.close()
	}
	return nil
}
