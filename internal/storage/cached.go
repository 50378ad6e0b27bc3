package storage

import (
	"errors"
	"fmt"

	"github.com/bluele/gcache"
)

// Cached 在任意 Store 前面加一层 LRU 读缓存。
// 写操作直接落到底层，同时刷新或淘汰缓存项，只缓存命中的值。
type Cached struct {
	Store
	cache gcache.Cache
}

func NewCached(s Store, entries int) *Cached {
	c := &Cached{
		Store: s,
		cache: gcache.New(entries).LRU().Build(),
	}
	// 引擎驱逐的 key 必须同步从缓存里删掉
	if e, ok := s.(Evictor); ok {
		e.OnEvict(func(key []byte) {
			c.cache.Remove(string(key))
		})
	}
	return c
}

func (c *Cached) Put(key, value []byte) error {
	if err := c.Store.Put(key, value); err != nil {
		c.cache.Remove(string(key))
		return err
	}
	c.cache.Set(string(key), CloneBytes(nonNil(value)))
	return nil
}

func (c *Cached) Get(key []byte) ([]byte, bool, error) {
	if v, err := c.cache.Get(string(key)); err == nil {
		return CloneBytes(v.([]byte)), true, nil
	}
	val, found, err := c.Store.Get(key)
	if err != nil || !found {
		return val, found, err
	}
	c.cache.Set(string(key), CloneBytes(val))
	return val, true, nil
}

func (c *Cached) Remove(key []byte) error {
	c.cache.Remove(string(key))
	return c.Store.Remove(key)
}

func (c *Cached) Exists(key []byte) (bool, error) {
	if _, err := c.cache.Get(string(key)); err == nil {
		return true, nil
	} else if !errors.Is(err, gcache.KeyNotFoundError) {
		return false, err
	}
	return c.Store.Exists(key)
}

func (c *Cached) Stats() string {
	s := fmt.Sprintf("cache_hits:%d\r\ncache_misses:%d\r\n", c.cache.HitCount(), c.cache.MissCount())
	return TruncateStats(s + c.Store.Stats())
}

func (c *Cached) Close() error {
	c.cache.Purge()
	return c.Store.Close()
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
