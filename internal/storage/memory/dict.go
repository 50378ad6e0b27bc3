package memory

import (
	"sync"
	"sync/atomic"

	"golang.org/x/exp/rand"
)

const DefaultShardCount = 1024

// consumer 用于遍历，返回 false 停止
type consumer func(key string, val []byte) bool

type shard struct {
	m     map[string][]byte
	mutex sync.RWMutex
}

// dict 分片并发 map，同时统计 key+value 占用的字节数
type dict struct {
	table      []*shard
	count      atomic.Int64
	bytes      atomic.Int64
	shardCount int
}

func newDict(shardCount int) *dict {
	if shardCount <= 0 {
		shardCount = DefaultShardCount
	}
	shards := make([]*shard, shardCount)
	for i := 0; i < shardCount; i++ {
		shards[i] = &shard{m: make(map[string][]byte)}
	}
	return &dict{
		table:      shards,
		shardCount: shardCount,
	}
}

func (d *dict) get(key string) ([]byte, bool) {
	s := d.getShard(key)
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	val, ok := s.m[key]
	return val, ok
}

// put 返回 1 表示新增，0 表示覆盖
func (d *dict) put(key string, val []byte) int {
	s := d.getShard(key)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if old, ok := s.m[key]; ok {
		s.m[key] = val
		d.bytes.Add(int64(len(val) - len(old)))
		return 0
	}
	s.m[key] = val
	d.count.Add(1)
	d.bytes.Add(int64(len(key) + len(val)))
	return 1
}

// growth 返回把 key 的 value 换成 size 字节后总占用的变化量
func (d *dict) growth(key string, size int) int64 {
	s := d.getShard(key)
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if old, ok := s.m[key]; ok {
		return int64(size - len(old))
	}
	return int64(len(key) + size)
}

func (d *dict) remove(key string) int {
	s := d.getShard(key)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if old, ok := s.m[key]; ok {
		delete(s.m, key)
		d.count.Add(-1)
		d.bytes.Add(-int64(len(key) + len(old)))
		return 1
	}
	return 0
}

func (d *dict) forEach(fn consumer) {
	for _, s := range d.table {
		s.mutex.RLock()
		next := true
		for key, val := range s.m {
			if next = fn(key, val); !next {
				break
			}
		}
		s.mutex.RUnlock()
		if !next {
			return
		}
	}
}

func (d *dict) keys() []string {
	keys := make([]string, 0, d.len())
	d.forEach(func(key string, _ []byte) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// randomKeys 随机选分片，再借助 map 遍历的随机性从分片里取 key，用于驱逐
func (d *dict) randomKeys(limit int) []string {
	size := d.len()
	if limit >= size {
		return d.keys()
	}
	used := make(map[string]struct{}, limit)
	result := make([]string, 0, limit)

	for len(result) < limit {
		s := d.table[rand.Intn(d.shardCount)]

		s.mutex.RLock()
		for key := range s.m {
			if _, ok := used[key]; !ok {
				used[key] = struct{}{}
				result = append(result, key)
				break
			}
		}
		s.mutex.RUnlock()
	}
	return result
}

func (d *dict) len() int {
	return int(d.count.Load())
}

func (d *dict) size() int64 {
	return d.bytes.Load()
}

func (d *dict) getShard(key string) *shard {
	return d.table[fnv32(key)%uint32(d.shardCount)]
}

func fnv32(key string) uint32 {
	const prime32 = 16777619
	hash := uint32(2166136261)
	for i := 0; i < len(key); i++ {
		hash *= prime32
		hash ^= uint32(key[i])
	}
	return hash
}
