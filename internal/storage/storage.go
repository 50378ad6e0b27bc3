// Package storage 定义服务端依赖的键值存储接口。
//
// 所有方法都在事件循环协程里同步调用，执行期间会阻塞其它连接。
// Put 会拷贝 key 和 value；Get 返回的 value 归调用方所有。
package storage

import (
	"errors"
)

// MaxStatsSize 是 Stats 文本的上限
const MaxStatsSize = 10240

var (
	ErrClosed   = errors.New("store closed")
	ErrEmptyKey = errors.New("empty key")
	// ErrNoSpace 表示写入会超出内存预算，已有数据保持不变
	ErrNoSpace = errors.New("buffer pool exhausted")
)

type Store interface {
	// Put 插入或覆盖
	Put(key, value []byte) error

	// Get 未找到时 found 为 false 且 value 为 nil
	Get(key []byte) (value []byte, found bool, err error)

	// Remove 删除不存在的 key 不算错误
	Remove(key []byte) error

	Exists(key []byte) (bool, error)

	// Stats 返回可读的状态文本，长度不超过 MaxStatsSize
	Stats() string

	Close() error
}

// Evictor 由会自行丢弃 key 的引擎实现，回调在 key 被丢弃后调用
type Evictor interface {
	OnEvict(fn func(key []byte))
}

// TruncateStats 把状态文本截断到 MaxStatsSize
func TruncateStats(s string) string {
	if len(s) <= MaxStatsSize {
		return s
	}
	return s[:MaxStatsSize]
}

// CloneBytes 返回 b 的独立拷贝，nil 保持为 nil
func CloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}
