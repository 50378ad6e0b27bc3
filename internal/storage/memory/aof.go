package memory

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"nessdb/internal/logger"
	"nessdb/internal/resp"

	"go.uber.org/zap"
)

const (
	aofFileName      = "nessdb.aof"
	aofBatchSize     = 1024
	aofFlushInterval = time.Second
)

// aofHandler 把写命令以 RESP 数组追加到文件，重启时回放。
// 写入走缓冲区，由后台协程按批量或每秒 flush + fsync。
type aofHandler struct {
	mu          sync.Mutex
	file        *os.File
	writer      *bufio.Writer
	path        string
	bufferCount int
	err         error

	done chan struct{}
	wg   sync.WaitGroup
}

func openAOF(dir string) (*aofHandler, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("aof: create dir: %w", err)
	}

	path := filepath.Join(dir, aofFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("aof: open %s: %w", path, err)
	}

	h := &aofHandler{
		file:   file,
		writer: bufio.NewWriter(file),
		path:   path,
		done:   make(chan struct{}),
	}
	h.wg.Add(1)
	go h.flushLoop()
	return h, nil
}

// load 回放已有记录。文件尾部的半条记录视为崩溃残留，截断后继续追加
func (h *aofHandler) load(replay func(args [][]byte)) (int, error) {
	data, err := os.ReadFile(h.path)
	if err != nil {
		return 0, fmt.Errorf("aof: read %s: %w", h.path, err)
	}

	n, offset := 0, 0
	for offset < len(data) {
		if data[offset] != '*' {
			return n, fmt.Errorf("aof: replay record %d: unexpected byte %q at offset %d", n, data[offset], offset)
		}
		args, consumed, err := resp.Decode(data[offset:])
		if errors.Is(err, resp.ErrIncomplete) {
			logger.Warn("[aof] truncated tail ignored",
				zap.String("path", h.path), zap.Int("records", n), zap.Int("dropped_bytes", len(data)-offset))
			if err := h.file.Truncate(int64(offset)); err != nil {
				return n, fmt.Errorf("aof: truncate %s: %w", h.path, err)
			}
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("aof: replay record %d: %w", n, err)
		}
		offset += consumed
		if len(args) == 0 {
			continue
		}
		replay(args)
		n++
	}
	return n, nil
}

func (h *aofHandler) append(args ...[]byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.err != nil {
		return h.err
	}
	if _, err := h.writer.Write(resp.EncodeArgs(args)); err != nil {
		h.err = fmt.Errorf("aof: write: %w", err)
		return h.err
	}
	h.bufferCount++
	if h.bufferCount >= aofBatchSize {
		return h.flushLocked()
	}
	return nil
}

func (h *aofHandler) flushLoop() {
	defer h.wg.Done()

	ticker := time.NewTicker(aofFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.mu.Lock()
			if h.bufferCount > 0 {
				if err := h.flushLocked(); err != nil {
					logger.Error("[aof] flush failed", zap.Error(err))
				}
			}
			h.mu.Unlock()
		case <-h.done:
			return
		}
	}
}

func (h *aofHandler) flushLocked() error {
	if err := h.writer.Flush(); err != nil {
		h.err = fmt.Errorf("aof: flush: %w", err)
		return h.err
	}
	if err := h.file.Sync(); err != nil {
		h.err = fmt.Errorf("aof: fsync: %w", err)
		return h.err
	}
	h.bufferCount = 0
	return nil
}

func (h *aofHandler) size() int64 {
	info, err := os.Stat(h.path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func (h *aofHandler) close() error {
	close(h.done)
	h.wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()

	flushErr := h.flushLocked()
	if err := h.file.Close(); err != nil {
		return fmt.Errorf("aof: close: %w", err)
	}
	return flushErr
}
