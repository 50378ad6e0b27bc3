// Package server 是 nessdb 的网络前端: 单个 gnet 事件循环处理所有连接。
//
// 所有回调都在同一个事件循环 goroutine 中执行，会话状态不需要加锁；
// 存储调用同样在事件循环中同步执行，执行期间其它连接都会被阻塞。
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"nessdb/internal/command"
	"nessdb/internal/config"
	"nessdb/internal/crash"
	"nessdb/internal/logger"
	"nessdb/internal/metrics"
	"nessdb/internal/storage"

	"github.com/panjf2000/gnet"
	"go.uber.org/zap"
)

// ErrLoopExited 表示事件循环在没有收到关闭请求的情况下返回
var ErrLoopExited = errors.New("event loop exited unexpectedly")

type Server struct {
	gnet.EventServer

	cfg        config.ServerConfig
	protoAddr  string
	dispatcher *command.Dispatcher
	metrics    *metrics.Collector
	log        *zap.Logger

	clients atomic.Int64
	addr    atomic.Value // net.Addr
	started time.Time

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	stopping  atomic.Bool
}

type Option func(*Server)

func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) {
		s.metrics = c
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

func New(cfg config.ServerConfig, store storage.Store, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		protoAddr: "tcp://" + cfg.Addr(),
		log:       logger.Logger,
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dispatcher = command.NewDispatcher(store, command.WithServerInfo(s.info))
	return s
}

// ListenAndServe 阻塞运行事件循环。
// 通过 Shutdown 关闭时返回 nil，事件循环自行退出时返回 ErrLoopExited。
func (s *Server) ListenAndServe() error {
	defer close(s.done)
	s.started = time.Now()

	opts := []gnet.Option{
		gnet.WithMulticore(false),
		gnet.WithTicker(true),
		gnet.WithReadBufferCap(s.cfg.ReadBufferSize.Int()),
		gnet.WithLogger(s.log.Sugar()),
	}
	if s.cfg.TCPKeepAlive > 0 {
		opts = append(opts, gnet.WithTCPKeepAlive(s.cfg.TCPKeepAlive))
	}

	if err := gnet.Serve(s, s.protoAddr, opts...); err != nil {
		return fmt.Errorf("server: serve %s: %w", s.protoAddr, err)
	}
	if !s.stopping.Load() {
		return ErrLoopExited
	}
	return nil
}

// Shutdown 请求事件循环退出并等待 ListenAndServe 返回
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopping.Store(true)

	select {
	case <-s.ready:
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	// Tick 也可能先一步返回 gnet.Shutdown，此时 Stop 的错误可以忽略
	stopErr := gnet.Stop(ctx, s.protoAddr)

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		if stopErr != nil {
			return fmt.Errorf("server: stop: %w", stopErr)
		}
		return ctx.Err()
	}
}

// Ready 在监听建立后关闭
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr 返回实际监听地址，监听建立前为 nil
func (s *Server) Addr() net.Addr {
	if a, ok := s.addr.Load().(net.Addr); ok {
		return a
	}
	return nil
}

// Clients 返回当前连接数，可以在任意 goroutine 调用
func (s *Server) Clients() int64 {
	return s.clients.Load()
}

func (s *Server) info() string {
	var b strings.Builder
	fmt.Fprintf(&b, "reactor:gnet\r\n")
	fmt.Fprintf(&b, "tcp_addr:%s\r\n", s.cfg.Addr())
	fmt.Fprintf(&b, "connected_clients:%d\r\n", s.Clients())
	if !s.started.IsZero() {
		fmt.Fprintf(&b, "uptime_in_seconds:%d\r\n", int64(time.Since(s.started).Seconds()))
	}
	return b.String()
}

func (s *Server) OnInitComplete(srv gnet.Server) (action gnet.Action) {
	defer crash.Protect()()

	s.addr.Store(srv.Addr)
	s.readyOnce.Do(func() { close(s.ready) })
	s.log.Info("[server] listening", zap.String("addr", srv.Addr.String()),
		zap.String("read_buffer", s.cfg.ReadBufferSize.String()))
	return gnet.None
}

func (s *Server) OnShutdown(_ gnet.Server) {
	s.log.Info("[server] event loop stopped", zap.Int64("clients", s.Clients()))
}

// OnOpened 每接受一个连接调用一次
func (s *Server) OnOpened(c gnet.Conn) (out []byte, action gnet.Action) {
	defer crash.Protect()()

	sess := newSession(c.RemoteAddr())
	c.SetContext(sess)
	n := s.clients.Add(1)
	s.metrics.ConnectionOpened()

	s.log.Debug("[server] accept connect success",
		zap.String("session", sess.id.String()),
		zap.String("remote", sess.remote),
		zap.Int64("clients", n))
	return nil, gnet.None
}

// OnClosed 在对端关闭或读写出错后调用，每个会话只减一次计数
func (s *Server) OnClosed(c gnet.Conn, err error) (action gnet.Action) {
	defer crash.Protect()()

	sess, ok := c.Context().(*session)
	if !ok || sess.closed {
		return gnet.None
	}
	sess.closed = true
	n := s.clients.Add(-1)
	s.metrics.ConnectionClosed()

	fields := []zap.Field{
		zap.String("session", sess.id.String()),
		zap.String("remote", sess.remote),
		zap.Int64("clients", n),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	s.log.Debug("[server] connection closed", fields...)
	return gnet.None
}

// React 处理一次可读事件，frame 只在本次调用内有效
func (s *Server) React(frame []byte, c gnet.Conn) (out []byte, action gnet.Action) {
	defer crash.Protect()()

	sess, ok := c.Context().(*session)
	if !ok {
		return nil, gnet.Close
	}
	s.metrics.ObserveRead(len(frame))

	out, closeConn := s.feed(sess, frame)
	if closeConn {
		return out, gnet.Close
	}
	return out, gnet.None
}

// Tick 是维护定时器
func (s *Server) Tick() (delay time.Duration, action gnet.Action) {
	defer crash.Protect()()

	n := s.Clients()
	s.metrics.SetConnections(n)
	s.log.Info(fmt.Sprintf("[server] %d clients connected", n))

	if s.stopping.Load() {
		return s.cfg.MaintenanceInterval, gnet.Shutdown
	}
	return s.cfg.MaintenanceInterval, gnet.None
}
