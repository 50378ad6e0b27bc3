package server

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"nessdb/internal/config"
	"nessdb/internal/metrics"
	"nessdb/internal/resp"
	"nessdb/pkg/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

// startServer 启动一个真实的事件循环，测试结束时关闭
func startServer(t *testing.T, opts ...Option) (*Server, string) {
	t.Helper()
	cfg := config.Default().Server
	cfg.Port = freePort(t)
	cfg.MaintenanceInterval = 20 * time.Millisecond

	s := newTestServer(t, cfg)
	for _, opt := range opts {
		opt(s)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe() }()

	select {
	case <-s.Ready():
	case err := <-errCh:
		t.Fatalf("server failed to start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not become ready")
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, s.Shutdown(ctx))
		assert.NoError(t, <-errCh)
	})
	return s, cfg.Addr()
}

func dial(t *testing.T, addr string) *client.Client {
	t.Helper()
	c, err := client.DialTimeout(addr, time.Second)
	require.NoError(t, err)
	require.NoError(t, c.SetDeadline(time.Now().Add(5*time.Second)))
	t.Cleanup(func() { c.Close() })
	return c
}

func TestServer_Commands(t *testing.T) {
	_, addr := startServer(t)
	c := dial(t, addr)

	steps := []struct {
		args []string
		want interface{}
	}{
		{[]string{"PING"}, "PONG"},
		{[]string{"SET", "a", "1"}, "OK"},
		{[]string{"GET", "a"}, []byte("1")},
		{[]string{"DEL", "a"}, "OK"},
		{[]string{"GET", "a"}, nil},
		{[]string{"EXISTS", "a"}, int64(-1)},
		{[]string{"MSET", "x", "1", "y", "2"}, "OK"},
		{[]string{"MGET", "x", "y", "z"}, []interface{}{[]byte("1"), []byte("2"), nil}},
		{[]string{"SET", "a"}, resp.RespError{Message: "ERR wrong number of arguments for 'SET' command"}},
		{[]string{"NOPE"}, resp.RespError{Message: "ERR unknown command 'NOPE'"}},
		{[]string{"PING", "still", "open"}, "PONG"},
	}

	for _, step := range steps {
		got, err := c.Do(step.args...)
		require.NoError(t, err, step.args)
		if step.want == nil {
			assert.Nil(t, got, step.args)
			continue
		}
		assert.Equal(t, step.want, got, step.args)
	}

	info, err := c.Do("INFO")
	require.NoError(t, err)
	assert.Contains(t, string(info.([]byte)), "connected_clients:1")
	assert.Contains(t, string(info.([]byte)), "engine:memory")
}

func TestServer_PipelineAndSplit(t *testing.T) {
	_, addr := startServer(t)
	c := dial(t, addr)

	require.NoError(t, c.Write([]byte("*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n*2\r\n$3\r\nGET\r\n$1\r\nk\r\n*1\r\n$4\r\nPING\r\n")))
	for _, want := range []interface{}{"OK", []byte("v"), "PONG"} {
		got, err := c.Receive()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	require.NoError(t, c.Write([]byte("*2\r\n$3\r\nGE")))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, c.Write([]byte("T\r\n$1\r\nk\r\n")))
	got, err := c.Receive()
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestServer_ConnectionCount(t *testing.T) {
	col := metrics.New()
	s, addr := startServer(t, WithMetrics(col))

	clients := make([]*client.Client, 3)
	for i := range clients {
		clients[i] = dial(t, addr)
		_, err := clients[i].Do("PING")
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return s.Clients() == 3 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, clients[0].Close())
	require.Eventually(t, func() bool { return s.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	for _, c := range clients[1:] {
		require.NoError(t, c.Close())
	}
	require.Eventually(t, func() bool { return s.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return s.Clients() < 0 }, 100*time.Millisecond, 10*time.Millisecond)

	assert.Equal(t, 3.0, counterValue(t, col, "nessdb_connections_accepted_total"))
}

func counterValue(t *testing.T, col *metrics.Collector, name string) float64 {
	t.Helper()
	mfs, err := col.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestServer_ShutdownBeforeServe(t *testing.T) {
	s := newTestServer(t, config.Default().Server)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.Shutdown(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestServer_BindError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := config.Default().Server
	cfg.Port = ln.Addr().(*net.TCPAddr).Port
	s := newTestServer(t, cfg)

	err = s.ListenAndServe()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrLoopExited))
}
