// Package client 是 nessdb 的简单同步客户端，命令行和端到端测试都用它
package client

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"nessdb/internal/resp"
)

var ErrClosed = errors.New("client closed")

type Client struct {
	conn   net.Conn
	parser *resp.Parser
	mu     sync.Mutex
	closed bool
}

func Dial(addr string) (*Client, error) {
	return DialTimeout(addr, 0)
}

func DialTimeout(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return &Client{
		conn:   conn,
		parser: resp.NewParser(conn),
	}, nil
}

// Do 发送一条命令并读取回复。
// 服务端的错误回复以 resp.RespError 值返回，err 只表示连接或协议问题。
func (c *Client) Do(args ...string) (interface{}, error) {
	bargs := make([][]byte, len(args))
	for i, a := range args {
		bargs[i] = []byte(a)
	}
	return c.DoBytes(bargs...)
}

func (c *Client) DoBytes(args ...[]byte) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if _, err := c.conn.Write(resp.EncodeArgs(args)); err != nil {
		return nil, fmt.Errorf("write error: %w", err)
	}
	payload, err := c.parser.Parse()
	if err != nil {
		return nil, fmt.Errorf("read response error: %w", err)
	}
	return payload, nil
}

// Write 直接写原始字节，配合 Receive 测试流水线和半包
func (c *Client) Write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	_, err := c.conn.Write(b)
	return err
}

// Receive 读取下一条回复
func (c *Client) Receive() (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	return c.parser.Parse()
}

func (c *Client) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}
