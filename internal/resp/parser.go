package resp

import (
	"bufio"
	"errors"
	"io"
	"strconv"
)

// Parser 从流中读取完整的 RESP 值，用于客户端。
// 服务端的连接处理使用 Decode，不走这里。
type Parser struct {
	r *bufio.Reader
}

func NewParser(reader io.Reader) *Parser {
	return &Parser{
		r: bufio.NewReader(reader),
	}
}

// RespError 是对端返回的错误回复，作为值而不是 Go 错误返回
type RespError struct {
	Message string
}

func (e RespError) Error() string {
	return e.Message
}

// Parse 读取一个 RESP 值:
// +简单字符串 -> string, -错误 -> RespError, :整数 -> int64,
// $bulk -> []byte (null 为 nil), *数组 -> []interface{} (null 为 nil)
func (p *Parser) Parse() (interface{}, error) {
	b, err := p.r.ReadByte()
	if err != nil {
		return nil, err
	}

	switch b {
	case '+':
		return p.readLine()
	case '-':
		line, err := p.readLine()
		if err != nil {
			return nil, err
		}
		return RespError{Message: line}, nil
	case ':':
		line, err := p.readLine()
		if err != nil {
			return nil, err
		}
		return strconv.ParseInt(line, 10, 64)
	case '$':
		return p.parseBulkString()
	case '*':
		return p.parseArray()
	default:
		return nil, errors.New("protocol error: unknown RESP type")
	}
}

func (p *Parser) parseBulkString() (interface{}, error) {
	line, err := p.readLine()
	if err != nil {
		return nil, err
	}

	length, err := strconv.Atoi(line)
	if err != nil || length < -1 || length > MaxBulkLen {
		return nil, errors.New("protocol error: invalid bulk length")
	}
	if length == -1 {
		return nil, nil
	}

	buf := make([]byte, length+2)
	if _, err := io.ReadFull(p.r, buf); err != nil {
		return nil, err
	}
	if buf[length] != '\r' || buf[length+1] != '\n' {
		return nil, errors.New("protocol error: expected CRLF")
	}
	return buf[:length], nil
}

func (p *Parser) parseArray() (interface{}, error) {
	line, err := p.readLine()
	if err != nil {
		return nil, err
	}

	n, err := strconv.Atoi(line)
	if err != nil || n < -1 || n > MaxMultiBulkLen {
		return nil, errors.New("protocol error: invalid array length")
	}
	if n == -1 {
		return nil, nil
	}

	result := make([]interface{}, n)
	for i := 0; i < n; i++ {
		elem, err := p.Parse()
		if err != nil {
			return nil, err
		}
		result[i] = elem
	}
	return result, nil
}

func (p *Parser) readLine() (string, error) {
	line, err := p.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return "", errors.New("protocol error: invalid line ending")
	}
	return line[:len(line)-2], nil
}

// EncodeArgs 把命令编码为 RESP 数组
func EncodeArgs(args [][]byte) []byte {
	return MakeMultiBulkReply(args).ToBytes()
}
