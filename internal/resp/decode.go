package resp

import (
	"bytes"
	"errors"
	"strconv"
)

const (
	MaxMultiBulkLen = 1024 * 1024
	MaxBulkLen      = 512 * 1024 * 1024
	MaxInlineLen    = 64 * 1024
)

// ErrIncomplete 表示缓冲区里还没有一个完整的请求，需要等待更多字节
var ErrIncomplete = errors.New("incomplete request")

// ProtocolError 表示请求格式错误，无法继续解析
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string {
	return e.Msg
}

func protocolErr(msg string) error {
	return &ProtocolError{Msg: msg}
}

// Decode 从 buf 头部解析一个请求，返回参数列表和消耗的字节数。
// 支持 multi bulk (*N\r\n$len\r\n...) 和 inline (SET a 1\r\n) 两种格式。
// 空请求 (*0 或空行) 返回 nil 参数和非零的 n。
// 返回的参数是拷贝，调用方可以复用 buf。
func Decode(buf []byte) ([][]byte, int, error) {
	var d Decoder
	return d.Decode(buf)
}

// Decoder 是可续传的解析器，记住未完成的 multi bulk 已经确认到哪里，
// 下次只扫描新到的字节。两次调用之间 buf 只能在尾部追加，
// 丢弃缓冲区时必须调用 Reset。
type Decoder struct {
	count int // 参数个数，0 表示还没读到 *N 头
	done  int // 已确认完整的参数个数
	pos   int // 下一个参数头的位置
}

func (d *Decoder) Reset() {
	*d = Decoder{}
}

func (d *Decoder) Decode(buf []byte) ([][]byte, int, error) {
	if len(buf) == 0 {
		return nil, 0, ErrIncomplete
	}
	if buf[0] != '*' {
		d.Reset()
		return decodeInline(buf)
	}

	args, n, err := d.decodeMultiBulk(buf)
	if !errors.Is(err, ErrIncomplete) {
		d.Reset()
	}
	return args, n, err
}

func (d *Decoder) decodeMultiBulk(buf []byte) ([][]byte, int, error) {
	if d.count == 0 {
		line, pos, err := readLine(buf, 0)
		if err != nil {
			return nil, 0, err
		}
		count, err := strconv.Atoi(string(line[1:]))
		if err != nil || count > MaxMultiBulkLen {
			return nil, 0, protocolErr("invalid multibulk length")
		}
		if count <= 0 {
			return nil, pos, nil
		}
		d.count, d.pos = count, pos
	}

	// 只确认边界，不拷贝
	for d.done < d.count {
		next, err := scanBulk(buf, d.pos)
		if err != nil {
			return nil, 0, err
		}
		d.pos = next
		d.done++
	}

	// 整帧已经在 buf 里，再拷贝参数
	_, pos, _ := readLine(buf, 0)
	args := make([][]byte, 0, d.count)
	for i := 0; i < d.count; i++ {
		line, next, _ := readLine(buf, pos)
		size, _ := strconv.Atoi(string(line[1:]))
		arg := make([]byte, size)
		copy(arg, buf[next:next+size])
		args = append(args, arg)
		pos = next + size + 2
	}
	return args, pos, nil
}

// scanBulk 校验 pos 处的 $len\r\n<data>\r\n，返回它之后的位置
func scanBulk(buf []byte, pos int) (int, error) {
	if pos >= len(buf) {
		return 0, ErrIncomplete
	}
	if buf[pos] != '$' {
		return 0, protocolErr("expected '$', got '" + string(buf[pos]) + "'")
	}
	line, next, err := readLine(buf, pos)
	if err != nil {
		return 0, err
	}
	size, err := strconv.Atoi(string(line[1:]))
	if err != nil || size < 0 || size > MaxBulkLen {
		return 0, protocolErr("invalid bulk length")
	}
	end := next + size
	if end+2 > len(buf) {
		return 0, ErrIncomplete
	}
	if buf[end] != '\r' || buf[end+1] != '\n' {
		return 0, protocolErr("bulk string not terminated by CRLF")
	}
	return end + 2, nil
}

func decodeInline(buf []byte) ([][]byte, int, error) {
	idx := bytes.IndexByte(buf, '\n')
	if idx < 0 {
		if len(buf) > MaxInlineLen {
			return nil, 0, protocolErr("too big inline request")
		}
		return nil, 0, ErrIncomplete
	}
	fields := bytes.Fields(buf[:idx])
	if len(fields) == 0 {
		return nil, idx + 1, nil
	}
	args := make([][]byte, len(fields))
	for i, f := range fields {
		args[i] = append([]byte(nil), f...)
	}
	return args, idx + 1, nil
}

// readLine 返回 buf[start:] 中第一行 (不含 CRLF) 以及下一行的起始位置
func readLine(buf []byte, start int) ([]byte, int, error) {
	idx := bytes.Index(buf[start:], CRLF)
	if idx < 0 {
		if len(buf)-start > MaxInlineLen {
			return nil, 0, protocolErr("too big header line")
		}
		return nil, 0, ErrIncomplete
	}
	return buf[start : start+idx], start + idx + 2, nil
}
