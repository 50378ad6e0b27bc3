package resp

import (
	"fmt"
	"strconv"
	"strings"
)

// CRLF 是 RESP 的行结束符
var CRLF = []byte("\r\n")

// Reply 是一次命令执行的结果，编码后直接写回连接
type Reply interface {
	ToBytes() []byte
}

var (
	OkReply   = MakeSimpleStringReply("OK")
	PongReply = MakeSimpleStringReply("PONG")

	// EXISTS 的布尔标记: 存在为 :1，不存在为 :-1
	TrueReply  = MakeIntReply(1)
	FalseReply = MakeIntReply(-1)

	// NullBulkReply 表示 key 不存在，没有 value 负载
	NullBulkReply = &BulkReply{Arg: nil}
)

func MakeOkReply() *SimpleStringReply {
	return OkReply
}

func MakeNullBulkReply() *BulkReply {
	return NullBulkReply
}

func MakeBoolReply(b bool) *IntReply {
	if b {
		return TrueReply
	}
	return FalseReply
}

func MakeArgNumErrReply(cmdName string) *StandardErrReply {
	return MakeErrReply(fmt.Sprintf("ERR wrong number of arguments for '%s' command", cmdName))
}

func MakeUnknownCmdErrReply(cmdName string) *StandardErrReply {
	return MakeErrReply(fmt.Sprintf("ERR unknown command '%s'", cmdName))
}

func MakeProtocolErrReply(err error) *StandardErrReply {
	return MakeErrReply("ERR Protocol error: " + err.Error())
}

// MakeServerErrReply 存储层失败时返回，与参数错误区分开
func MakeServerErrReply(err error) *StandardErrReply {
	return MakeErrReply("SERVERERR " + err.Error())
}

type SimpleStringReply struct {
	Status string
}

func MakeSimpleStringReply(status string) *SimpleStringReply {
	return &SimpleStringReply{Status: status}
}

func (r *SimpleStringReply) ToBytes() []byte {
	buf := make([]byte, 0, len(r.Status)+3)
	buf = append(buf, '+')
	buf = append(buf, r.Status...)
	return append(buf, CRLF...)
}

type IntReply struct {
	IntVal int64
}

func MakeIntReply(code int64) *IntReply {
	return &IntReply{IntVal: code}
}

func (r *IntReply) ToBytes() []byte {
	buf := []byte{':'}
	buf = strconv.AppendInt(buf, r.IntVal, 10)
	return append(buf, CRLF...)
}

type StandardErrReply struct {
	Status string
}

// MakeErrReply 把换行替换为空格，错误回复必须是单行
func MakeErrReply(status string) *StandardErrReply {
	if strings.ContainsAny(status, "\r\n") {
		status = strings.NewReplacer("\r", " ", "\n", " ").Replace(status)
	}
	return &StandardErrReply{Status: status}
}

func (r *StandardErrReply) ToBytes() []byte {
	buf := make([]byte, 0, len(r.Status)+3)
	buf = append(buf, '-')
	buf = append(buf, r.Status...)
	return append(buf, CRLF...)
}

func (r *StandardErrReply) Error() string {
	return r.Status
}

// IsErrorReply 判断回复是否为错误
func IsErrorReply(reply Reply) bool {
	_, ok := reply.(*StandardErrReply)
	return ok
}

type BulkReply struct {
	Arg []byte // nil 表示 Null Bulk
}

func MakeBulkReply(arg []byte) *BulkReply {
	return &BulkReply{Arg: arg}
}

func (r *BulkReply) ToBytes() []byte {
	return appendBulk(nil, r.Arg)
}

// MultiBulkReply 的槽位数在构造时确定，nil 元素编码为 $-1
type MultiBulkReply struct {
	Args [][]byte
}

func MakeMultiBulkReply(args [][]byte) *MultiBulkReply {
	return &MultiBulkReply{Args: args}
}

func (r *MultiBulkReply) ToBytes() []byte {
	size := 16
	for _, arg := range r.Args {
		size += len(arg) + 16
	}
	buf := make([]byte, 0, size)

	// *<n>\r\n
	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(len(r.Args)), 10)
	buf = append(buf, CRLF...)
	for _, arg := range r.Args {
		buf = appendBulk(buf, arg)
	}
	return buf
}

func appendBulk(buf []byte, arg []byte) []byte {
	if arg == nil {
		return append(buf, "$-1\r\n"...)
	}
	// $<len>\r\n<data>\r\n
	buf = append(buf, '$')
	buf = strconv.AppendInt(buf, int64(len(arg)), 10)
	buf = append(buf, CRLF...)
	buf = append(buf, arg...)
	return append(buf, CRLF...)
}
