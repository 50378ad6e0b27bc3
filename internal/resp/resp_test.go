package resp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReply_ToBytes(t *testing.T) {
	tests := []struct {
		name  string
		reply Reply
		want  string
	}{
		{name: "ok", reply: MakeOkReply(), want: "+OK\r\n"},
		{name: "pong", reply: PongReply, want: "+PONG\r\n"},
		{name: "arg_num", reply: MakeArgNumErrReply("SET"), want: "-ERR wrong number of arguments for 'SET' command\r\n"},
		{name: "unknown", reply: MakeUnknownCmdErrReply("FOO"), want: "-ERR unknown command 'FOO'\r\n"},
		{name: "protocol", reply: MakeProtocolErrReply(errors.New("invalid bulk length")), want: "-ERR Protocol error: invalid bulk length\r\n"},
		{name: "server_err", reply: MakeServerErrReply(errors.New("disk full")), want: "-SERVERERR disk full\r\n"},

		// EXISTS 的两个标记
		{name: "exists_true", reply: MakeBoolReply(true), want: ":1\r\n"},
		{name: "exists_false", reply: MakeBoolReply(false), want: ":-1\r\n"},
		{name: "int", reply: MakeIntReply(1024), want: ":1024\r\n"},

		{name: "bulk_empty", reply: MakeBulkReply([]byte("")), want: "$0\r\n\r\n"},
		{name: "bulk", reply: MakeBulkReply([]byte("hello")), want: "$5\r\nhello\r\n"},
		{name: "bulk_null", reply: MakeNullBulkReply(), want: "$-1\r\n"},

		{name: "multi_empty", reply: MakeMultiBulkReply([][]byte{}), want: "*0\r\n"},
		{name: "multi_mixed", reply: MakeMultiBulkReply([][]byte{
			[]byte("1"),
			[]byte("2"),
			nil,
		}), want: "*3\r\n$1\r\n1\r\n$1\r\n2\r\n$-1\r\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, string(tc.reply.ToBytes()))
		})
	}
}

func TestMakeErrReply_SingleLine(t *testing.T) {
	reply := MakeUnknownCmdErrReply("FOO\r\nBAR")
	assert.Equal(t, "-ERR unknown command 'FOO  BAR'\r\n", string(reply.ToBytes()))
}

func TestIsErrorReply(t *testing.T) {
	assert.True(t, IsErrorReply(MakeErrReply("ERR foo")))
	assert.True(t, IsErrorReply(MakeServerErrReply(errors.New("x"))))
	assert.False(t, IsErrorReply(MakeOkReply()))
	assert.False(t, IsErrorReply(FalseReply))
	assert.False(t, IsErrorReply(NullBulkReply))
	assert.False(t, IsErrorReply(MakeMultiBulkReply([][]byte{nil})))
}
