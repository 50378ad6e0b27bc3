package command

import (
	"strings"
	"testing"

	"nessdb/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_EveryKindRegistered(t *testing.T) {
	for k := KindUnknown + 1; k < numKinds; k++ {
		cmd := cmdTable[k]
		require.NotNil(t, cmd, "kind %d has no command", k)
		assert.Equal(t, k, cmd.Kind)
		assert.Equal(t, k, Lookup([]byte(cmd.Name)))
		assert.Equal(t, strings.ToUpper(cmd.Name), cmd.Name)
		assert.NotNil(t, cmd.Executor)
	}
	assert.Len(t, nameTable, int(numKinds)-1)
	assert.Equal(t, "UNKNOWN", KindUnknown.String())
	assert.Equal(t, "MGET", KindMGet.String())
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"PING", KindPing},
		{"SET", KindSet},
		{"MSET", KindMSet},
		{"GET", KindGet},
		{"MGET", KindMGet},
		{"DEL", KindDel},
		{"EXISTS", KindExists},
		{"INFO", KindInfo},
		{"get", KindUnknown},
		{"FLUSHALL", KindUnknown},
		{"", KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Lookup([]byte(tt.name)))
		})
	}
}

func TestValidateArity(t *testing.T) {
	tests := []struct {
		arity int
		line  string
		want  bool
	}{
		{3, "SET k v", true},
		{3, "SET k", false},
		{3, "SET k v x", false},
		{-2, "DEL k", true},
		{-2, "DEL a b c", true},
		{-2, "DEL", false},
		{-1, "PING", true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, validateArity(tt.arity, cmdLine(tt.line)))
		})
	}
}

func TestExecPing(t *testing.T) {
	d := NewDispatcher(NewMockStore())

	t.Run("bare", func(t *testing.T) {
		assert.Equal(t, "+PONG\r\n", string(exec(d, "PING").ToBytes()))
	})
	t.Run("extra args ignored", func(t *testing.T) {
		assert.Equal(t, "+PONG\r\n", string(exec(d, "PING hello world").ToBytes()))
	})
}

func TestExecSetGet(t *testing.T) {
	d := NewDispatcher(NewMockStore())

	t.Run("get missing", func(t *testing.T) {
		reply := exec(d, "GET a")
		assertBulkReply(t, reply, nil)
		assert.Equal(t, "$-1\r\n", string(reply.ToBytes()))
	})

	t.Run("set then get", func(t *testing.T) {
		assertOKReply(t, exec(d, "SET a 1"))
		assertBulkReply(t, exec(d, "GET a"), []byte("1"))
	})

	t.Run("overwrite", func(t *testing.T) {
		assertOKReply(t, exec(d, "SET a 2"))
		assertBulkReply(t, exec(d, "GET a"), []byte("2"))
	})
}

func TestExecMSetMGet(t *testing.T) {
	store := NewMockStore()
	d := NewDispatcher(store)

	assertOKReply(t, exec(d, "MSET x 1 y 2"))
	assert.Equal(t, []string{"put x", "put y"}, store.calls)

	store.calls = nil
	reply := exec(d, "MGET x y z")
	assertMultiBulkReply(t, reply, [][]byte{[]byte("1"), []byte("2"), nil})
	assert.Equal(t, "*3\r\n$1\r\n1\r\n$1\r\n2\r\n$-1\r\n", string(reply.ToBytes()))
	assert.Equal(t, []string{"get x", "get y", "get z"}, store.calls)

	t.Run("all missing keeps one slot per key", func(t *testing.T) {
		assertMultiBulkReply(t, exec(d, "MGET q r"), [][]byte{nil, nil})
	})
}

func TestExecMSet_OddArgsRejectedBeforeWrite(t *testing.T) {
	store := NewMockStore()
	d := NewDispatcher(store)

	assertErrorReply(t, exec(d, "MSET a 1 b"), "wrong number of arguments for 'MSET'")
	assert.Empty(t, store.calls)
	assertErrorReply(t, exec(d, "MSET a"), "wrong number of arguments")
}

func TestExecDel(t *testing.T) {
	store := NewMockStore()
	d := NewDispatcher(store)

	exec(d, "MSET k1 v1 k2 v2 k3 v3")

	t.Run("delete multiple keys", func(t *testing.T) {
		assertOKReply(t, exec(d, "DEL k1 k2 missing"))
		assertBulkReply(t, exec(d, "GET k1"), nil)
		assertBulkReply(t, exec(d, "GET k2"), nil)
		assertBulkReply(t, exec(d, "GET k3"), []byte("v3"))
	})

	t.Run("no key", func(t *testing.T) {
		assertErrorReply(t, exec(d, "DEL"), "wrong number of arguments for 'DEL'")
	})
}

func TestExecExists(t *testing.T) {
	d := NewDispatcher(NewMockStore())

	reply := exec(d, "EXISTS a")
	assertIntReply(t, reply, -1)
	assert.Equal(t, ":-1\r\n", string(reply.ToBytes()))

	exec(d, "SET a 1")
	assertIntReply(t, exec(d, "EXISTS a"), 1)

	assertErrorReply(t, exec(d, "EXISTS"), "wrong number of arguments for 'EXISTS'")
	assertErrorReply(t, exec(d, "EXISTS a b"), "wrong number of arguments for 'EXISTS'")
}

func TestExecInfo(t *testing.T) {
	d := NewDispatcher(NewMockStore(), WithServerInfo(func() string {
		return "connected_clients:3\r\n"
	}))

	reply := exec(d, "INFO")
	assertErrorFree(t, reply)
	out := string(reply.ToBytes())
	assert.Contains(t, out, "connected_clients:3")
	assert.Contains(t, out, "engine:mock")

	plain := NewDispatcher(NewMockStore())
	assert.NotContains(t, string(exec(plain, "INFO").ToBytes()), "# Server")
}

func TestExec_Errors(t *testing.T) {
	d := NewDispatcher(NewMockStore())

	tests := []struct {
		line string
		want string
	}{
		{"FOO bar", "-ERR unknown command 'FOO'\r\n"},
		{"set a 1", "-ERR unknown command 'set'\r\n"},
		{"SET a", "-ERR wrong number of arguments for 'SET' command\r\n"},
		{"SET a b c", "-ERR wrong number of arguments for 'SET' command\r\n"},
		{"GET", "-ERR wrong number of arguments for 'GET' command\r\n"},
		{"MGET", "-ERR wrong number of arguments for 'MGET' command\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, string(exec(d, tt.line).ToBytes()))
		})
	}

	t.Run("empty request", func(t *testing.T) {
		assertErrorReply(t, d.Exec(NewRequest(nil)), "unknown command")
	})
}

func TestExec_StorageErrors(t *testing.T) {
	store := NewMockStore()
	d := NewDispatcher(store)
	store.failOn["bad"] = true

	for _, line := range []string{"SET bad 1", "GET bad", "EXISTS bad", "DEL bad", "MGET ok bad"} {
		t.Run(line, func(t *testing.T) {
			assertErrorReply(t, exec(d, line), "SERVERERR mock failure")
		})
	}

	t.Run("mset keeps earlier writes", func(t *testing.T) {
		store.calls = nil
		assertErrorReply(t, exec(d, "MSET a 1 bad 2 c 3"), "SERVERERR")
		assert.Equal(t, []string{"put a", "put bad"}, store.calls)
		assertBulkReply(t, exec(d, "GET a"), []byte("1"))
		assertBulkReply(t, exec(d, "GET c"), nil)
	})
}

func assertErrorFree(t *testing.T, reply interface{ ToBytes() []byte }) {
	t.Helper()
	require.NotEqual(t, byte('-'), reply.ToBytes()[0], "unexpected error reply %q", reply.ToBytes())
}

func TestExec_BufferPoolExhausted(t *testing.T) {
	store, err := memory.Open(memory.Options{MaxBytes: 64})
	require.NoError(t, err)
	defer store.Close()
	d := NewDispatcher(store)

	for _, k := range []string{"a", "b", "c"} {
		assertOKReply(t, exec(d, "SET "+k+" 1"))
	}
	assertErrorReply(t, exec(d, "SET big "+strings.Repeat("x", 100)), "SERVERERR buffer pool exhausted")

	for _, k := range []string{"a", "b", "c"} {
		assertBulkReply(t, exec(d, "GET "+k), []byte("1"))
	}
	assertBulkReply(t, exec(d, "GET big"), nil)
}
