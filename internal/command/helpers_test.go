package command

import (
	"errors"
	"strings"
	"testing"

	"nessdb/internal/resp"
)

// MockStore 是内存里的 Store，记录调用顺序，可以让指定 key 的操作失败
type MockStore struct {
	data   map[string][]byte
	calls  []string
	failOn map[string]bool
}

var errMockFailure = errors.New("mock failure")

func NewMockStore() *MockStore {
	return &MockStore{
		data:   make(map[string][]byte),
		failOn: make(map[string]bool),
	}
}

func (m *MockStore) record(op string, key []byte) error {
	m.calls = append(m.calls, op+" "+string(key))
	if m.failOn[string(key)] {
		return errMockFailure
	}
	return nil
}

func (m *MockStore) Put(key, value []byte) error {
	if err := m.record("put", key); err != nil {
		return err
	}
	m.data[string(key)] = append([]byte{}, value...)
	return nil
}

func (m *MockStore) Get(key []byte) ([]byte, bool, error) {
	if err := m.record("get", key); err != nil {
		return nil, false, err
	}
	v, ok := m.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte{}, v...), true, nil
}

func (m *MockStore) Remove(key []byte) error {
	if err := m.record("remove", key); err != nil {
		return err
	}
	delete(m.data, string(key))
	return nil
}

func (m *MockStore) Exists(key []byte) (bool, error) {
	if err := m.record("exists", key); err != nil {
		return false, err
	}
	_, ok := m.data[string(key)]
	return ok, nil
}

func (m *MockStore) Stats() string { return "engine:mock\r\n" }
func (m *MockStore) Close() error  { return nil }

func cmdLine(s string) [][]byte {
	fields := strings.Fields(s)
	args := make([][]byte, len(fields))
	for i, f := range fields {
		args[i] = []byte(f)
	}
	return args
}

// exec 解析并执行一条空格分隔的命令
func exec(d *Dispatcher, line string) resp.Reply {
	return d.Exec(NewRequest(cmdLine(line)))
}

// 断言是 IntReply 且值等于 expected
func assertIntReply(t *testing.T, reply resp.Reply, expected int64) {
	t.Helper()
	intReply, ok := reply.(*resp.IntReply)
	if !ok {
		t.Fatalf("expected *resp.IntReply, got %T", reply)
	}
	if intReply.IntVal != expected {
		t.Fatalf("expected int %d, got %d", expected, intReply.IntVal)
	}
}

// 断言是 BulkReply 且内容等于 expected（nil 表示 Null）
func assertBulkReply(t *testing.T, reply resp.Reply, expected []byte) {
	t.Helper()
	bulk, ok := reply.(*resp.BulkReply)
	if !ok {
		t.Fatalf("expected *resp.BulkReply, got %T", reply)
	}
	if expected == nil {
		if bulk.Arg != nil {
			t.Fatalf("expected null bulk, got %v", bulk.Arg)
		}
		return
	}
	if bulk.Arg == nil {
		t.Fatalf("expected bulk %q, got null", expected)
	}
	if string(bulk.Arg) != string(expected) {
		t.Fatalf("expected bulk %q, got %q", expected, bulk.Arg)
	}
}

// 断言是 MultiBulkReply 且内容等于 expected（支持 nil 元素）
func assertMultiBulkReply(t *testing.T, reply resp.Reply, expected [][]byte) {
	t.Helper()
	multi, ok := reply.(*resp.MultiBulkReply)
	if !ok {
		t.Fatalf("expected *resp.MultiBulkReply, got %T", reply)
	}
	if len(multi.Args) != len(expected) {
		t.Fatalf("multi bulk length mismatch: expected %d, got %d", len(expected), len(multi.Args))
	}
	for i, exp := range expected {
		got := multi.Args[i]
		if exp == nil {
			if got != nil {
				t.Fatalf("at index %d: expected nil, got %v", i, got)
			}
			continue
		}
		if got == nil {
			t.Fatalf("at index %d: expected %q, got nil", i, exp)
		}
		if string(got) != string(exp) {
			t.Fatalf("at index %d: expected %q, got %q", i, exp, got)
		}
	}
}

// 断言是 StandardErrReply 且包含 substr
func assertErrorReply(t *testing.T, reply resp.Reply, substr string) {
	t.Helper()
	err, ok := reply.(*resp.StandardErrReply)
	if !ok {
		t.Fatalf("expected *resp.StandardErrReply, got %T", reply)
	}
	if !strings.Contains(err.Status, substr) {
		t.Fatalf("error reply does not contain '%s', got: '%s'", substr, err.Status)
	}
}

// 断言是 OK Reply
func assertOKReply(t *testing.T, reply resp.Reply) {
	t.Helper()
	okReply, ok := reply.(*resp.SimpleStringReply)
	if !ok {
		t.Fatalf("expected *resp.SimpleStringReply, got %T", reply)
	}
	if okReply.Status != "OK" {
		t.Fatalf("expected OK, got %s", okReply.Status)
	}
}
