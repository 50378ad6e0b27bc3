package command

import (
	"nessdb/internal/resp"
	"nessdb/internal/storage"
)

// Kind 是命令的封闭集合，每个 Kind 恰好对应一个 Command
type Kind uint8

const (
	KindUnknown Kind = iota
	KindPing
	KindSet
	KindMSet
	KindGet
	KindMGet
	KindDel
	KindExists
	KindInfo

	numKinds
)

func (k Kind) String() string {
	if k > KindUnknown && k < numKinds && cmdTable[k] != nil {
		return cmdTable[k].Name
	}
	return "UNKNOWN"
}

// ExecFunc 定义每个命令的执行函数签名，args 不包含命令名
type ExecFunc func(d *Dispatcher, args [][]byte) resp.Reply

// Command 定义了一个命令的元数据
type Command struct {
	Name     string   // 命令名称，大写
	Kind     Kind     // 命令类型
	Executor ExecFunc // 执行函数
	Arity    int      // 参数数量 (含命令名)，负数表示至少 -Arity 个
	// Check 在 Arity 之外的额外校验，可为空
	Check func(cmdLine [][]byte) bool
}

var (
	cmdTable  [numKinds]*Command
	nameTable = make(map[string]Kind)
)

func RegisterCommand(cmd *Command) {
	if cmd.Kind <= KindUnknown || cmd.Kind >= numKinds {
		panic("command: invalid kind for " + cmd.Name)
	}
	if cmdTable[cmd.Kind] != nil {
		panic("command: duplicate registration for " + cmd.Name)
	}
	cmdTable[cmd.Kind] = cmd
	nameTable[cmd.Name] = cmd.Kind
}

// Lookup 按名字查找命令，大小写敏感
func Lookup(name []byte) Kind {
	if k, ok := nameTable[string(name)]; ok {
		return k
	}
	return KindUnknown
}

// Request 是一条解码后的请求，Args[0] 是命令名
type Request struct {
	Kind Kind
	Args [][]byte
}

func NewRequest(cmdLine [][]byte) Request {
	if len(cmdLine) == 0 {
		return Request{Kind: KindUnknown}
	}
	return Request{Kind: Lookup(cmdLine[0]), Args: cmdLine}
}

func (c *Command) validate(cmdLine [][]byte) bool {
	if !validateArity(c.Arity, cmdLine) {
		return false
	}
	return c.Check == nil || c.Check(cmdLine)
}

func validateArity(arity int, cmdLine [][]byte) bool {
	n := len(cmdLine)

	if arity >= 0 {
		return n == arity
	}
	return n >= -arity
}

// Dispatcher 把请求分发到存储，每个请求恰好产生一个回复
type Dispatcher struct {
	store      storage.Store
	serverInfo func() string
}

type Option func(*Dispatcher)

// WithServerInfo 让 INFO 在存储状态前附加服务端状态
func WithServerInfo(fn func() string) Option {
	return func(d *Dispatcher) {
		d.serverInfo = fn
	}
}

func NewDispatcher(store storage.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{store: store}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Exec 执行一条请求
func (d *Dispatcher) Exec(req Request) resp.Reply {
	if len(req.Args) == 0 {
		return resp.MakeUnknownCmdErrReply("")
	}
	if req.Kind == KindUnknown {
		return resp.MakeUnknownCmdErrReply(string(req.Args[0]))
	}

	cmd := cmdTable[req.Kind]
	if !cmd.validate(req.Args) {
		return resp.MakeArgNumErrReply(cmd.Name)
	}
	return cmd.Executor(d, req.Args[1:])
}
