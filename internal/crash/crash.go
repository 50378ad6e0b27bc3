// Package crash 把事件循环里的致命错误变成一份诊断日志然后退出进程。
//
// 每个事件回调开头调用 defer crash.Protect()()。出错时记录信号、故障地址、
// 故障 pc 以及最多 maxFrames 层调用栈，刷新日志后以状态码 1 退出，不做恢复。
package crash

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"go.uber.org/zap"
)

const (
	maxFrames = 50
	// 收到异步信号时 goroutine 栈的最大转储长度
	maxStackDump = 1 << 20
)

var (
	current     atomic.Pointer[zap.Logger]
	installOnce sync.Once

	// exit 在测试里会被替换
	exit = os.Exit
)

// Install 在进程启动时调用一次
func Install(log *zap.Logger) {
	current.Store(log)
	installOnce.Do(func() {
		debug.SetTraceback("all")
		watchSignals()
	})
}

func log() *zap.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// Protect 在当前 goroutine 上开启 panic-on-fault，返回需要 defer 的守卫
func Protect() func() {
	old := debug.SetPanicOnFault(true)
	return func() {
		if r := recover(); r != nil {
			report(r)
		}
		debug.SetPanicOnFault(old)
	}
}

// faultAddr 由运行时的故障错误实现
type faultAddr interface {
	Addr() uintptr
}

func report(r interface{}) {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(1, pcs)
	frames, fault := faultFrames(resolve(pcs[:n]))

	l := log()
	fields := []zap.Field{zap.String("panic", fmt.Sprint(r))}
	if fault {
		fields = append(fields, zap.String("signal", describe(faultSignal)))
	}
	if fa, ok := r.(faultAddr); ok {
		fields = append(fields, zap.String("fault_addr", fmt.Sprintf("%#x", fa.Addr())))
	}
	if len(frames) > 0 {
		fields = append(fields, zap.String("pc", fmt.Sprintf("%#x", frames[0].PC)))
	}
	l.Error("[crash] fatal error in event loop", fields...)

	for i, f := range frames {
		l.Error("[crash] frame",
			zap.Int("n", i),
			zap.String("func", f.Function),
			zap.String("file", fmt.Sprintf("%s:%d", f.File, f.Line)))
	}

	_ = l.Sync()
	exit(1)
}

func resolve(pcs []uintptr) []runtime.Frame {
	frames := make([]runtime.Frame, 0, len(pcs))
	it := runtime.CallersFrames(pcs)
	for {
		f, more := it.Next()
		frames = append(frames, f)
		if !more {
			break
		}
	}
	return frames
}

// faultFrames 去掉异常处理本身的栈帧，让结果从出错的那一帧开始。
// 内存故障取 runtime.sigpanic 之后的帧，普通 panic 取 runtime.gopanic 之后的帧。
// 第二个返回值表示是否为信号引起的故障。
func faultFrames(frames []runtime.Frame) ([]runtime.Frame, bool) {
	for i, f := range frames {
		if f.Function == "runtime.sigpanic" {
			return frames[i+1:], true
		}
	}
	for i, f := range frames {
		if f.Function == "runtime.gopanic" {
			return skipRuntime(frames[i+1:]), false
		}
	}
	return frames, false
}

// skipRuntime 跳过 panic 路径上的运行时辅助函数，例如 runtime.panicIndex
func skipRuntime(frames []runtime.Frame) []runtime.Frame {
	for i, f := range frames {
		if !strings.HasPrefix(f.Function, "runtime.") {
			return frames[i:]
		}
	}
	return frames
}

// handleSignal 处理异步送达的致命信号 (例如 kill -SEGV)
func handleSignal(sig os.Signal) {
	l := log()
	s, _ := sig.(syscall.Signal)
	l.Error("[crash] fatal signal received", zap.String("signal", describe(s)))

	buf := make([]byte, maxStackDump)
	buf = buf[:runtime.Stack(buf, true)]
	l.Error("[crash] goroutine dump", zap.ByteString("stacks", buf))

	_ = l.Sync()
	exit(1)
}
