//go:build !unix

package crash

import (
	"fmt"
	"syscall"
)

const faultSignal = syscall.SIGSEGV

// 非 unix 平台不能通过信号通知接收异步的 SIGSEGV
func watchSignals() {}

func describe(sig syscall.Signal) string {
	return fmt.Sprintf("%d (%s)", int(sig), sig.String())
}
