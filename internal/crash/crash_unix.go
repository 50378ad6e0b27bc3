//go:build unix

package crash

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

const faultSignal = unix.SIGSEGV

func watchSignals() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.SIGSEGV, unix.SIGBUS)
	go func() {
		handleSignal(<-ch)
	}()
}

func describe(sig syscall.Signal) string {
	return fmt.Sprintf("%d (%s: %s)", int(sig), unix.SignalName(sig), sig.String())
}
