//go:build windows

package shellterm

import (
	"os"
	"os/exec"
	"syscall"
)

const (
	interruptSignal = syscall.SIGINT
	terminateSignal = syscall.SIGTERM
)

// Deadline-driven pipe reads and unix signals are unavailable here, so
// the shell constructors fail fast instead of blocking callers.

func preparePipe(f *os.File) error {
	return ErrUnsupportedPlatform
}

func configureProcGroup(cmd *exec.Cmd) {}

func signalGroup(pid int, sig syscall.Signal) error {
	return ErrUnsupportedPlatform
}
