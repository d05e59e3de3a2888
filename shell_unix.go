//go:build !windows

package shellterm

import (
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const (
	interruptSignal = syscall.SIGINT
	terminateSignal = syscall.SIGTERM
)

// preparePipe confirms the pipe read end supports deadlines, which the
// read loop relies on to wake up without data.
func preparePipe(f *os.File) error {
	return f.SetReadDeadline(time.Time{})
}

// configureProcGroup puts the child in its own process group so signals
// reach the whole pipeline, not just bash.
func configureProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalGroup delivers sig to the process group led by pid, falling back
// to the process itself when no group exists.
func signalGroup(pid int, sig syscall.Signal) error {
	if err := unix.Kill(-pid, unix.Signal(sig)); err == nil {
		return nil
	}
	return unix.Kill(pid, unix.Signal(sig))
}
