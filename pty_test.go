//go:build !windows

package shellterm

import (
	"context"
	"strings"
	"testing"
	"time"
)

func startPtyShell(t *testing.T) *PtyShell {
	t.Helper()
	requireBash(t)

	sh, err := NewPtyShell(WithPtyDir(t.TempDir()))
	if err != nil {
		t.Fatalf("spawning pty shell: %v", err)
	}
	t.Cleanup(func() { sh.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sh.ReadOutput(ctx, 3*time.Second)
	return sh
}

func TestPtyShellReadyAfterSetup(t *testing.T) {
	sh := startPtyShell(t)

	// The terminal echoes the setup line, sentinel included, before bash
	// executes it. Readiness means the real prompt rendered afterwards.
	buf := sh.OutputBuffer()
	dir, ok := PromptWorkingDir(buf)
	if !ok {
		t.Fatalf("expected a rendered prompt in the startup output, got %q", buf)
	}
	if strings.Contains(dir, "$(pwd)") {
		t.Errorf("expected an expanded working directory, got %q", dir)
	}
}

func TestPtyShellEcho(t *testing.T) {
	sh := startPtyShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := sh.SendCommand("echo pty-hello"); err != nil {
		t.Fatalf("sending command: %v", err)
	}
	out, complete, err := sh.ReadOutput(ctx, 5*time.Second)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !complete {
		t.Fatal("expected command to complete")
	}
	if !strings.Contains(out, "pty-hello") {
		t.Errorf("expected echoed text, got %q", out)
	}
}

func TestPtyShellIsATty(t *testing.T) {
	sh := startPtyShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Programs that check isatty see a real terminal here.
	if err := sh.SendCommand("test -t 1 && echo is-a-tty"); err != nil {
		t.Fatalf("sending command: %v", err)
	}
	out, complete, err := sh.ReadOutput(ctx, 5*time.Second)
	if err != nil || !complete {
		t.Fatalf("reading output: complete=%v err=%v", complete, err)
	}
	if !strings.Contains(out, "is-a-tty") {
		t.Errorf("expected stdout to be a tty, got %q", out)
	}
}

func TestPtyShellCommandRunningError(t *testing.T) {
	sh := startPtyShell(t)

	if err := sh.SendCommand("sleep 5"); err != nil {
		t.Fatalf("sending command: %v", err)
	}
	if _, ok := sh.SendCommand("echo too-soon").(*CommandRunningError); !ok {
		t.Error("expected CommandRunningError")
	}
}

func TestPtyShellInterrupt(t *testing.T) {
	sh := startPtyShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := sh.SendCommand("sleep 60"); err != nil {
		t.Fatalf("sending command: %v", err)
	}
	time.Sleep(300 * time.Millisecond)
	sh.Drain()

	if err := sh.Interrupt(); err != nil {
		t.Fatalf("interrupting: %v", err)
	}
	_, complete, err := sh.ReadOutput(ctx, 5*time.Second)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !complete {
		t.Fatal("expected prompt back after Ctrl-C")
	}
	if !sh.IsAlive() {
		t.Error("expected bash to survive the interrupt")
	}
}

func TestPtyShellResize(t *testing.T) {
	sh := startPtyShell(t)

	if err := sh.Resize(120, 40); err != nil {
		t.Fatalf("resizing: %v", err)
	}
	if err := sh.Resize(0, 40); err == nil {
		t.Error("expected error for invalid size")
	}
}
