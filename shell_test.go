//go:build !windows

package shellterm

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireBash(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}
}

// startShell spawns a shell and waits for the first prompt so tests begin
// from a quiet, idle state.
func startShell(t *testing.T, opts ...ShellOption) *InteractiveShell {
	t.Helper()
	requireBash(t)

	sh, err := NewInteractiveShell(append([]ShellOption{WithShellDir(t.TempDir())}, opts...)...)
	if err != nil {
		t.Fatalf("spawning shell: %v", err)
	}
	t.Cleanup(func() { sh.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sh.ReadOutput(ctx, 3*time.Second)
	return sh
}

func TestShellEcho(t *testing.T) {
	sh := startShell(t)

	if err := sh.SendCommand("echo hello-from-bash"); err != nil {
		t.Fatalf("sending command: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out, complete, err := sh.ReadOutput(ctx, 5*time.Second)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !complete {
		t.Fatal("expected command to complete")
	}
	if !strings.Contains(out, "hello-from-bash") {
		t.Errorf("expected echoed text in output, got %q", out)
	}
}

func TestShellSequentialCommands(t *testing.T) {
	sh := startShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	for _, msg := range []string{"first", "second", "third"} {
		if err := sh.SendCommand("echo " + msg); err != nil {
			t.Fatalf("sending %q: %v", msg, err)
		}
		out, complete, err := sh.ReadOutput(ctx, 5*time.Second)
		if err != nil {
			t.Fatalf("reading %q: %v", msg, err)
		}
		if !complete {
			t.Fatalf("expected %q to complete", msg)
		}
		if !strings.Contains(out, msg) {
			t.Errorf("expected %q in output, got %q", msg, out)
		}
	}
}

func TestShellState(t *testing.T) {
	sh := startShell(t)

	if sh.State().Running {
		t.Fatal("expected idle state after startup")
	}

	if err := sh.SendCommand("sleep 3"); err != nil {
		t.Fatalf("sending command: %v", err)
	}
	state := sh.State()
	if !state.Running {
		t.Fatal("expected running state")
	}
	if state.Command != "sleep 3" {
		t.Errorf("expected command recorded, got %q", state.Command)
	}
}

func TestShellCommandRunningError(t *testing.T) {
	sh := startShell(t)

	if err := sh.SendCommand("sleep 5"); err != nil {
		t.Fatalf("sending command: %v", err)
	}

	err := sh.SendCommand("echo too-soon")
	var running *CommandRunningError
	if !errors.As(err, &running) {
		t.Fatalf("expected CommandRunningError, got %v", err)
	}
	if running.Command != "sleep 5" {
		t.Errorf("expected sleep command in error, got %q", running.Command)
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Errorf("expected guidance in error text, got %q", err.Error())
	}
}

func TestShellInterrupt(t *testing.T) {
	sh := startShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := sh.SendCommand("sleep 60"); err != nil {
		t.Fatalf("sending command: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	if err := sh.Interrupt(); err != nil {
		t.Fatalf("interrupting: %v", err)
	}

	_, complete, err := sh.ReadOutput(ctx, 5*time.Second)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !complete {
		t.Fatal("expected prompt back after interrupt")
	}
	if sh.State().Running {
		t.Error("expected idle state after a single interrupt call")
	}
	if !sh.IsAlive() {
		t.Error("expected bash to survive the interrupt")
	}
}

func TestShellReadOutputHonorsTimeout(t *testing.T) {
	sh := startShell(t)

	if err := sh.SendCommand("sleep 5"); err != nil {
		t.Fatalf("sending command: %v", err)
	}

	start := time.Now()
	_, complete, err := sh.ReadOutput(context.Background(), 500*time.Millisecond)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if complete {
		t.Error("expected command still running")
	}
	if elapsed > 3*time.Second {
		t.Errorf("expected return near the 500ms timeout, took %v", elapsed)
	}
	if !sh.State().Running {
		t.Error("expected running state after timed-out read")
	}
}

func TestShellEnsureAliveRespawn(t *testing.T) {
	sh := startShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := sh.SendCommand("exit 42"); err != nil {
		t.Fatalf("sending command: %v", err)
	}
	sh.ReadOutput(ctx, 3*time.Second)

	deadline := time.Now().Add(5 * time.Second)
	for sh.IsAlive() && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if sh.IsAlive() {
		t.Fatal("expected bash to have exited")
	}
	if code, ok := sh.ExitCode(); !ok || code != 42 {
		t.Errorf("expected exit code 42, got %d (ok=%v)", code, ok)
	}

	restarted, err := sh.EnsureAlive()
	if err != nil {
		t.Fatalf("respawning: %v", err)
	}
	if !restarted {
		t.Fatal("expected a restart")
	}
	if sh.Restarts() != 1 {
		t.Errorf("expected 1 restart, got %d", sh.Restarts())
	}

	// The respawned shell must accept commands.
	sh.ReadOutput(ctx, 3*time.Second)
	if err := sh.SendCommand("echo back-alive"); err != nil {
		t.Fatalf("sending command after respawn: %v", err)
	}
	out, complete, err := sh.ReadOutput(ctx, 5*time.Second)
	if err != nil || !complete {
		t.Fatalf("reading after respawn: complete=%v err=%v", complete, err)
	}
	if !strings.Contains(out, "back-alive") {
		t.Errorf("expected output from respawned shell, got %q", out)
	}
}

func TestShellOutputTruncation(t *testing.T) {
	sh := startShell(t, WithMaxOutputSize(2000))
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := sh.SendCommand("seq 1 2000"); err != nil {
		t.Fatalf("sending command: %v", err)
	}
	_, complete, err := sh.ReadOutput(ctx, 10*time.Second)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !complete {
		t.Fatal("expected command to complete despite truncation")
	}

	if !sh.Truncated() {
		t.Fatal("expected output buffer truncation")
	}
	buf := sh.OutputBuffer()
	if !strings.HasPrefix(buf, TruncationBanner) {
		t.Errorf("expected truncation banner at buffer head, got %q", buf[:40])
	}
	if !strings.Contains(buf, "2000") {
		t.Error("expected trailing output preserved")
	}
	if strings.Contains(buf, "\n1\n") {
		t.Error("expected head of output dropped")
	}
}

func TestShellPromptWorkingDir(t *testing.T) {
	sh := startShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := sh.SendCommand("cd / && pwd"); err != nil {
		t.Fatalf("sending command: %v", err)
	}
	sh.ReadOutput(ctx, 5*time.Second)

	cwd, ok := PromptWorkingDir(sh.OutputBuffer())
	if !ok {
		t.Fatal("expected prompt sentinel in buffer")
	}
	if cwd != "/" {
		t.Errorf("expected cwd '/', got %q", cwd)
	}
}

func TestShellSendText(t *testing.T) {
	sh := startShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// `read` blocks until a line of input arrives.
	if err := sh.SendCommand("read -r line && echo got:$line"); err != nil {
		t.Fatalf("sending command: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	if err := sh.SendText("typed-input\n"); err != nil {
		t.Fatalf("sending text: %v", err)
	}
	out, complete, err := sh.ReadOutput(ctx, 5*time.Second)
	if err != nil || !complete {
		t.Fatalf("reading output: complete=%v err=%v", complete, err)
	}
	if !strings.Contains(out, "got:typed-input") {
		t.Errorf("expected command to receive input, got %q", out)
	}
}

func TestContainsPrompt(t *testing.T) {
	if !ContainsPrompt("junk ◉ /home/user──➤ ") {
		t.Error("expected sentinel detected")
	}
	if ContainsPrompt("$ ordinary prompt") {
		t.Error("expected no sentinel in ordinary prompt")
	}
}

func TestContainsPromptIgnoresSetupEcho(t *testing.T) {
	echoed := "export PS1='◉ $(pwd)──➤ \\n' PROMPT_COMMAND= GIT_PAGER=cat PAGER=cat\r\n"
	if ContainsPrompt(echoed) {
		t.Error("expected echoed setup line not to count as a prompt")
	}
	if !ContainsPrompt(echoed + "◉ /tmp──➤ \n") {
		t.Error("expected real prompt after the echo to be detected")
	}
}

func TestPromptWorkingDirIgnoresSetupEcho(t *testing.T) {
	text := "export PS1='◉ $(pwd)──➤ \\n'\r\n◉ /home/user──➤ \n"
	dir, ok := PromptWorkingDir(text)
	if !ok || dir != "/home/user" {
		t.Errorf("expected /home/user, got %q ok=%v", dir, ok)
	}

	_, ok = PromptWorkingDir("export PS1='◉ $(pwd)──➤ \\n'\r\n")
	if ok {
		t.Error("expected no working dir from the echoed setup line alone")
	}
}

func TestStripPrompts(t *testing.T) {
	got := StripPrompts("output\n◉ /tmp──➤ more")
	if got != "output\n more" {
		t.Errorf("expected sentinel stripped, got %q", got)
	}
}
