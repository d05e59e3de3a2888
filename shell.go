package shellterm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// MaxOutputSize bounds the raw output accumulated for one command
	// stream. Past it, the trailing half is kept.
	MaxOutputSize = 1000000

	// TruncationBanner is prepended to the output buffer when the head of
	// the stream has been discarded.
	TruncationBanner = "\n(...output truncated...)\n"

	readBufferSize   = 8192
	readPollInterval = 10 * time.Millisecond
	promptDrainTime  = 100 * time.Millisecond

	// interruptGrace is how long each Ctrl-C gets to take effect before
	// the next rung of the escalation ladder.
	interruptGrace = 250 * time.Millisecond

	// promptSetup is written to bash stdin once after spawn. It installs
	// the prompt sentinel used for completion detection and cwd
	// extraction, and neutralizes pagers. The sentinel ends with a newline
	// so command output never shares a rendered line with it.
	promptSetup = `export PS1='◉ $(pwd)──➤ \n' PROMPT_COMMAND= GIT_PAGER=cat PAGER=cat`
)

// promptPattern matches the prompt sentinel; the capture group is the
// shell's working directory at prompt time.
var promptPattern = regexp.MustCompile(`◉ ([^\n]*)──➤`)

// setupEchoCwd is what the capture group holds when the match is terminal
// echo of the setup line itself rather than a rendered prompt.
var setupEchoCwd = []byte("$(pwd)")

// sentinelVisible reports whether data contains a real rendered prompt.
// A PTY echoes the setup line back before bash executes it, sentinel
// included, so matches still carrying the literal $(pwd) do not count.
func sentinelVisible(data []byte) bool {
	for _, m := range promptPattern.FindAllSubmatch(data, -1) {
		if !bytes.Contains(m[1], setupEchoCwd) {
			return true
		}
	}
	return false
}

// ContainsPrompt reports whether text contains the prompt sentinel.
func ContainsPrompt(text string) bool {
	return sentinelVisible([]byte(text))
}

// PromptWorkingDir extracts the working directory from the last prompt
// sentinel in text.
func PromptWorkingDir(text string) (string, bool) {
	matches := promptPattern.FindAllStringSubmatch(text, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		if !strings.Contains(matches[i][1], string(setupEchoCwd)) {
			return matches[i][1], true
		}
	}
	return "", false
}

// StripPrompts removes every prompt sentinel line artifact from text.
func StripPrompts(text string) string {
	return promptPattern.ReplaceAllString(text, "")
}

// CommandState describes what the shell is doing. The zero value is idle.
type CommandState struct {
	Running bool
	Command string
	Started time.Time
}

// InteractiveShell supervises a long-lived bash process over pipes.
//
// bash runs interactively (-i) so it prints the prompt sentinel after each
// command; stdout and stderr are read with short deadlines, so a caller is
// never stuck behind a command that produces no output. Accumulated output
// is bounded by MaxOutputSize, keeping the trailing half. Interrupting a
// stuck command escalates SIGINT, SIGINT, SIGTERM, and never SIGKILL, so
// the foreground process gets every chance to clean up.
type InteractiveShell struct {
	mu sync.Mutex

	logger     *zap.Logger
	dir        string
	restricted bool
	cols       int
	rows       int
	maxOutput  int
	patience   int

	cmd    *exec.Cmd
	stdin  *os.File
	stdout *os.File
	stderr *os.File
	exited chan struct{}
	code   int

	state     CommandState
	output    bytes.Buffer
	mark      int
	truncated bool
	restarts  int
}

// ShellOption configures an InteractiveShell during construction.
type ShellOption func(*InteractiveShell)

// WithShellDir sets the initial working directory.
func WithShellDir(dir string) ShellOption {
	return func(s *InteractiveShell) { s.dir = dir }
}

// WithRestrictedMode starts bash with -r, which forbids cd, PATH changes,
// and output redirection.
func WithRestrictedMode() ShellOption {
	return func(s *InteractiveShell) { s.restricted = true }
}

// WithShellLogger sets the logger for shell lifecycle events.
func WithShellLogger(logger *zap.Logger) ShellOption {
	return func(s *InteractiveShell) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithShellSize sets the COLUMNS and LINES the child sees.
func WithShellSize(cols, rows int) ShellOption {
	return func(s *InteractiveShell) {
		if cols > 0 {
			s.cols = cols
		}
		if rows > 0 {
			s.rows = rows
		}
	}
}

// WithMaxOutputSize overrides the output accumulation bound.
func WithMaxOutputSize(n int) ShellOption {
	return func(s *InteractiveShell) {
		if n > 0 {
			s.maxOutput = n
		}
	}
}

// WithPatience sets how many consecutive empty read polls ReadOutput
// tolerates before returning early with the command still running.
// 0 means waiting the full timeout.
func WithPatience(n int) ShellOption {
	return func(s *InteractiveShell) { s.patience = n }
}

// NewInteractiveShell spawns bash and primes the prompt sentinel.
func NewInteractiveShell(opts ...ShellOption) (*InteractiveShell, error) {
	s := &InteractiveShell{
		logger:    zap.NewNop(),
		cols:      DefaultCols,
		rows:      24,
		maxOutput: MaxOutputSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dir == "" {
		dir, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		s.dir = dir
	}

	if err := s.spawn(); err != nil {
		return nil, err
	}
	return s, nil
}

// spawn starts a fresh bash process. Callers hold no lock; the shell is
// not yet shared when spawn runs (construction or under the state lock).
func (s *InteractiveShell) spawn() error {
	args := []string{"-i"}
	if s.restricted {
		args = append(args, "-r")
	}

	cmd := exec.Command("bash", args...)
	cmd.Dir = s.dir
	cmd.Env = append(os.Environ(),
		"TERM=xterm-256color",
		"COLORTERM=truecolor",
		"PAGER=cat",
		"GIT_PAGER=cat",
		fmt.Sprintf("COLUMNS=%d", s.cols),
		fmt.Sprintf("LINES=%d", s.rows),
	)
	configureProcGroup(cmd)

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("creating stdin pipe: %w", err)
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}

	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting bash: %w", err)
	}
	stdinR.Close()
	stdoutW.Close()
	stderrW.Close()

	if err := preparePipe(stdoutR); err != nil {
		return fmt.Errorf("preparing stdout pipe: %w", err)
	}
	if err := preparePipe(stderrR); err != nil {
		return fmt.Errorf("preparing stderr pipe: %w", err)
	}

	s.cmd = cmd
	s.stdin = stdinW
	s.stdout = stdoutR
	s.stderr = stderrR
	s.state = CommandState{}
	s.mark = s.output.Len()

	exited := make(chan struct{})
	s.exited = exited
	go func() {
		_ = cmd.Wait()
		s.mu.Lock()
		s.code = cmd.ProcessState.ExitCode()
		s.mu.Unlock()
		close(exited)
	}()

	if _, err := fmt.Fprintln(s.stdin, promptSetup); err != nil {
		return fmt.Errorf("priming prompt: %w", err)
	}

	s.logger.Info("bash spawned",
		zap.Int("pid", cmd.Process.Pid),
		zap.String("dir", s.dir),
		zap.Bool("restricted", s.restricted),
	)
	return nil
}

// IsAlive reports whether the bash process is still running.
func (s *InteractiveShell) IsAlive() bool {
	s.mu.Lock()
	exited := s.exited
	s.mu.Unlock()

	if exited == nil {
		return false
	}
	select {
	case <-exited:
		return false
	default:
		return true
	}
}

// ExitCode returns the exit code of a dead shell.
func (s *InteractiveShell) ExitCode() (int, bool) {
	if s.IsAlive() {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code, true
}

// EnsureAlive respawns bash if it has died. It reports whether a restart
// happened so callers can tell the user state was lost.
func (s *InteractiveShell) EnsureAlive() (restarted bool, err error) {
	if s.IsAlive() {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("bash died, respawning", zap.Int("exitCode", s.code))
	if err := s.spawn(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrShellNotAlive, err)
	}
	s.restarts++
	return true, nil
}

// Restarts returns how many times the shell has been respawned.
func (s *InteractiveShell) Restarts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restarts
}

// State returns the current command state.
func (s *InteractiveShell) State() CommandState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Truncated reports whether the head of the output stream was discarded.
func (s *InteractiveShell) Truncated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.truncated
}

// OutputBuffer returns the accumulated raw output stream.
func (s *InteractiveShell) OutputBuffer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output.String()
}

// SendCommand submits a command line. It fails with *CommandRunningError
// if the previous command has not completed.
func (s *InteractiveShell) SendCommand(command string) error {
	if _, err := s.EnsureAlive(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.state.Running {
		err := &CommandRunningError{Command: s.state.Command, Started: s.state.Started}
		s.mu.Unlock()
		return err
	}
	stdout, stderr := s.stdout, s.stderr
	s.mu.Unlock()

	// Flush stale pipe bytes first so prompts from earlier commands land
	// before the mark; only a sentinel printed past it means this command
	// completed.
	var stale bytes.Buffer
	for s.readPipe(stdout, time.Millisecond, &stale)+s.readPipe(stderr, time.Millisecond, &stale) > 0 {
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdin == nil {
		return ErrShellNotAlive
	}
	if _, err := fmt.Fprintln(s.stdin, command); err != nil {
		return fmt.Errorf("writing command: %w", err)
	}
	s.mark = s.output.Len()
	s.state = CommandState{Running: true, Command: command, Started: time.Now()}
	return nil
}

// SendText writes raw bytes to the shell's stdin without a trailing newline.
func (s *InteractiveShell) SendText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdin == nil {
		return ErrShellNotAlive
	}
	if _, err := io.WriteString(s.stdin, text); err != nil {
		return fmt.Errorf("writing to shell: %w", err)
	}
	return nil
}

// SendKey sends a special key as raw terminal input.
func (s *InteractiveShell) SendKey(k Key) error {
	b, err := k.Bytes()
	if err != nil {
		return err
	}
	return s.SendText(string(b))
}

// ReadOutput drains shell output until the prompt sentinel appears, the
// process exits, timeout elapses, ctx is canceled, or (with patience set)
// the stream goes quiet. It returns the new output since the last read and
// whether the command completed. The state lock is never held while
// sleeping.
func (s *InteractiveShell) ReadOutput(ctx context.Context, timeout time.Duration) (string, bool, error) {
	if timeout <= 0 {
		timeout = time.Second
	}
	deadline := time.Now().Add(timeout)

	var collected bytes.Buffer
	complete := false
	emptyStreak := 0

	for {
		n, exited := s.readOnce(readPollInterval, &collected)

		if n > 0 {
			emptyStreak = 0
		} else {
			emptyStreak++
		}
		if s.promptVisible() {
			complete = true
			break
		}
		if n == 0 {
			if exited {
				break
			}
			if s.patience > 0 && emptyStreak >= s.patience {
				break
			}
		}

		if time.Now().After(deadline) {
			break
		}
		if err := ctx.Err(); err != nil {
			return collected.String(), false, err
		}
	}

	if complete {
		// Late stragglers: the prompt can arrive before the last stdout
		// flush of the command crosses the pipe.
		drainUntil := time.Now().Add(promptDrainTime)
		for time.Now().Before(drainUntil) {
			if n, _ := s.readOnce(time.Millisecond, &collected); n == 0 {
				break
			}
		}
		s.mu.Lock()
		s.state = CommandState{}
		s.mu.Unlock()
	}

	return collected.String(), complete, nil
}

// readOnce waits up to wait for output on either pipe and collects
// whatever arrives. The state lock is held only while appending to the
// stream buffer, never across a read that can park.
func (s *InteractiveShell) readOnce(wait time.Duration, collected *bytes.Buffer) (n int, exitedNow bool) {
	s.mu.Lock()
	stdout, stderr := s.stdout, s.stderr
	exited := s.exited
	s.mu.Unlock()

	n += s.readPipe(stdout, wait, collected)
	n += s.readPipe(stderr, time.Millisecond, collected)

	if exited != nil {
		select {
		case <-exited:
			exitedNow = true
		default:
		}
	}
	return n, exitedNow
}

// readPipe performs one deadline-bounded read, appending to both the
// bounded stream buffer and the caller's collection buffer. The runtime
// poller parks the goroutine until data arrives or the deadline fires, so
// wait doubles as the poll interval.
func (s *InteractiveShell) readPipe(f *os.File, wait time.Duration, collected *bytes.Buffer) int {
	if f == nil {
		return 0
	}

	buf := make([]byte, readBufferSize)
	_ = f.SetReadDeadline(time.Now().Add(wait))
	n, err := f.Read(buf)
	if n > 0 {
		s.mu.Lock()
		s.appendBounded(buf[:n])
		s.mu.Unlock()
		collected.Write(buf[:n])
	}
	if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) && err != io.EOF {
		s.logger.Debug("pipe read failed", zap.Error(err))
	}
	return n
}

// appendBounded grows the stream buffer, keeping only the trailing half
// once maxOutput is exceeded.
func (s *InteractiveShell) appendBounded(chunk []byte) {
	s.output.Write(chunk)
	if s.output.Len() <= s.maxOutput {
		return
	}

	data := s.output.Bytes()
	keep := s.maxOutput / 2
	tail := make([]byte, keep)
	copy(tail, data[len(data)-keep:])

	dropped := len(data) - keep - len(TruncationBanner)
	s.output.Reset()
	s.output.WriteString(TruncationBanner)
	s.output.Write(tail)
	s.mark -= dropped
	if s.mark < 0 {
		s.mark = 0
	}
	s.truncated = true
	s.logger.Warn("output buffer truncated", zap.Int("kept", keep))
}

// promptVisible checks the output produced since the current command was
// submitted for the sentinel.
func (s *InteractiveShell) promptVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.output.Bytes()
	if s.mark > 0 && s.mark <= len(data) {
		data = data[s.mark:]
	}
	if len(data) > 4096 {
		data = data[len(data)-4096:]
	}
	return sentinelVisible(data)
}

// Interrupt walks the escalation ladder against a stuck command in one
// call: SIGINT to the process group (the pipe equivalent of Ctrl-C, which
// only a tty line discipline could translate), a grace period, a second
// SIGINT if the command survives, then SIGTERM. SIGKILL is never sent; a
// command immune to all three stays Running.
func (s *InteractiveShell) Interrupt() error {
	s.mu.Lock()
	if s.cmd == nil || s.cmd.Process == nil {
		s.mu.Unlock()
		return ErrShellNotAlive
	}
	pid := s.cmd.Process.Pid
	s.mu.Unlock()

	for attempt := 1; attempt <= 2; attempt++ {
		if err := signalGroup(pid, interruptSignal); err != nil {
			return fmt.Errorf("delivering signal: %w", err)
		}
		s.logger.Info("sent SIGINT", zap.Int("attempt", attempt))
		if s.settled(interruptGrace) {
			return nil
		}
	}

	s.logger.Info("sent SIGTERM")
	if err := signalGroup(pid, terminateSignal); err != nil {
		return fmt.Errorf("delivering signal: %w", err)
	}
	s.settled(interruptGrace)
	return nil
}

// settled drains output for up to grace and reports whether the
// foreground command gave the prompt back or the shell exited. Seeing the
// prompt resets the command state.
func (s *InteractiveShell) settled(grace time.Duration) bool {
	deadline := time.Now().Add(grace)
	var sink bytes.Buffer
	for time.Now().Before(deadline) {
		_, exited := s.readOnce(readPollInterval, &sink)
		if s.promptVisible() {
			s.mu.Lock()
			s.state = CommandState{}
			s.mu.Unlock()
			return true
		}
		if exited {
			return true
		}
	}
	return false
}

// Close shuts the shell down: stdin is closed so bash sees EOF, then the
// process group gets SIGTERM. It does not wait for exit.
func (s *InteractiveShell) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdin != nil {
		s.stdin.Close()
		s.stdin = nil
	}
	if s.cmd != nil && s.cmd.Process != nil {
		_ = signalGroup(s.cmd.Process.Pid, terminateSignal)
	}
	if s.stdout != nil {
		s.stdout.Close()
	}
	if s.stderr != nil {
		s.stderr.Close()
	}
	return nil
}
