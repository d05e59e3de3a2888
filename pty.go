//go:build !windows

package shellterm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"
)

const (
	// DefaultPtyCols and DefaultPtyRows size the pseudo-terminal.
	DefaultPtyCols = 200
	DefaultPtyRows = 50

	ptyReadBuffer = 4096
)

// PtyShell supervises bash on a real pseudo-terminal.
//
// Some programs (editors, REPLs, anything calling isatty) refuse to behave
// on pipes; PtyShell gives them a terminal. A reader goroutine pumps the
// PTY into a channel, so reads never block the caller. Completion
// detection, output bounding, and the interrupt ladder mirror
// InteractiveShell, except Ctrl-C is typed into the terminal (the line
// discipline delivers the SIGINT) before SIGTERM is used.
type PtyShell struct {
	mu sync.Mutex

	logger     *zap.Logger
	dir        string
	restricted bool
	cols       uint16
	rows       uint16
	maxOutput  int

	cmd    *exec.Cmd
	ptmx   *os.File
	chunks chan []byte
	exited chan struct{}
	code   int

	state     CommandState
	output    bytes.Buffer
	mark      int
	truncated bool
}

// PtyOption configures a PtyShell during construction.
type PtyOption func(*PtyShell)

// WithPtyDir sets the initial working directory.
func WithPtyDir(dir string) PtyOption {
	return func(p *PtyShell) { p.dir = dir }
}

// WithPtyRestrictedMode starts bash with -r.
func WithPtyRestrictedMode() PtyOption {
	return func(p *PtyShell) { p.restricted = true }
}

// WithPtySize sets the terminal dimensions.
func WithPtySize(cols, rows int) PtyOption {
	return func(p *PtyShell) {
		if cols > 0 {
			p.cols = uint16(cols)
		}
		if rows > 0 {
			p.rows = uint16(rows)
		}
	}
}

// WithPtyLogger sets the logger for shell lifecycle events.
func WithPtyLogger(logger *zap.Logger) PtyOption {
	return func(p *PtyShell) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPtyShell spawns bash on a fresh PTY and primes the prompt sentinel.
func NewPtyShell(opts ...PtyOption) (*PtyShell, error) {
	p := &PtyShell{
		logger:    zap.NewNop(),
		cols:      DefaultPtyCols,
		rows:      DefaultPtyRows,
		maxOutput: MaxOutputSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.dir == "" {
		dir, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		p.dir = dir
	}

	if err := p.spawn(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PtyShell) spawn() error {
	args := []string{"-i"}
	if p.restricted {
		args = append(args, "-r")
	}

	cmd := exec.Command("bash", args...)
	cmd.Dir = p.dir
	cmd.Env = append(os.Environ(),
		"TERM=xterm-256color",
		"COLORTERM=truecolor",
		"PAGER=cat",
		"GIT_PAGER=cat",
	)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: p.rows, Cols: p.cols})
	if err != nil {
		return fmt.Errorf("starting bash on pty: %w", err)
	}

	p.cmd = cmd
	p.ptmx = ptmx
	p.state = CommandState{}
	p.mark = p.output.Len()

	chunks := make(chan []byte, 256)
	p.chunks = chunks
	go func() {
		defer close(chunks)
		buf := make([]byte, ptyReadBuffer)
		for {
			n, err := ptmx.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				chunks <- chunk
			}
			if err != nil {
				return
			}
		}
	}()

	exited := make(chan struct{})
	p.exited = exited
	go func() {
		_ = cmd.Wait()
		p.mu.Lock()
		p.code = cmd.ProcessState.ExitCode()
		p.mu.Unlock()
		close(exited)
	}()

	if _, err := fmt.Fprintln(ptmx, promptSetup); err != nil {
		return fmt.Errorf("priming prompt: %w", err)
	}

	p.logger.Info("bash spawned on pty",
		zap.Int("pid", cmd.Process.Pid),
		zap.Uint16("cols", p.cols),
		zap.Uint16("rows", p.rows),
	)
	return nil
}

// IsAlive reports whether the bash process is still running.
func (p *PtyShell) IsAlive() bool {
	p.mu.Lock()
	exited := p.exited
	p.mu.Unlock()

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

// EnsureAlive respawns bash on a new PTY if it has died.
func (p *PtyShell) EnsureAlive() (restarted bool, err error) {
	if p.IsAlive() {
		return false, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ptmx != nil {
		p.ptmx.Close()
	}
	p.logger.Info("bash died, respawning on new pty", zap.Int("exitCode", p.code))
	if err := p.spawn(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrShellNotAlive, err)
	}
	return true, nil
}

// State returns the current command state.
func (p *PtyShell) State() CommandState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Truncated reports whether the head of the output stream was discarded.
func (p *PtyShell) Truncated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.truncated
}

// OutputBuffer returns the accumulated raw output stream.
func (p *PtyShell) OutputBuffer() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.output.String()
}

// SendCommand submits a command line. It fails with *CommandRunningError
// if the previous command has not completed.
func (p *PtyShell) SendCommand(command string) error {
	if _, err := p.EnsureAlive(); err != nil {
		return err
	}

	// Flush queued chunks first so prompts from earlier commands land
	// before the mark; only a sentinel printed past it means this command
	// completed.
	p.Drain()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Running {
		return &CommandRunningError{Command: p.state.Command, Started: p.state.Started}
	}

	if _, err := fmt.Fprintln(p.ptmx, command); err != nil {
		return fmt.Errorf("writing command: %w", err)
	}
	p.mark = p.output.Len()
	p.state = CommandState{Running: true, Command: command, Started: time.Now()}
	return nil
}

// SendText writes raw bytes to the terminal without a trailing newline.
func (p *PtyShell) SendText(text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ptmx == nil {
		return ErrShellNotAlive
	}
	if _, err := io.WriteString(p.ptmx, text); err != nil {
		return fmt.Errorf("writing to pty: %w", err)
	}
	return nil
}

// SendKey sends a special key as raw terminal input.
func (p *PtyShell) SendKey(k Key) error {
	b, err := k.Bytes()
	if err != nil {
		return err
	}
	return p.SendText(string(b))
}

// Drain appends any output already pumped off the PTY to the stream
// buffer and returns it. It never blocks.
func (p *PtyShell) Drain() string {
	var collected bytes.Buffer
	p.drainChannel(&collected)
	return collected.String()
}

func (p *PtyShell) drainChannel(collected *bytes.Buffer) int {
	n := 0
	for {
		select {
		case chunk, ok := <-p.chunks:
			if !ok {
				return n
			}
			n += len(chunk)
			collected.Write(chunk)
			p.mu.Lock()
			p.appendBounded(chunk)
			p.mu.Unlock()
		default:
			return n
		}
	}
}

// appendBounded mirrors InteractiveShell: past maxOutput only the trailing
// half of the stream survives, behind a truncation banner.
// Callers hold the lock.
func (p *PtyShell) appendBounded(chunk []byte) {
	p.output.Write(chunk)
	if p.output.Len() <= p.maxOutput {
		return
	}

	data := p.output.Bytes()
	keep := p.maxOutput / 2
	tail := make([]byte, keep)
	copy(tail, data[len(data)-keep:])

	dropped := len(data) - keep - len(TruncationBanner)
	p.output.Reset()
	p.output.WriteString(TruncationBanner)
	p.output.Write(tail)
	p.mark -= dropped
	if p.mark < 0 {
		p.mark = 0
	}
	p.truncated = true
	p.logger.Warn("output buffer truncated", zap.Int("kept", keep))
}

// ReadOutput drains terminal output until the prompt sentinel appears, the
// process exits, timeout elapses, or ctx is canceled. After the prompt is
// seen it keeps draining briefly so trailing flushes are not lost.
func (p *PtyShell) ReadOutput(ctx context.Context, timeout time.Duration) (string, bool, error) {
	if timeout <= 0 {
		timeout = time.Second
	}
	deadline := time.Now().Add(timeout)

	var collected bytes.Buffer
	var promptSeen time.Time

	for {
		n := p.drainChannel(&collected)

		if promptSeen.IsZero() && p.promptVisible() {
			promptSeen = time.Now()
		}
		if !promptSeen.IsZero() && time.Since(promptSeen) >= promptDrainTime {
			break
		}

		if !p.IsAlive() && n == 0 {
			break
		}
		if time.Now().After(deadline) {
			break
		}

		select {
		case <-ctx.Done():
			return collected.String(), false, ctx.Err()
		case <-time.After(readPollInterval):
		}
	}

	complete := !promptSeen.IsZero()
	if complete {
		p.mu.Lock()
		p.state = CommandState{}
		p.mu.Unlock()
	}
	return collected.String(), complete, nil
}

func (p *PtyShell) promptVisible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	data := p.output.Bytes()
	if p.mark > 0 && p.mark <= len(data) {
		data = data[p.mark:]
	}
	if len(data) > 4096 {
		data = data[len(data)-4096:]
	}
	return sentinelVisible(data)
}

// Interrupt walks the escalation ladder against a stuck command in one
// call: Ctrl-C typed into the terminal (the line discipline raises SIGINT
// in the foreground group), a grace period, a second Ctrl-C if the
// command survives, then SIGTERM to the process group. SIGKILL is never
// sent; a command immune to all three stays Running.
func (p *PtyShell) Interrupt() error {
	p.mu.Lock()
	if p.ptmx == nil || p.cmd == nil || p.cmd.Process == nil {
		p.mu.Unlock()
		return ErrShellNotAlive
	}
	ptmx := p.ptmx
	pid := p.cmd.Process.Pid
	p.mu.Unlock()

	for attempt := 1; attempt <= 2; attempt++ {
		if _, err := ptmx.Write(keyBytes[KeyCtrlC]); err != nil {
			return fmt.Errorf("interrupting: %w", err)
		}
		p.logger.Info("sent Ctrl-C", zap.Int("attempt", attempt))
		if p.settled(interruptGrace) {
			return nil
		}
	}

	p.logger.Info("sent SIGTERM")
	if err := signalGroup(pid, terminateSignal); err != nil {
		return fmt.Errorf("interrupting: %w", err)
	}
	p.settled(interruptGrace)
	return nil
}

// settled drains output for up to grace and reports whether the
// foreground command gave the prompt back or the shell exited. Seeing the
// prompt resets the command state.
func (p *PtyShell) settled(grace time.Duration) bool {
	deadline := time.Now().Add(grace)
	var sink bytes.Buffer
	for time.Now().Before(deadline) {
		p.drainChannel(&sink)
		if p.promptVisible() {
			p.mu.Lock()
			p.state = CommandState{}
			p.mu.Unlock()
			return true
		}
		if !p.IsAlive() {
			return true
		}
		time.Sleep(readPollInterval)
	}
	return false
}

// Resize changes the terminal dimensions.
func (p *PtyShell) Resize(cols, rows int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ptmx == nil {
		return ErrShellNotAlive
	}
	if cols <= 0 || rows <= 0 {
		return fmt.Errorf("invalid size %dx%d", cols, rows)
	}
	p.cols = uint16(cols)
	p.rows = uint16(rows)
	return pty.Setsize(p.ptmx, &pty.Winsize{Rows: p.rows, Cols: p.cols})
}

// Close shuts the shell down: the PTY is closed (bash sees a hangup) and
// the process group gets SIGTERM. It does not wait for exit.
func (p *PtyShell) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ptmx != nil {
		p.ptmx.Close()
		p.ptmx = nil
	}
	if p.cmd != nil && p.cmd.Process != nil {
		_ = signalGroup(p.cmd.Process.Pid, terminateSignal)
	}
	return nil
}
