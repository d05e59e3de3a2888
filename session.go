package shellterm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StatusCheck is the command alias that polls a running command instead of
// starting a new one. An empty command does the same.
const StatusCheck = "status_check"

// reportSeparator divides rendered output from the status block.
const reportSeparator = "\n\n---\n\n"

// probeCommand runs after every completed command: it reports the
// command's exit code, the background job table, and the working
// directory in one round trip. Its output never reaches the caller.
const probeCommand = `__st_ec=$?; echo "::exit=${__st_ec}::"; jobs -l; pwd; unset __st_ec`

var (
	exitMarkerPattern = regexp.MustCompile(`::exit=(-?\d+)::`)
	jobLinePattern    = regexp.MustCompile(`(?m)^\[\d+\]`)
)

// Session is the agent-facing execution surface: one bash process, one
// terminal rendering pipeline, one working directory.
//
// ExecuteInteractive never blocks past its timeout: a command that is
// still running is reported as such and polled on subsequent calls with
// an empty command. The session lock is never held while waiting on the
// shell.
type Session struct {
	mu sync.Mutex

	id            string
	cwd           string
	workspaceRoot string
	restricted    bool
	cfg           Config
	logger        *zap.Logger

	shell    *InteractiveShell
	renderer *Renderer

	// lastPending is the raw stream snapshot at the last report; rendering
	// diffs against it so each report carries only new output.
	lastPending string
	bgJobs      int
}

// SessionOption configures a Session during construction.
type SessionOption func(*Session)

// WithSessionID sets an opaque identifier carried in snapshots.
func WithSessionID(id string) SessionOption {
	return func(s *Session) { s.id = id }
}

// WithSessionDir sets the starting working directory.
func WithSessionDir(dir string) SessionOption {
	return func(s *Session) { s.cwd = dir }
}

// WithWorkspaceRoot records the workspace the session must not escape.
func WithWorkspaceRoot(dir string) SessionOption {
	return func(s *Session) { s.workspaceRoot = dir }
}

// WithSessionRestricted runs the underlying bash in restricted mode.
func WithSessionRestricted() SessionOption {
	return func(s *Session) { s.restricted = true }
}

// WithSessionConfig overrides the session tunables.
func WithSessionConfig(cfg Config) SessionOption {
	return func(s *Session) { s.cfg = cfg }
}

// WithSessionLogger sets the logger shared with the shell and renderer.
func WithSessionLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession creates a session. The bash process starts lazily on the
// first ExecuteInteractive call.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		cfg:    DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.renderer = NewRenderer(
		WithRenderColumns(s.cfg.Columns),
		WithRenderCache(NewRenderCache(s.cfg.CacheCapacity, s.cfg.CacheTTL)),
	)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Cwd returns the shell's last known working directory.
func (s *Session) Cwd() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cwd
}

// WorkspaceRoot returns the configured workspace root.
func (s *Session) WorkspaceRoot() string { return s.workspaceRoot }

// SessionSnapshot is the opaque state needed to recreate a session
// elsewhere. Live process state is deliberately not part of it.
type SessionSnapshot struct {
	ID            string `json:"id"`
	Cwd           string `json:"cwd"`
	WorkspaceRoot string `json:"workspace_root"`
	Restricted    bool   `json:"restricted"`
}

// Snapshot captures the restorable session state.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		ID:            s.id,
		Cwd:           s.cwd,
		WorkspaceRoot: s.workspaceRoot,
		Restricted:    s.restricted,
	}
}

// RestoreSession builds a fresh session from a snapshot. The bash process
// starts lazily, in the snapshot's working directory.
func RestoreSession(snap SessionSnapshot, opts ...SessionOption) *Session {
	base := []SessionOption{
		WithSessionID(snap.ID),
		WithSessionDir(snap.Cwd),
		WithWorkspaceRoot(snap.WorkspaceRoot),
	}
	if snap.Restricted {
		base = append(base, WithSessionRestricted())
	}
	return NewSession(append(base, opts...)...)
}

// ensureShell lazily spawns the bash process and swallows its startup
// banner so the first command's output starts clean.
func (s *Session) ensureShell(ctx context.Context) error {
	s.mu.Lock()
	if s.shell != nil {
		s.mu.Unlock()
		return nil
	}

	shellOpts := []ShellOption{
		WithShellLogger(s.logger),
		WithShellSize(s.cfg.Columns, s.cfg.Rows),
		WithMaxOutputSize(s.cfg.MaxOutputBytes),
	}
	if s.cwd != "" {
		shellOpts = append(shellOpts, WithShellDir(s.cwd))
	}
	if s.restricted {
		shellOpts = append(shellOpts, WithRestrictedMode())
	}

	shell, err := NewInteractiveShell(shellOpts...)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("starting shell: %w", err)
	}
	s.shell = shell
	s.mu.Unlock()

	// Wait for the first prompt outside the lock.
	_, _, _ = shell.ReadOutput(ctx, 2*time.Second)

	s.mu.Lock()
	s.lastPending = shell.OutputBuffer()
	if cwd, ok := PromptWorkingDir(s.lastPending); ok {
		s.cwd = cwd
	}
	s.mu.Unlock()
	return nil
}

// ExecuteInteractive runs a command in the session's shell, or polls the
// running one when command is empty or StatusCheck. The returned text is
// the rendered terminal output, a separator, and a status block:
//
//	<output>
//
//	---
//
//	status = process exited with code 0
//	cwd = /home/user
//
// Submitting a non-empty command while one is running fails with
// *CommandRunningError. The call returns within timeout (plus a short
// probe) even if the command does not finish.
func (s *Session) ExecuteInteractive(ctx context.Context, command string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = s.cfg.DefaultTimeout
	}
	if err := s.ensureShell(ctx); err != nil {
		return "", err
	}

	trimmed := strings.TrimSpace(command)
	statusCheck := trimmed == "" || trimmed == StatusCheck

	state := s.shell.State()
	if state.Running {
		if !statusCheck {
			return "", &CommandRunningError{Command: state.Command, Started: state.Started}
		}
		// One bounded read; the command may well complete during it.
		poll := 500 * time.Millisecond
		if timeout < poll {
			poll = timeout
		}
		_, _, err := s.shell.ReadOutput(ctx, poll)
		if err != nil {
			return "", err
		}
		return s.report(ctx)
	}

	if statusCheck {
		// Nothing running: drain anything pending and report idle state.
		_, _, _ = s.shell.ReadOutput(ctx, 100*time.Millisecond)
		return s.report(ctx)
	}

	if err := s.shell.SendCommand(command); err != nil {
		return "", err
	}
	s.waitForCompletion(ctx, timeout)
	return s.report(ctx)
}

// waitForCompletion polls the shell until the command finishes, the
// timeout elapses, ctx is canceled, or the stream stays quiet for three
// consecutive polls. Poll intervals grow with elapsed time.
func (s *Session) waitForCompletion(ctx context.Context, timeout time.Duration) {
	start := time.Now()

	// Fast commands finish inside the initial read.
	out, complete, err := s.shell.ReadOutput(ctx, 500*time.Millisecond)
	if complete || err != nil {
		return
	}

	emptyPolls := 0
	if out == "" {
		emptyPolls = 1
	}

	for {
		elapsed := time.Since(start)
		if elapsed >= timeout || ctx.Err() != nil {
			return
		}

		interval := pollInterval(elapsed, timeout)
		if remaining := timeout - elapsed; interval > remaining {
			interval = remaining
		}

		out, complete, err = s.shell.ReadOutput(ctx, interval)
		if complete || err != nil {
			return
		}
		if out == "" {
			emptyPolls++
			if emptyPolls >= 3 {
				return
			}
		} else {
			emptyPolls = 0
		}
	}
}

// pollInterval implements the adaptive schedule: short intervals early so
// fast commands return promptly, long intervals late so slow commands do
// not burn cycles.
func pollInterval(elapsed, timeout time.Duration) time.Duration {
	fraction := float64(elapsed) / float64(timeout)
	switch {
	case fraction < 0.05:
		return 100 * time.Millisecond
	case fraction < 0.15:
		return 200 * time.Millisecond
	case fraction < 0.40:
		return 500 * time.Millisecond
	case fraction < 0.70:
		return time.Second
	default:
		return 2 * time.Second
	}
}

// report renders the output accumulated since the last report and appends
// the status block. For completed commands it runs the probe round trip
// first, refreshing exit code, job count, and working directory.
func (s *Session) report(ctx context.Context) (string, error) {
	stream := s.shell.OutputBuffer()

	s.mu.Lock()
	lastPending := s.lastPending
	s.mu.Unlock()

	rendered := s.renderer.IncrementalText(stream, lastPending)
	rendered = strings.TrimRight(StripPrompts(rendered), " \n")

	state := s.shell.State()
	var status string

	switch {
	case !s.shell.IsAlive():
		code, _ := s.shell.ExitCode()
		if code < 0 {
			status = "process killed"
		} else {
			status = fmt.Sprintf("process exited with code %d", code)
		}
		if restarted, err := s.shell.EnsureAlive(); err != nil {
			status += "; shell could not be restarted"
		} else if restarted {
			rendered = appendNote(rendered, "(shell died and was restarted; environment variables and directory changes were lost)")
			_, _, _ = s.shell.ReadOutput(ctx, time.Second)
		}
		s.mu.Lock()
		s.lastPending = s.shell.OutputBuffer()
		s.mu.Unlock()

	case state.Running:
		s.mu.Lock()
		s.lastPending = stream
		s.mu.Unlock()
		status = "still running"

	default:
		exitCode, jobs, cwd := s.probe(ctx)
		s.mu.Lock()
		s.bgJobs = jobs
		if cwd != "" {
			s.cwd = cwd
		}
		s.lastPending = s.shell.OutputBuffer()
		s.mu.Unlock()

		status = fmt.Sprintf("process exited with code %d", exitCode)
		if jobs > 0 {
			status += fmt.Sprintf("; %d background job(s) running", jobs)
		}
	}

	if s.shell.Truncated() {
		rendered = appendNote(rendered, "(earlier output was dropped to bound memory)")
	}

	return rendered + reportSeparator + "status = " + status + "\ncwd = " + s.Cwd(), nil
}

// probe runs probeCommand and parses exit code, background job count, and
// working directory from its output. Probe output is consumed into
// lastPending by the caller so it never surfaces to the agent.
func (s *Session) probe(ctx context.Context) (exitCode, jobs int, cwd string) {
	exitCode = -1
	pre := len(s.shell.OutputBuffer())

	if err := s.shell.SendCommand(probeCommand); err != nil {
		s.logger.Debug("probe submit failed", zap.Error(err))
		return exitCode, 0, ""
	}
	if _, complete, err := s.shell.ReadOutput(ctx, 2*time.Second); err != nil || !complete {
		s.logger.Debug("probe did not complete", zap.Error(err))
	}

	stream := s.shell.OutputBuffer()
	if pre > len(stream) {
		pre = 0
	}
	out := stream[pre:]

	if m := exitMarkerPattern.FindStringSubmatch(out); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			exitCode = n
		}
	}
	jobs = len(jobLinePattern.FindAllString(out, -1))
	if dir, ok := PromptWorkingDir(out); ok {
		cwd = dir
	}
	return exitCode, jobs, cwd
}

// BackgroundJobs returns the job count observed by the last probe.
func (s *Session) BackgroundJobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bgJobs
}

// SendText forwards raw input to the running command.
func (s *Session) SendText(text string) error {
	if s.shell == nil {
		return ErrShellNotAlive
	}
	return s.shell.SendText(text)
}

// SendKey forwards a special key to the running command.
func (s *Session) SendKey(k Key) error {
	if s.shell == nil {
		return ErrShellNotAlive
	}
	return s.shell.SendKey(k)
}

// Interrupt escalates against the running command (SIGINT, SIGINT,
// SIGTERM across successive calls).
func (s *Session) Interrupt() error {
	if s.shell == nil {
		return ErrShellNotAlive
	}
	return s.shell.Interrupt()
}

// Close shuts the session's shell down.
func (s *Session) Close() error {
	s.mu.Lock()
	shell := s.shell
	s.shell = nil
	s.mu.Unlock()

	if shell == nil {
		return nil
	}
	return shell.Close()
}

func appendNote(rendered, note string) string {
	if rendered == "" {
		return note
	}
	return rendered + "\n" + note
}
