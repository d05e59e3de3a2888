package shellterm

import (
	"io"
	"sync"

	"github.com/danielgatis/go-ansicode"
	"go.uber.org/zap"
)

const (
	// DefaultCols is the default screen width for rendering command output.
	DefaultCols = 160
	// DefaultMaxLines is the default screen line cap before eviction.
	DefaultMaxLines = 10000

	// LimitedBufferThreshold is the input size at which
	// ProcessWithLimitedBuffer starts truncating mid-stream.
	LimitedBufferThreshold = 500000

	processChunkSize = 4096
)

// Emulator feeds raw terminal bytes through an ANSI decoder into a Screen.
//
// All operations are safe for concurrent use. The decoder carries parser
// state across calls, so escape sequences and multi-byte UTF-8 runes split
// across chunk or call boundaries decode correctly.
type Emulator struct {
	mu        sync.Mutex
	screen    *Screen
	performer *Performer
	decoder   *ansicode.Decoder
	logger    *zap.Logger

	cols     int
	maxLines int
	response io.Writer
}

// EmulatorOption configures an Emulator during construction.
type EmulatorOption func(*Emulator)

// WithColumns sets the screen width. Values <= 0 use DefaultCols.
func WithColumns(cols int) EmulatorOption {
	return func(e *Emulator) {
		if cols > 0 {
			e.cols = cols
		}
	}
}

// WithMaxLines caps the number of retained screen lines; the oldest lines
// are evicted past the cap. Values <= 0 mean unbounded.
func WithMaxLines(n int) EmulatorOption {
	return func(e *Emulator) {
		e.maxLines = n
	}
}

// WithLogger sets the logger for decode diagnostics. Defaults to a nop logger.
func WithLogger(logger *zap.Logger) EmulatorOption {
	return func(e *Emulator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithResponse sets the writer for terminal query responses (cursor
// position reports and the like). If nil, responses are discarded.
func WithResponse(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		if w != nil {
			e.response = w
		}
	}
}

// NewEmulator creates an emulator with the given options.
// Defaults to 160 columns with a 10000-line cap.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		cols:     DefaultCols,
		maxLines: DefaultMaxLines,
		logger:   zap.NewNop(),
		response: NoopResponse{},
	}

	for _, opt := range opts {
		opt(e)
	}

	e.screen = NewScreen(e.cols, e.maxLines)
	e.performer = NewPerformer(e.screen, &e.mu, e.logger)
	e.performer.response = e.response
	e.decoder = ansicode.NewDecoder(e.performer)

	return e
}

// Cols returns the screen width in columns.
func (e *Emulator) Cols() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.screen.Cols()
}

// LineCount returns the number of materialized screen lines.
func (e *Emulator) LineCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.screen.LineCount()
}

// CursorPos returns the current cursor position (0-based).
func (e *Emulator) CursorPos() (row, col int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cur := e.screen.Cursor()
	return cur.Row, cur.Col
}

// Cell returns a copy of the cell at (row, col) and whether it exists.
func (e *Emulator) Cell(row, col int) (Cell, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cells := e.screen.Row(row)
	if col < 0 || col >= len(cells) {
		return Cell{}, false
	}
	return cells[col], true
}

// Performer returns the handler driving the screen, for state queries
// (title, modes, bell count, working directory).
func (e *Emulator) Performer() *Performer {
	return e.performer
}

// Process decodes text into the screen. Input is fed in 4096-byte chunks;
// sequences split across chunks decode correctly.
func (e *Emulator) Process(text string) {
	e.processBytes([]byte(text))
}

// ProcessWithLimitedBuffer decodes text while keeping the screen at or
// near maxLines rows. Inputs below LimitedBufferThreshold behave exactly
// like Process; larger inputs are truncated mid-stream with SmartTruncate
// so memory stays bounded no matter how much output a command produces.
func (e *Emulator) ProcessWithLimitedBuffer(text string, maxLines int) {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	if len(text) < LimitedBufferThreshold {
		e.Process(text)
		return
	}

	data := []byte(text)
	for len(data) > 0 {
		n := processChunkSize
		if n > len(data) {
			n = len(data)
		}
		e.decoder.Write(data[:n])
		data = data[n:]

		e.mu.Lock()
		if e.screen.LineCount() > maxLines {
			e.screen.SmartTruncate(maxLines)
		}
		e.mu.Unlock()
	}

	e.mu.Lock()
	e.screen.SmartTruncate(maxLines)
	e.mu.Unlock()
}

// Write implements io.Writer for raw byte feeds (PTY plumbing).
func (e *Emulator) Write(p []byte) (n int, err error) {
	e.processBytes(p)
	return len(p), nil
}

func (e *Emulator) processBytes(data []byte) {
	for len(data) > 0 {
		n := processChunkSize
		if n > len(data) {
			n = len(data)
		}
		e.decoder.Write(data[:n])
		data = data[n:]
	}
}

// Display returns the rendered screen lines, trailing blanks trimmed.
func (e *Emulator) Display() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.screen.Display()
}

// String returns the rendered screen as a newline-joined string.
func (e *Emulator) String() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.screen.String()
}

// PlainText returns every materialized row without trimming.
func (e *Emulator) PlainText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.screen.PlainText()
}

// Clear erases the screen and homes the cursor.
func (e *Emulator) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.screen.Clear()
}

// SmartTruncate collapses the middle of the screen past keep rows.
func (e *Emulator) SmartTruncate(keep int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.screen.SmartTruncate(keep)
}

// Resize changes the screen width for subsequent writes.
func (e *Emulator) Resize(cols int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.screen.Resize(cols)
}

var _ io.Writer = (*Emulator)(nil)
