package shellterm

import (
	"fmt"
	"image/color"
	"io"
	"strings"
	"sync"

	"github.com/danielgatis/go-ansicode"
	"go.uber.org/zap"
)

// Ensure Performer implements ansicode.Handler
var _ ansicode.Handler = (*Performer)(nil)

// TerminalMode is a bitmask of terminal behavior flags.
type TerminalMode uint32

const (
	ModeCursorKeys TerminalMode = 1 << iota
	ModeColumnMode
	ModeInsert
	ModeOrigin
	ModeLineWrap
	ModeBlinkingCursor
	ModeLineFeedNewLine
	ModeShowCursor
	ModeReportMouseClicks
	ModeReportCellMouseMotion
	ModeReportAllMouseMotion
	ModeReportFocusInOut
	ModeUTF8Mouse
	ModeSGRMouse
	ModeAlternateScroll
	ModeUrgencyHints
	ModeSwapScreenAndSetRestoreCursor
	ModeBracketedPaste
	ModeKeypadApplication
)

// NoopResponse discards terminal query responses.
type NoopResponse struct{}

func (NoopResponse) Write(p []byte) (n int, err error) { return len(p), nil }

// Performer translates decoded ANSI events into Screen mutations.
//
// It implements ansicode.Handler: printable runes become styled cells via
// the current attribute template, control and CSI events move the cursor
// and erase regions, SGR events mutate the template, and OSC 8 opens and
// closes hyperlink runs. Events with no effect on a headless grid
// (clipboard, notifications, graphics, keyboard protocol reports) are
// logged at debug level and otherwise ignored. Nothing is ever fatal.
type Performer struct {
	mu     *sync.Mutex
	screen *Screen

	template  Cell
	hyperlink *Hyperlink

	modes           TerminalMode
	title           string
	titleStack      []string
	colors          map[int]color.Color
	scrollTop       int
	scrollBottom    int
	activeCharset   int
	cursorStyle     ansicode.CursorStyle
	keyboardModes   []ansicode.KeyboardMode
	modifyOtherKeys ansicode.ModifyOtherKeys
	workingDir      string
	bells           int

	response io.Writer
	logger   *zap.Logger
}

// NewPerformer creates a performer over screen. The mutex serializes the
// performer with readers of the same screen.
func NewPerformer(screen *Screen, mu *sync.Mutex, logger *zap.Logger) *Performer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Performer{
		mu:       mu,
		screen:   screen,
		template: NewCell(),
		modes:    ModeLineWrap | ModeShowCursor,
		colors:   make(map[int]color.Color),
		response: NoopResponse{},
		logger:   logger,
	}
}

// Bells returns how many BEL characters were received.
func (p *Performer) Bells() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bells
}

// Title returns the current window title.
func (p *Performer) Title() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title
}

// HasMode returns true if the specified mode flag is enabled.
func (p *Performer) HasMode(mode TerminalMode) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.modes&mode != 0
}

// WorkingDirectory returns the most recent OSC 7 working directory URI.
func (p *Performer) WorkingDirectory() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workingDir
}

// Input writes a printable rune at the cursor with the current attributes.
func (p *Performer) Input(r rune) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tmpl := p.template
	tmpl.Hyperlink = p.hyperlink
	p.screen.PutChar(r, tmpl)
}

// Bell counts BEL characters; a headless grid has nothing to ring.
func (p *Performer) Bell() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bells++
}

// Backspace moves the cursor one column left.
func (p *Performer) Backspace() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.Backspace()
}

// CarriageReturn moves the cursor to column 0.
func (p *Performer) CarriageReturn() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.CarriageReturn()
}

// LineFeed moves the cursor to the next row, creating it on demand.
func (p *Performer) LineFeed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.LineFeed()
	if p.modes&ModeLineFeedNewLine != 0 {
		p.screen.CarriageReturn()
	}
}

// Tab advances the cursor to the next tab stop, n times.
func (p *Performer) Tab(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.Tab(n)
}

// Substitute replaces the cell under the cursor with a blank.
func (p *Performer) Substitute() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.EraseChars(1)
}

// ClearLine erases part or all of the cursor line.
func (p *Performer) ClearLine(mode ansicode.LineClearMode) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch mode {
	case ansicode.LineClearModeRight:
		p.screen.ClearLineForward()
	case ansicode.LineClearModeLeft:
		p.screen.ClearLineBackward()
	case ansicode.LineClearModeAll:
		p.screen.ClearLine()
	}
}

// ClearScreen erases part or all of the screen.
func (p *Performer) ClearScreen(mode ansicode.ClearMode) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch mode {
	case ansicode.ClearModeBelow:
		p.screen.ClearFromCursor()
	case ansicode.ClearModeAbove:
		p.screen.ClearToCursor()
	case ansicode.ClearModeAll, ansicode.ClearModeSaved:
		p.screen.Clear()
	}
}

// ClearTabs has no effect on the fixed 8-column tab stops.
func (p *Performer) ClearTabs(mode ansicode.TabulationClearMode) {
	p.logger.Debug("clear tabs ignored", zap.Int("mode", int(mode)))
}

// Goto moves the cursor to an absolute position.
func (p *Performer) Goto(row, col int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.MoveCursor(row, col)
}

// GotoLine moves the cursor to an absolute row, keeping the column.
func (p *Performer) GotoLine(row int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.MoveCursor(row, p.screen.Cursor().Col)
}

// GotoCol moves the cursor to an absolute column, keeping the row.
func (p *Performer) GotoCol(col int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.MoveCursor(p.screen.Cursor().Row, col)
}

// MoveUp moves the cursor n rows up.
func (p *Performer) MoveUp(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.MoveCursorBy(-n, 0)
}

// MoveDown moves the cursor n rows down.
func (p *Performer) MoveDown(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.MoveCursorBy(n, 0)
}

// MoveForward moves the cursor n columns right.
func (p *Performer) MoveForward(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.MoveCursorBy(0, n)
}

// MoveBackward moves the cursor n columns left.
func (p *Performer) MoveBackward(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.MoveCursorBy(0, -n)
}

// MoveUpCr moves the cursor n rows up and to column 0.
func (p *Performer) MoveUpCr(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.MoveCursorBy(-n, 0)
	p.screen.CarriageReturn()
}

// MoveDownCr moves the cursor n rows down and to column 0.
func (p *Performer) MoveDownCr(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.MoveCursorBy(n, 0)
	p.screen.CarriageReturn()
}

// MoveForwardTabs advances the cursor n tab stops.
func (p *Performer) MoveForwardTabs(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.Tab(n)
}

// MoveBackwardTabs moves the cursor back n tab stops.
func (p *Performer) MoveBackwardTabs(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cur := p.screen.Cursor()
	col := cur.Col
	for i := 0; i < n && col > 0; i++ {
		col = (col - 1) / tabStop * tabStop
	}
	p.screen.MoveCursor(cur.Row, col)
}

// InsertBlank inserts n blank cells at the cursor.
func (p *Performer) InsertBlank(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.InsertBlank(n)
}

// InsertBlankLines inserts n blank rows at the cursor row.
func (p *Performer) InsertBlankLines(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.InsertBlankLines(n)
}

// DeleteChars removes n cells at the cursor, shifting the rest left.
func (p *Performer) DeleteChars(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.DeleteChars(n)
}

// DeleteLines removes n rows at the cursor row.
func (p *Performer) DeleteLines(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.DeleteLines(n)
}

// EraseChars blanks n cells at the cursor without shifting.
func (p *Performer) EraseChars(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.EraseChars(n)
}

// ScrollUp scrolls the screen content up n rows.
func (p *Performer) ScrollUp(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.ScrollUp(n)
}

// ScrollDown scrolls the screen content down n rows.
func (p *Performer) ScrollDown(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.ScrollDown(n)
}

// SetScrollingRegion records the DECSTBM region bounds.
func (p *Performer) SetScrollingRegion(top, bottom int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if top < 0 {
		top = 0
	}
	if bottom < top {
		bottom = top
	}
	p.scrollTop = top
	p.scrollBottom = bottom
}

// ReverseIndex moves the cursor up; at the top it scrolls content down.
func (p *Performer) ReverseIndex() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.screen.Cursor().Row > 0 {
		p.screen.MoveCursorBy(-1, 0)
		return
	}
	p.screen.ScrollDown(1)
	p.screen.MoveCursor(0, p.screen.Cursor().Col)
}

// SaveCursorPosition records the cursor for a later restore (DECSC).
func (p *Performer) SaveCursorPosition() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.SaveCursor()
}

// RestoreCursorPosition returns the cursor to the saved position (DECRC).
func (p *Performer) RestoreCursorPosition() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.RestoreCursor()
}

// HorizontalTabSet has no effect on the fixed 8-column tab stops.
func (p *Performer) HorizontalTabSet() {
	p.logger.Debug("horizontal tab set ignored")
}

// Decaln fills the screen with 'E' (DEC alignment test).
func (p *Performer) Decaln() {
	p.mu.Lock()
	defer p.mu.Unlock()

	tmpl := NewCell()
	rows := p.screen.LineCount()
	if rows == 0 {
		rows = 1
	}
	p.screen.Clear()
	for row := 0; row < rows; row++ {
		p.screen.MoveCursor(row, 0)
		for col := 0; col < p.screen.Cols(); col++ {
			p.screen.PutChar('E', tmpl)
		}
	}
	p.screen.MoveCursor(0, 0)
}

// SetTerminalCharAttribute applies an SGR attribute to the template used
// for subsequent cells.
func (p *Performer) SetTerminalCharAttribute(attr ansicode.TerminalCharAttribute) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch attr.Attr {
	case ansicode.CharAttributeReset:
		p.template = NewCell()

	case ansicode.CharAttributeBold:
		p.template.SetFlag(CellFlagBold)

	case ansicode.CharAttributeDim:
		p.template.SetFlag(CellFlagDim)

	case ansicode.CharAttributeItalic:
		p.template.SetFlag(CellFlagItalic)

	case ansicode.CharAttributeUnderline:
		p.template.SetFlag(CellFlagUnderline)
		p.template.ClearFlag(CellFlagDoubleUnderline | CellFlagCurlyUnderline | CellFlagDottedUnderline | CellFlagDashedUnderline)

	case ansicode.CharAttributeDoubleUnderline:
		p.template.SetFlag(CellFlagDoubleUnderline)
		p.template.ClearFlag(CellFlagUnderline | CellFlagCurlyUnderline | CellFlagDottedUnderline | CellFlagDashedUnderline)

	case ansicode.CharAttributeCurlyUnderline:
		p.template.SetFlag(CellFlagCurlyUnderline)
		p.template.ClearFlag(CellFlagUnderline | CellFlagDoubleUnderline | CellFlagDottedUnderline | CellFlagDashedUnderline)

	case ansicode.CharAttributeDottedUnderline:
		p.template.SetFlag(CellFlagDottedUnderline)
		p.template.ClearFlag(CellFlagUnderline | CellFlagDoubleUnderline | CellFlagCurlyUnderline | CellFlagDashedUnderline)

	case ansicode.CharAttributeDashedUnderline:
		p.template.SetFlag(CellFlagDashedUnderline)
		p.template.ClearFlag(CellFlagUnderline | CellFlagDoubleUnderline | CellFlagCurlyUnderline | CellFlagDottedUnderline)

	case ansicode.CharAttributeBlinkSlow:
		p.template.SetFlag(CellFlagBlinkSlow)

	case ansicode.CharAttributeBlinkFast:
		p.template.SetFlag(CellFlagBlinkFast)

	case ansicode.CharAttributeReverse:
		p.template.SetFlag(CellFlagReverse)

	case ansicode.CharAttributeHidden:
		p.template.SetFlag(CellFlagHidden)

	case ansicode.CharAttributeStrike:
		p.template.SetFlag(CellFlagStrike)

	case ansicode.CharAttributeCancelBold:
		p.template.ClearFlag(CellFlagBold)

	case ansicode.CharAttributeCancelBoldDim:
		p.template.ClearFlag(CellFlagBold | CellFlagDim)

	case ansicode.CharAttributeCancelItalic:
		p.template.ClearFlag(CellFlagItalic)

	case ansicode.CharAttributeCancelUnderline:
		p.template.ClearFlag(CellFlagUnderline | CellFlagDoubleUnderline | CellFlagCurlyUnderline | CellFlagDottedUnderline | CellFlagDashedUnderline)

	case ansicode.CharAttributeCancelBlink:
		p.template.ClearFlag(CellFlagBlinkSlow | CellFlagBlinkFast)

	case ansicode.CharAttributeCancelReverse:
		p.template.ClearFlag(CellFlagReverse)

	case ansicode.CharAttributeCancelHidden:
		p.template.ClearFlag(CellFlagHidden)

	case ansicode.CharAttributeCancelStrike:
		p.template.ClearFlag(CellFlagStrike)

	case ansicode.CharAttributeForeground:
		p.template.Fg = resolveAttrColor(attr)

	case ansicode.CharAttributeBackground:
		p.template.Bg = resolveAttrColor(attr)

	case ansicode.CharAttributeUnderlineColor:
		p.template.UnderlineColor = resolveAttrColor(attr)

	default:
		p.logger.Debug("unsupported char attribute", zap.Int("attr", int(attr.Attr)))
	}
}

// resolveAttrColor converts a decoded color attribute to a cell color.
// Truecolor maps to color.RGBA, palette references to IndexedColor or
// BasicColor, and the default foreground/background (SGR 39/49/59) to nil.
func resolveAttrColor(attr ansicode.TerminalCharAttribute) color.Color {
	if attr.RGBColor != nil {
		return color.RGBA{
			R: attr.RGBColor.R,
			G: attr.RGBColor.G,
			B: attr.RGBColor.B,
			A: 255,
		}
	}

	if attr.IndexedColor != nil {
		return &IndexedColor{Index: int(attr.IndexedColor.Index)}
	}

	if attr.NamedColor != nil {
		if n := int(*attr.NamedColor); n >= 0 && n < 16 {
			return &BasicColor{Index: n}
		}
		// Foreground/Background/Cursor and the dim range all mean
		// "terminal default" on a headless grid.
		return nil
	}

	return nil
}

// SetHyperlink starts or ends an OSC 8 hyperlink run.
func (p *Performer) SetHyperlink(hyperlink *ansicode.Hyperlink) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if hyperlink == nil || hyperlink.URI == "" {
		p.hyperlink = nil
		return
	}
	p.hyperlink = &Hyperlink{ID: hyperlink.ID, URI: hyperlink.URI}
}

// ResetState returns the performer and its screen to the initial state (ESC c).
func (p *Performer) ResetState() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.screen.Clear()
	p.template = NewCell()
	p.hyperlink = nil
	p.modes = ModeLineWrap | ModeShowCursor
	p.title = ""
	p.titleStack = nil
	p.colors = make(map[int]color.Color)
	p.scrollTop = 0
	p.scrollBottom = 0
	p.keyboardModes = nil
	p.modifyOtherKeys = 0
}

// SetMode enables a terminal mode.
func (p *Performer) SetMode(mode ansicode.TerminalMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyMode(mode, true)
}

// UnsetMode disables a terminal mode.
func (p *Performer) UnsetMode(mode ansicode.TerminalMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyMode(mode, false)
}

func (p *Performer) applyMode(mode ansicode.TerminalMode, set bool) {
	var m TerminalMode

	switch mode {
	case ansicode.TerminalModeCursorKeys:
		m = ModeCursorKeys
	case ansicode.TerminalModeColumnMode:
		m = ModeColumnMode
	case ansicode.TerminalModeInsert:
		m = ModeInsert
	case ansicode.TerminalModeOrigin:
		m = ModeOrigin
	case ansicode.TerminalModeLineWrap:
		m = ModeLineWrap
	case ansicode.TerminalModeBlinkingCursor:
		m = ModeBlinkingCursor
	case ansicode.TerminalModeLineFeedNewLine:
		m = ModeLineFeedNewLine
	case ansicode.TerminalModeShowCursor:
		m = ModeShowCursor
	case ansicode.TerminalModeReportMouseClicks:
		m = ModeReportMouseClicks
	case ansicode.TerminalModeReportCellMouseMotion:
		m = ModeReportCellMouseMotion
	case ansicode.TerminalModeReportAllMouseMotion:
		m = ModeReportAllMouseMotion
	case ansicode.TerminalModeReportFocusInOut:
		m = ModeReportFocusInOut
	case ansicode.TerminalModeUTF8Mouse:
		m = ModeUTF8Mouse
	case ansicode.TerminalModeSGRMouse:
		m = ModeSGRMouse
	case ansicode.TerminalModeAlternateScroll:
		m = ModeAlternateScroll
	case ansicode.TerminalModeUrgencyHints:
		m = ModeUrgencyHints
	case ansicode.TerminalModeSwapScreenAndSetRestoreCursor:
		m = ModeSwapScreenAndSetRestoreCursor
	case ansicode.TerminalModeBracketedPaste:
		m = ModeBracketedPaste
	default:
		p.logger.Debug("unsupported terminal mode", zap.Int("mode", int(mode)))
		return
	}

	if set {
		p.modes |= m
	} else {
		p.modes &^= m
	}
}

// SetTitle updates the window title (OSC 0/2).
func (p *Performer) SetTitle(title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.title = title
}

// PushTitle saves the current title on the title stack.
func (p *Performer) PushTitle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.titleStack = append(p.titleStack, p.title)
}

// PopTitle restores the most recently pushed title.
func (p *Performer) PopTitle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.titleStack); n > 0 {
		p.title = p.titleStack[n-1]
		p.titleStack = p.titleStack[:n-1]
	}
}

// SetColor overrides a palette color (OSC 4).
func (p *Performer) SetColor(index int, c color.Color) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.colors[index] = c
}

// ResetColor removes a palette color override (OSC 104).
func (p *Performer) ResetColor(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.colors, i)
}

// SetDynamicColor queries (OSC 10/11/12) are not answerable without a
// real display; they are logged and dropped.
func (p *Performer) SetDynamicColor(prefix string, index int, terminator string) {
	p.logger.Debug("dynamic color ignored", zap.String("prefix", prefix), zap.Int("index", index))
}

// SetCursorStyle records the requested cursor shape.
func (p *Performer) SetCursorStyle(style ansicode.CursorStyle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursorStyle = style
}

// DeviceStatus answers DSR queries: ready (n=5) or cursor position (n=6).
func (p *Performer) DeviceStatus(n int) {
	p.mu.Lock()
	cur := p.screen.Cursor()
	p.mu.Unlock()

	switch n {
	case 5:
		fmt.Fprint(p.response, "\x1b[0n")
	case 6:
		fmt.Fprintf(p.response, "\x1b[%d;%dR", cur.Row+1, cur.Col+1)
	}
}

// IdentifyTerminal answers a primary device attributes query as VT102.
func (p *Performer) IdentifyTerminal(b byte) {
	fmt.Fprint(p.response, "\x1b[?6c")
}

// TextAreaSizeChars answers a text-area size query in characters.
func (p *Performer) TextAreaSizeChars() {
	p.mu.Lock()
	rows := p.screen.LineCount()
	cols := p.screen.Cols()
	p.mu.Unlock()

	if rows == 0 {
		rows = 24
	}
	fmt.Fprintf(p.response, "\x1b[8;%d;%dt", rows, cols)
}

// TextAreaSizePixels queries need pixel metrics a headless grid lacks.
func (p *Performer) TextAreaSizePixels() {
	p.logger.Debug("text area pixel size query ignored")
}

// CellSizePixels queries need pixel metrics a headless grid lacks.
func (p *Performer) CellSizePixels() {
	p.logger.Debug("cell pixel size query ignored")
}

// ConfigureCharset records G0-G3 charset designations without translating.
func (p *Performer) ConfigureCharset(index ansicode.CharsetIndex, charset ansicode.Charset) {
	p.logger.Debug("charset designation ignored", zap.Int("index", int(index)))
}

// SetActiveCharset records the active charset slot.
func (p *Performer) SetActiveCharset(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activeCharset = n
}

// SetKeypadApplicationMode enables application keypad mode.
func (p *Performer) SetKeypadApplicationMode() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modes |= ModeKeypadApplication
}

// UnsetKeypadApplicationMode disables application keypad mode.
func (p *Performer) UnsetKeypadApplicationMode() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modes &^= ModeKeypadApplication
}

// SetKeyboardMode replaces the active keyboard protocol mode.
func (p *Performer) SetKeyboardMode(mode ansicode.KeyboardMode, behavior ansicode.KeyboardModeBehavior) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.keyboardModes) == 0 {
		p.keyboardModes = append(p.keyboardModes, mode)
		return
	}
	p.keyboardModes[len(p.keyboardModes)-1] = mode
}

// PushKeyboardMode pushes a keyboard protocol mode on the stack.
func (p *Performer) PushKeyboardMode(mode ansicode.KeyboardMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keyboardModes = append(p.keyboardModes, mode)
}

// PopKeyboardMode pops n keyboard protocol modes off the stack.
func (p *Performer) PopKeyboardMode(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < n && len(p.keyboardModes) > 0; i++ {
		p.keyboardModes = p.keyboardModes[:len(p.keyboardModes)-1]
	}
}

// ReportKeyboardMode answers a keyboard protocol query.
func (p *Performer) ReportKeyboardMode() {
	p.mu.Lock()
	mode := ansicode.KeyboardModeNoMode
	if len(p.keyboardModes) > 0 {
		mode = p.keyboardModes[len(p.keyboardModes)-1]
	}
	p.mu.Unlock()

	fmt.Fprintf(p.response, "\x1b[?%du", int(mode))
}

// SetModifyOtherKeys records the xterm modifyOtherKeys level.
func (p *Performer) SetModifyOtherKeys(modify ansicode.ModifyOtherKeys) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modifyOtherKeys = modify
}

// ReportModifyOtherKeys answers a modifyOtherKeys query.
func (p *Performer) ReportModifyOtherKeys() {
	p.mu.Lock()
	modify := p.modifyOtherKeys
	p.mu.Unlock()

	fmt.Fprintf(p.response, "\x1b[>4;%dm", int(modify))
}

// ClipboardLoad queries are refused; a headless backend has no clipboard.
func (p *Performer) ClipboardLoad(clipboard byte, terminator string) {
	p.logger.Debug("clipboard load ignored", zap.String("clipboard", string(clipboard)))
}

// ClipboardStore writes are dropped; a headless backend has no clipboard.
func (p *Performer) ClipboardStore(clipboard byte, data []byte) {
	p.logger.Debug("clipboard store ignored", zap.String("clipboard", string(clipboard)))
}

// ApplicationCommandReceived drops APC payloads (Kitty graphics et al).
func (p *Performer) ApplicationCommandReceived(data []byte) {
	p.logger.Debug("APC ignored", zap.Int("len", len(data)))
}

// PrivacyMessageReceived drops PM payloads.
func (p *Performer) PrivacyMessageReceived(data []byte) {
	p.logger.Debug("PM ignored", zap.Int("len", len(data)))
}

// StartOfStringReceived drops SOS payloads.
func (p *Performer) StartOfStringReceived(data []byte) {
	p.logger.Debug("SOS ignored", zap.Int("len", len(data)))
}

// SixelReceived drops Sixel graphics; there is no image pipeline.
func (p *Performer) SixelReceived(params [][]uint16, data []byte) {
	p.logger.Debug("sixel ignored", zap.Int("len", len(data)))
}

// SetUserVar drops OSC 1337 user variables.
func (p *Performer) SetUserVar(name, value string) {
	p.logger.Debug("user var ignored", zap.String("name", name))
}

// SetWorkingDirectory records the OSC 7 working directory URI.
func (p *Performer) SetWorkingDirectory(uri string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.workingDir = strings.TrimPrefix(uri, "file://")
}
