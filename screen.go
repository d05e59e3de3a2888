package shellterm

import "strings"

// TruncationMarker is the literal text spliced into a screen when
// SmartTruncate collapses the middle of an oversized buffer.
const TruncationMarker = "[... TRUNCATED OUTPUT ...]"

const tabStop = 8

// Cursor is a 0-based grid position.
type Cursor struct {
	Row int
	Col int
}

// Screen is a growable grid of styled cells with a write cursor.
//
// Rows are created lazily as the cursor reaches them and each row is padded
// on demand, so a mostly-empty screen stays small. When maxLines is set,
// appending past it evicts the oldest rows and shifts the cursor up.
//
// Screen is not safe for concurrent use; Emulator serializes access.
type Screen struct {
	cols     int
	maxLines int
	rows     [][]Cell
	cursor   Cursor
	saved    *Cursor
	evicted  int
}

// NewScreen creates a screen with the given width in columns.
// maxLines <= 0 means unbounded.
func NewScreen(cols, maxLines int) *Screen {
	if cols <= 0 {
		cols = DefaultCols
	}
	return &Screen{cols: cols, maxLines: maxLines}
}

// Cols returns the screen width in columns.
func (s *Screen) Cols() int { return s.cols }

// LineCount returns the number of materialized rows.
func (s *Screen) LineCount() int { return len(s.rows) }

// EvictedLines returns how many rows were dropped off the top to honor maxLines.
func (s *Screen) EvictedLines() int { return s.evicted }

// Cursor returns the current cursor position.
func (s *Screen) Cursor() Cursor { return s.cursor }

// Row returns the cells of row i, or nil if the row does not exist.
func (s *Screen) Row(i int) []Cell {
	if i < 0 || i >= len(s.rows) {
		return nil
	}
	return s.rows[i]
}

// Resize changes the screen width. Existing rows keep their content; the
// new width applies to subsequent writes and wrapping.
func (s *Screen) Resize(cols int) {
	if cols <= 0 {
		return
	}
	s.cols = cols
	if s.cursor.Col > cols {
		s.cursor.Col = cols
	}
}

// ensureCursorRow materializes rows up to the cursor, evicting the oldest
// rows when the maxLines cap is hit. The cursor row never goes negative.
func (s *Screen) ensureCursorRow() {
	for len(s.rows) <= s.cursor.Row {
		if s.maxLines > 0 && len(s.rows) >= s.maxLines {
			s.rows = s.rows[1:]
			s.evicted++
			if s.cursor.Row > 0 {
				s.cursor.Row--
			}
			continue
		}
		s.rows = append(s.rows, nil)
	}
}

// padRow extends row i with blank cells so that column col exists.
func (s *Screen) padRow(i, col int) {
	for len(s.rows[i]) <= col {
		s.rows[i] = append(s.rows[i], NewCell())
	}
}

// PutChar writes r at the cursor using tmpl for colors and attributes,
// then advances. Wide characters occupy two cells (the second is a
// spacer). Writing past the right edge wraps to a fresh line.
// Zero-width runes are ignored.
func (s *Screen) PutChar(r rune, tmpl Cell) {
	width := runeWidth(r)
	if width == 0 {
		return
	}

	if s.cursor.Col+width > s.cols {
		s.cursor.Col = 0
		s.cursor.Row++
	}

	s.ensureCursorRow()
	s.padRow(s.cursor.Row, s.cursor.Col+width-1)

	cell := tmpl
	cell.Char = r
	if width == 2 {
		cell.SetFlag(CellFlagWideChar)
	}
	s.rows[s.cursor.Row][s.cursor.Col] = cell

	if width == 2 {
		spacer := tmpl
		spacer.Char = ' '
		spacer.SetFlag(CellFlagWideCharSpacer)
		s.rows[s.cursor.Row][s.cursor.Col+1] = spacer
	}

	s.cursor.Col += width
}

// MoveCursor places the cursor at (row, col), clamped to valid bounds.
// Movement never writes cells; rows are materialized on the next write.
func (s *Screen) MoveCursor(row, col int) {
	if row < 0 {
		row = 0
	}
	if s.maxLines > 0 && row > s.maxLines-1 {
		row = s.maxLines - 1
	}
	s.cursor.Row = row
	s.cursor.Col = clamp(col, 0, s.cols-1)
}

// MoveCursorBy moves the cursor relative to its current position, clamped.
func (s *Screen) MoveCursorBy(dRow, dCol int) {
	s.MoveCursor(s.cursor.Row+dRow, s.cursor.Col+dCol)
}

// rowCeiling is the largest row the cursor may sit on without writing.
func (s *Screen) rowCeiling() int {
	ceiling := len(s.rows) - 1
	if ceiling < 0 {
		ceiling = 0
	}
	if s.maxLines > 0 && ceiling > s.maxLines-1 {
		ceiling = s.maxLines - 1
	}
	return ceiling
}

// LineFeed moves the cursor down one row, creating it on demand.
func (s *Screen) LineFeed() {
	s.cursor.Row++
	s.ensureCursorRow()
}

// CarriageReturn moves the cursor to column 0.
func (s *Screen) CarriageReturn() {
	s.cursor.Col = 0
}

// Backspace moves the cursor one column left, stopping at 0.
func (s *Screen) Backspace() {
	if s.cursor.Col > s.cols-1 {
		s.cursor.Col = s.cols - 1
	}
	if s.cursor.Col > 0 {
		s.cursor.Col--
	}
}

// Tab advances the cursor to the next multiple-of-8 column, n times.
func (s *Screen) Tab(n int) {
	for i := 0; i < n; i++ {
		next := (s.cursor.Col/tabStop + 1) * tabStop
		if next > s.cols-1 {
			next = s.cols - 1
		}
		s.cursor.Col = next
	}
}

// SaveCursor records the cursor position for a later RestoreCursor.
func (s *Screen) SaveCursor() {
	saved := s.cursor
	s.saved = &saved
}

// RestoreCursor returns the cursor to the last saved position, or home.
func (s *Screen) RestoreCursor() {
	if s.saved != nil {
		s.MoveCursor(s.saved.Row, s.saved.Col)
		return
	}
	s.MoveCursor(0, 0)
}

// ClearLineForward erases from the cursor to the end of the line.
func (s *Screen) ClearLineForward() {
	if s.cursor.Row >= len(s.rows) {
		return
	}
	row := s.rows[s.cursor.Row]
	if s.cursor.Col < len(row) {
		s.rows[s.cursor.Row] = row[:s.cursor.Col]
	}
}

// ClearLineBackward erases from the start of the line through the cursor.
func (s *Screen) ClearLineBackward() {
	if s.cursor.Row >= len(s.rows) {
		return
	}
	row := s.rows[s.cursor.Row]
	for i := 0; i <= s.cursor.Col && i < len(row); i++ {
		row[i] = NewCell()
	}
}

// ClearLine erases the entire cursor line.
func (s *Screen) ClearLine() {
	if s.cursor.Row < len(s.rows) {
		s.rows[s.cursor.Row] = nil
	}
}

// ClearFromCursor erases from the cursor to the end of the screen.
func (s *Screen) ClearFromCursor() {
	s.ClearLineForward()
	if s.cursor.Row+1 < len(s.rows) {
		s.rows = s.rows[:s.cursor.Row+1]
	}
}

// ClearToCursor erases from the start of the screen through the cursor.
func (s *Screen) ClearToCursor() {
	for i := 0; i < s.cursor.Row && i < len(s.rows); i++ {
		s.rows[i] = nil
	}
	s.ClearLineBackward()
}

// Clear erases the whole grid and homes the cursor.
func (s *Screen) Clear() {
	s.rows = nil
	s.cursor = Cursor{}
}

// EraseChars blanks n cells starting at the cursor without shifting the rest.
func (s *Screen) EraseChars(n int) {
	if s.cursor.Row >= len(s.rows) {
		return
	}
	row := s.rows[s.cursor.Row]
	for i := s.cursor.Col; i < s.cursor.Col+n && i < len(row); i++ {
		row[i] = NewCell()
	}
}

// DeleteChars removes n cells at the cursor, shifting the remainder left.
func (s *Screen) DeleteChars(n int) {
	if s.cursor.Row >= len(s.rows) {
		return
	}
	row := s.rows[s.cursor.Row]
	if s.cursor.Col >= len(row) {
		return
	}
	end := s.cursor.Col + n
	if end > len(row) {
		end = len(row)
	}
	s.rows[s.cursor.Row] = append(row[:s.cursor.Col], row[end:]...)
}

// InsertBlank inserts n blank cells at the cursor, shifting the remainder
// right and dropping cells pushed past the screen width.
func (s *Screen) InsertBlank(n int) {
	s.ensureCursorRow()
	s.padRow(s.cursor.Row, s.cursor.Col)
	row := s.rows[s.cursor.Row]

	blanks := make([]Cell, n)
	for i := range blanks {
		blanks[i] = NewCell()
	}
	row = append(row[:s.cursor.Col], append(blanks, row[s.cursor.Col:]...)...)
	if len(row) > s.cols {
		row = row[:s.cols]
	}
	s.rows[s.cursor.Row] = row
}

// DeleteLines removes n rows starting at the cursor row.
func (s *Screen) DeleteLines(n int) {
	if s.cursor.Row >= len(s.rows) {
		return
	}
	end := s.cursor.Row + n
	if end > len(s.rows) {
		end = len(s.rows)
	}
	s.rows = append(s.rows[:s.cursor.Row], s.rows[end:]...)
}

// InsertBlankLines inserts n empty rows at the cursor row.
func (s *Screen) InsertBlankLines(n int) {
	if s.cursor.Row > len(s.rows) {
		return
	}
	blanks := make([][]Cell, n)
	s.rows = append(s.rows[:s.cursor.Row], append(blanks, s.rows[s.cursor.Row:]...)...)
	if s.maxLines > 0 && len(s.rows) > s.maxLines {
		s.rows = s.rows[:s.maxLines]
	}
}

// ScrollUp drops the top n rows of the screen.
func (s *Screen) ScrollUp(n int) {
	if n > len(s.rows) {
		n = len(s.rows)
	}
	s.rows = s.rows[n:]
	s.evicted += n
	s.cursor.Row -= n
	if s.cursor.Row < 0 {
		s.cursor.Row = 0
	}
}

// ScrollDown inserts n blank rows at the top of the screen.
func (s *Screen) ScrollDown(n int) {
	blanks := make([][]Cell, n)
	s.rows = append(blanks, s.rows...)
	if s.maxLines > 0 && len(s.rows) > s.maxLines {
		s.rows = s.rows[:s.maxLines]
	}
	s.cursor.Row += n
	if ceiling := s.rowCeiling(); s.cursor.Row > ceiling {
		s.cursor.Row = ceiling
	}
}

// SmartTruncate collapses the middle of the screen when it holds more than
// keep rows, splicing in a reverse-video bold marker line. Leading context
// and the most recent output are preserved. Calling it again on an
// already-truncated screen is a no-op.
func (s *Screen) SmartTruncate(keep int) {
	if keep < 8 {
		keep = 8
	}
	excess := len(s.rows) - keep
	if excess <= 0 {
		return
	}

	// A few rows over the cap is ordinary scrollback pressure: evict from
	// the front like the maxLines cap does, no marker needed.
	if excess <= keep/10 {
		s.rows = append([][]Cell(nil), s.rows[excess:]...)
		s.cursor.Row -= excess
		if s.cursor.Row < 0 {
			s.cursor.Row = 0
		}
		s.evicted += excess
		return
	}

	head := keep / 10
	if head < 1 {
		head = 1
	}
	tail := keep - head - 1
	dropEnd := len(s.rows) - tail

	out := make([][]Cell, 0, keep)
	out = append(out, s.rows[:head]...)
	out = append(out, markerRow())
	out = append(out, s.rows[dropEnd:]...)

	switch {
	case s.cursor.Row >= dropEnd:
		s.cursor.Row -= dropEnd - head - 1
	case s.cursor.Row >= head:
		s.cursor.Row = head
	}
	s.rows = out
}

// markerRow renders TruncationMarker as reverse-video bold cells.
func markerRow() []Cell {
	runes := []rune(TruncationMarker)
	row := make([]Cell, len(runes))
	for i, r := range runes {
		cell := NewCell()
		cell.Char = r
		cell.SetFlag(CellFlagReverse | CellFlagBold)
		row[i] = cell
	}
	return row
}

// Display renders the screen as plain text lines. Trailing spaces are
// trimmed from each line and trailing empty lines are dropped.
func (s *Screen) Display() []string {
	lines := make([]string, 0, len(s.rows))
	for _, row := range s.rows {
		lines = append(lines, renderRow(row))
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// String renders the screen as a single newline-joined string.
func (s *Screen) String() string {
	return strings.Join(s.Display(), "\n")
}

// PlainText renders every materialized row without trimming.
func (s *Screen) PlainText() string {
	var b strings.Builder
	for i, row := range s.rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for _, cell := range row {
			if cell.IsWideSpacer() {
				continue
			}
			b.WriteRune(cell.Char)
		}
	}
	return b.String()
}

func renderRow(row []Cell) string {
	var b strings.Builder
	for _, cell := range row {
		if cell.IsWideSpacer() {
			continue
		}
		b.WriteRune(cell.Char)
	}
	return strings.TrimRight(b.String(), " ")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
