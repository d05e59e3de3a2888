package shellterm

import "testing"

func TestNewCell(t *testing.T) {
	cell := NewCell()

	if cell.Char != ' ' {
		t.Errorf("expected space char, got %q", cell.Char)
	}
	if cell.Fg != nil || cell.Bg != nil {
		t.Errorf("expected default colors, got fg=%v bg=%v", cell.Fg, cell.Bg)
	}
	if cell.Flags != 0 {
		t.Errorf("expected no flags, got %b", cell.Flags)
	}
}

func TestCellFlags(t *testing.T) {
	cell := NewCell()

	cell.SetFlag(CellFlagBold)
	cell.SetFlag(CellFlagUnderline)

	if !cell.HasFlag(CellFlagBold) {
		t.Error("expected bold flag to be set")
	}
	if !cell.HasFlag(CellFlagUnderline) {
		t.Error("expected underline flag to be set")
	}
	if cell.HasFlag(CellFlagItalic) {
		t.Error("expected italic flag to be unset")
	}

	cell.ClearFlag(CellFlagBold)
	if cell.HasFlag(CellFlagBold) {
		t.Error("expected bold flag cleared")
	}
	if !cell.HasFlag(CellFlagUnderline) {
		t.Error("expected underline flag to survive clearing bold")
	}
}

func TestCellWide(t *testing.T) {
	cell := NewCell()
	cell.Char = '漢'
	cell.SetFlag(CellFlagWideChar)

	if !cell.IsWide() {
		t.Error("expected wide cell")
	}
	if cell.IsWideSpacer() {
		t.Error("expected not a spacer")
	}

	spacer := NewCell()
	spacer.SetFlag(CellFlagWideCharSpacer)
	if !spacer.IsWideSpacer() {
		t.Error("expected spacer cell")
	}
}

func TestCellIsBlank(t *testing.T) {
	cell := NewCell()
	if !cell.IsBlank() {
		t.Error("expected fresh cell to be blank")
	}

	cell.Char = 'x'
	if cell.IsBlank() {
		t.Error("expected non-space cell to not be blank")
	}

	cell.Reset()
	if !cell.IsBlank() {
		t.Error("expected reset cell to be blank")
	}
}

func TestCellBlankWithFlags(t *testing.T) {
	cell := NewCell()
	cell.SetFlag(CellFlagReverse)

	if cell.IsBlank() {
		t.Error("expected styled space to not be blank")
	}
}
