package shellterm

import (
	"image/color"
	"strings"
	"testing"
)

func TestStripAnsi(t *testing.T) {
	input := "\x1b[1;31mred bold\x1b[0m plain \x1b]0;title\x07tail"
	if got := StripAnsi(input); got != "red bold plain tail" {
		t.Errorf("expected escapes removed, got %q", got)
	}
}

func TestStripAnsiPlainText(t *testing.T) {
	if got := StripAnsi("no escapes here"); got != "no escapes here" {
		t.Errorf("expected text unchanged, got %q", got)
	}
}

func TestFormatTextRoundTrip(t *testing.T) {
	samples := []string{
		"hello",
		"",
		"with spaces  and\ttabs",
	}
	for _, s := range samples {
		formatted := FormatText(s, &BasicColor{Index: 1}, nil, StyleBold, StyleUnderline)
		if got := StripAnsi(formatted); got != s {
			t.Errorf("expected round trip for %q, got %q", s, got)
		}
	}
}

func TestFormatTextNoParams(t *testing.T) {
	if got := FormatText("plain", nil, nil); got != "plain" {
		t.Errorf("expected unchanged text, got %q", got)
	}
}

func TestFormatTextBasicColor(t *testing.T) {
	got := FormatText("x", &BasicColor{Index: 1}, nil)
	if got != "\x1b[31mx\x1b[0m" {
		t.Errorf("expected red foreground sequence, got %q", got)
	}

	got = FormatText("x", &BasicColor{Index: 9}, nil)
	if got != "\x1b[91mx\x1b[0m" {
		t.Errorf("expected bright red sequence, got %q", got)
	}

	got = FormatText("x", nil, &BasicColor{Index: 4})
	if got != "\x1b[44mx\x1b[0m" {
		t.Errorf("expected blue background sequence, got %q", got)
	}
}

func TestFormatTextIndexedColor(t *testing.T) {
	got := FormatText("x", &IndexedColor{Index: 208}, nil)
	if got != "\x1b[38;5;208mx\x1b[0m" {
		t.Errorf("expected 256-color sequence, got %q", got)
	}
}

func TestFormatTextTrueColor(t *testing.T) {
	got := FormatText("x", color.RGBA{R: 255, G: 128, B: 0, A: 255}, nil)
	if got != "\x1b[38;2;255;128;0mx\x1b[0m" {
		t.Errorf("expected truecolor sequence, got %q", got)
	}
}

func TestFormatTextRendersBack(t *testing.T) {
	// A formatted string fed through the emulator produces the styled cell.
	em := NewEmulator()
	em.Process(FormatText("B", nil, nil, StyleBold))

	cell, ok := em.Cell(0, 0)
	if !ok {
		t.Fatal("expected cell at (0, 0)")
	}
	if !cell.HasFlag(CellFlagBold) {
		t.Error("expected bold flag")
	}
}

func TestParseColorName(t *testing.T) {
	c, err := ParseColorName("red")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if basic, ok := c.(*BasicColor); !ok || basic.Index != 1 {
		t.Errorf("expected basic red, got %v", c)
	}

	c, err = ParseColorName("bright-blue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if basic, ok := c.(*BasicColor); !ok || basic.Index != 12 {
		t.Errorf("expected bright blue, got %v", c)
	}
}

func TestParseColorName256(t *testing.T) {
	c, err := ParseColorName("256:208")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx, ok := c.(*IndexedColor); !ok || idx.Index != 208 {
		t.Errorf("expected indexed 208, got %v", c)
	}

	if _, err := ParseColorName("256:300"); err == nil {
		t.Error("expected error for out-of-range index")
	}
}

func TestParseColorNameHex(t *testing.T) {
	c, err := ParseColorName("#ffaa00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rgba, ok := c.(color.RGBA)
	if !ok || rgba.R != 0xFF || rgba.G != 0xAA || rgba.B != 0x00 {
		t.Errorf("expected rgb(255, 170, 0), got %v", c)
	}

	short, err := ParseColorName("#fa0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if short != c {
		t.Errorf("expected #fa0 to expand to #ffaa00, got %v", short)
	}
}

func TestParseColorNameInvalid(t *testing.T) {
	for _, name := range []string{"", "nope", "#12", "#zzz", "256:x"} {
		if _, err := ParseColorName(name); err == nil {
			t.Errorf("expected error for %q", name)
		}
	}
}

func TestExtractStyles(t *testing.T) {
	segments := ExtractStyles("\x1b[1;31mred bold\x1b[0m plain")

	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].Text != "red bold" {
		t.Errorf("expected 'red bold', got %q", segments[0].Text)
	}
	if segments[0].Style.Flags&CellFlagBold == 0 {
		t.Error("expected bold flag on first segment")
	}
	if basic, ok := segments[0].Style.Fg.(*BasicColor); !ok || basic.Index != 1 {
		t.Errorf("expected red foreground, got %v", segments[0].Style.Fg)
	}
	if segments[1].Text != " plain" {
		t.Errorf("expected ' plain', got %q", segments[1].Text)
	}
	if segments[1].Style.Flags != 0 || segments[1].Style.Fg != nil {
		t.Error("expected unstyled second segment")
	}
}

func TestExtractStylesColonParams(t *testing.T) {
	segments := ExtractStyles("\x1b[38:5:99mx\x1b[0m")

	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if idx, ok := segments[0].Style.Fg.(*IndexedColor); !ok || idx.Index != 99 {
		t.Errorf("expected indexed 99, got %v", segments[0].Style.Fg)
	}
}

func TestExtractStylesFont(t *testing.T) {
	segments := ExtractStyles("\x1b[12malt\x1b[10mprimary")

	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].Style.Font != 2 {
		t.Errorf("expected alternate font 2, got %d", segments[0].Style.Font)
	}
	if segments[1].Style.Font != 0 {
		t.Errorf("expected primary font, got %d", segments[1].Style.Font)
	}
}

func TestExtractStylesCancellation(t *testing.T) {
	segments := ExtractStyles("\x1b[1;4mboth\x1b[22mjust underline")

	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	st := segments[1].Style
	if st.Flags&CellFlagBold != 0 {
		t.Error("expected bold canceled by SGR 22")
	}
	if st.Flags&CellFlagUnderline == 0 {
		t.Error("expected underline to survive SGR 22")
	}
}

func TestExtractStylesPlainOnly(t *testing.T) {
	segments := ExtractStyles("no escapes")

	if len(segments) != 1 || segments[0].Text != "no escapes" {
		t.Errorf("expected single plain segment, got %v", segments)
	}
}

func TestStyleConstantsMatchSGR(t *testing.T) {
	// A spot check that the style table emits the codes the emulator
	// understands.
	formatted := FormatText("x", nil, nil, StyleReverse)
	if !strings.Contains(formatted, "[7m") {
		t.Errorf("expected SGR 7, got %q", formatted)
	}
}
