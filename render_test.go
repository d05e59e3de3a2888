package shellterm

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestRenderTerminalOutput(t *testing.T) {
	r := NewRenderer()

	lines := r.RenderTerminalOutput("Hello\r\nWorld")
	if len(lines) != 2 || lines[0] != "Hello" || lines[1] != "World" {
		t.Errorf("expected two lines, got %q", lines)
	}
}

func TestRenderTerminalOutputEscapes(t *testing.T) {
	r := NewRenderer()

	lines := r.RenderTerminalOutput("progress: 10%\rprogress: 99%")
	if len(lines) != 1 || lines[0] != "progress: 99%" {
		t.Errorf("expected overwritten line, got %q", lines)
	}
}

func TestRenderTerminalOutputCached(t *testing.T) {
	cache := NewRenderCache(10, time.Minute)
	r := NewRenderer(WithRenderCache(cache))

	r.RenderTerminalOutput("Hello")
	if cache.Len() != 1 {
		t.Errorf("expected 1 cached render, got %d", cache.Len())
	}

	lines := r.RenderTerminalOutput("Hello")
	if len(lines) != 1 || lines[0] != "Hello" {
		t.Errorf("expected cached render, got %q", lines)
	}
}

func TestRenderTerminalOutputHugeInputNotCached(t *testing.T) {
	cache := NewRenderCache(10, time.Minute)
	r := NewRenderer(WithRenderCache(cache))

	var b strings.Builder
	for b.Len() < CacheMaxInputSize {
		b.WriteString("line of output\r\n")
	}
	r.RenderTerminalOutput(b.String())

	if cache.Len() != 0 {
		t.Errorf("expected huge render skipped by cache, got %d entries", cache.Len())
	}
}

func TestRenderColumns(t *testing.T) {
	r := NewRenderer(WithRenderColumns(5))

	lines := r.RenderTerminalOutput("HelloWorld")
	if len(lines) != 2 || lines[0] != "Hello" {
		t.Errorf("expected wrap at 5 columns, got %q", lines)
	}
}

func TestIncrementalTextFull(t *testing.T) {
	r := NewRenderer()

	got := r.IncrementalText("Hello\r\nWorld", "")
	if got != "Hello\nWorld" {
		t.Errorf("expected full render, got %q", got)
	}
}

func TestIncrementalTextAppend(t *testing.T) {
	r := NewRenderer()

	last := "one\r\ntwo\r\n"
	got := r.IncrementalText(last+"three\r\nfour", last)
	if got != "three\nfour" {
		t.Errorf("expected only new lines, got %q", got)
	}
}

func TestIncrementalTextNoChange(t *testing.T) {
	r := NewRenderer()

	last := "one\r\ntwo\r\n"
	got := r.IncrementalText(last, last)
	if got != "" {
		t.Errorf("expected empty incremental text, got %q", got)
	}
}

func TestIncrementalTextDiff(t *testing.T) {
	r := NewRenderer()

	// lastPending does not end on a line boundary, so the renders are
	// diffed instead of the raw streams.
	last := "one\r\ntwo"
	got := r.IncrementalText("one\r\ntwo\r\nthree", last)
	if got != "three" {
		t.Errorf("expected %q, got %q", "three", got)
	}
}

func TestAlignToLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"tail of a cut line\nfull line\n", "full line\n"},
		{"\x1b[3first\nsecond", "second"},
		{"no newline at all", "no newline at all"},
		{"\nleading", "leading"},
	}
	for _, tt := range tests {
		if got := alignToLine(tt.in); got != tt.want {
			t.Errorf("alignToLine(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestIncrementalTextLargeStream(t *testing.T) {
	r := NewRenderer()

	var b strings.Builder
	for i := 0; b.Len() < incrementalWindow+10000; i++ {
		fmt.Fprintf(&b, "filler line %d\r\n", i)
	}
	b.WriteString("anchor line")
	last := b.String()
	b.WriteString("\r\nthe new line")

	got := r.IncrementalText(b.String(), last)
	if !strings.Contains(got, "the new line") {
		t.Errorf("expected new line in incremental text, got %q", got)
	}
}
