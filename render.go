package shellterm

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// incrementalWindow caps how much raw input is compared when extracting
// incremental output. Beyond this, only the trailing window matters to an
// agent anyway.
const incrementalWindow = 100000

// Renderer turns raw terminal bytes into display lines, memoizing full
// renders and extracting the incremental portion between two captures of
// the same stream.
type Renderer struct {
	cols  int
	cache *RenderCache
}

// RendererOption configures a Renderer during construction.
type RendererOption func(*Renderer)

// WithRenderColumns sets the screen width used for rendering.
func WithRenderColumns(cols int) RendererOption {
	return func(r *Renderer) {
		if cols > 0 {
			r.cols = cols
		}
	}
}

// WithRenderCache injects a cache, shared between renderers if desired.
func WithRenderCache(cache *RenderCache) RendererOption {
	return func(r *Renderer) {
		if cache != nil {
			r.cache = cache
		}
	}
}

// NewRenderer creates a renderer with a type-default cache and DefaultCols width.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{cols: DefaultCols}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewRenderCache(DefaultCacheCapacity, DefaultCacheTTL)
	}
	return r
}

// RenderTerminalOutput renders text on a fresh screen and returns the
// display lines. Renders of inputs below CacheMaxInputSize are memoized.
func (r *Renderer) RenderTerminalOutput(text string) []string {
	cacheable := len(text) < CacheMaxInputSize
	key := xxhash.Sum64String(text)

	if cacheable {
		if lines, ok := r.cache.Get(key); ok {
			return lines
		}
	}

	em := NewEmulator(WithColumns(r.cols))
	if len(text) >= LimitedBufferThreshold {
		em.ProcessWithLimitedBuffer(text, DefaultMaxLines)
	} else {
		em.Process(text)
	}
	lines := em.Display()

	if cacheable {
		r.cache.Add(key, lines)
	}
	return lines
}

// IncrementalText returns the portion of text that is new relative to
// lastPending, as rendered display text. lastPending must be an earlier
// capture of the same stream ("" means render everything).
func (r *Renderer) IncrementalText(text, lastPending string) string {
	if lastPending == "" {
		return strings.Join(r.RenderTerminalOutput(text), "\n")
	}

	// Pure append on a line boundary: the new bytes render independently.
	if strings.HasSuffix(lastPending, "\n") && strings.HasPrefix(text, lastPending) {
		suffix := text[len(lastPending):]
		if suffix == "" {
			return ""
		}
		return strings.Join(r.RenderTerminalOutput(suffix), "\n")
	}

	// Compare only the trailing windows of very large streams, aligned to
	// a line start so neither side begins mid-line or mid-escape.
	if len(text) > incrementalWindow {
		text = alignToLine(text[len(text)-incrementalWindow:])
	}
	if len(lastPending) > incrementalWindow {
		lastPending = alignToLine(lastPending[len(lastPending)-incrementalWindow:])
	}

	oldLines := r.RenderTerminalOutput(lastPending)
	newLines := r.RenderTerminalOutput(text)
	return strings.Join(diffLines(oldLines, newLines), "\n")
}

// alignToLine drops the leading partial line of a byte-sliced window.
func alignToLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
