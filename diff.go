package shellterm

import (
	"github.com/cespare/xxhash/v2"
)

// OutputDiff extracts the lines appended to a terminal render since the
// previous observation. It keeps the last seen render and a content hash
// so repeated polls of an unchanged screen cost one hash comparison.
type OutputDiff struct {
	prevLines []string
	prevHash  uint64
	primed    bool
}

// NewOutputDiff creates a diff detector with no previous observation.
func NewOutputDiff() *OutputDiff {
	return &OutputDiff{}
}

// DetectChanges returns the lines of the current render that are new since
// the previous call. The first call returns everything. An unchanged
// render returns nil. When the screen was rewritten rather than appended
// to (no anchor from the previous render survives), the full render is
// returned.
func (d *OutputDiff) DetectChanges(lines []string) []string {
	hash := hashLines(lines)

	if d.primed && hash == d.prevHash {
		return nil
	}

	var changed []string
	if !d.primed || len(d.prevLines) == 0 {
		changed = lines
	} else {
		changed = diffLines(d.prevLines, lines)
	}

	d.prevLines = append([]string(nil), lines...)
	d.prevHash = hash
	d.primed = true
	return changed
}

// Previous returns the render seen by the last DetectChanges call.
func (d *OutputDiff) Previous() []string {
	return d.prevLines
}

// Reset forgets the previous observation; the next DetectChanges returns
// the full render.
func (d *OutputDiff) Reset() {
	d.prevLines = nil
	d.prevHash = 0
	d.primed = false
}

// diffLines returns the suffix of new that follows the content of old.
//
// The anchor is the last non-empty old line: new is scanned from the end
// for the best occurrence of it, scored by how many preceding lines also
// match backward from that point. Everything after the anchor is the
// incremental output. With no surviving anchor the screen was rewritten,
// so the whole of new is returned.
func diffLines(old, new []string) []string {
	if len(old) == 0 {
		return new
	}

	anchor := -1
	for i := len(old) - 1; i >= 0; i-- {
		if old[i] != "" {
			anchor = i
			break
		}
	}
	if anchor == -1 {
		return new
	}

	bestIdx := -1
	bestScore := -1
	for i := len(new) - 1; i >= 0; i-- {
		if new[i] != old[anchor] {
			continue
		}
		score := 0
		for j, k := anchor-1, i-1; j >= 0 && k >= 0; j, k = j-1, k-1 {
			if old[j] != new[k] {
				break
			}
			score++
		}
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
		// A perfect backward run cannot be beaten by an earlier occurrence.
		if score == anchor {
			break
		}
	}

	if bestIdx == -1 {
		return new
	}
	return new[bestIdx+1:]
}

// hashLines produces a content hash over rendered lines. A separator byte
// keeps ["ab"] and ["a","b"] distinct.
func hashLines(lines []string) uint64 {
	h := xxhash.New()
	for _, line := range lines {
		_, _ = h.WriteString(line)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
