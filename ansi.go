package shellterm

import (
	"fmt"
	"image/color"
	"regexp"
	"strconv"
	"strings"
)

// Style is an SGR rendition parameter.
type Style int

// The SGR dispatch table. Codes 30-49 and 58/59 are colors and are
// expressed through FormatText's color arguments instead.
const (
	StyleReset            Style = 0
	StyleBold             Style = 1
	StyleFaint            Style = 2
	StyleItalic           Style = 3
	StyleUnderline        Style = 4
	StyleSlowBlink        Style = 5
	StyleRapidBlink       Style = 6
	StyleReverse          Style = 7
	StyleConceal          Style = 8
	StyleCrossedOut       Style = 9
	StylePrimaryFont      Style = 10
	StyleAltFont1         Style = 11
	StyleAltFont2         Style = 12
	StyleAltFont3         Style = 13
	StyleAltFont4         Style = 14
	StyleAltFont5         Style = 15
	StyleAltFont6         Style = 16
	StyleAltFont7         Style = 17
	StyleAltFont8         Style = 18
	StyleAltFont9         Style = 19
	StyleFraktur          Style = 20
	StyleDoubleUnderline  Style = 21
	StyleNormalIntensity  Style = 22
	StyleNotItalic        Style = 23
	StyleNotUnderlined    Style = 24
	StyleNotBlinking      Style = 25
	StyleNotReversed      Style = 27
	StyleReveal           Style = 28
	StyleNotCrossedOut    Style = 29
	StyleFramed           Style = 51
	StyleEncircled        Style = 52
	StyleOverlined        Style = 53
	StyleNotFramed        Style = 54
	StyleNotOverlined     Style = 55
	StyleSuperscript      Style = 73
	StyleSubscript        Style = 74
	StyleNotSuperSub      Style = 75
)

// ansiPattern matches two-byte escapes and CSI sequences; oscPattern
// matches OSC strings terminated by BEL or ST.
var (
	ansiPattern = regexp.MustCompile(`\x1b(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)
	oscPattern  = regexp.MustCompile(`\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)?`)
)

// StripAnsi removes all ANSI escape sequences from text.
// StripAnsi(FormatText(s, ...)) == s for any s without escapes.
func StripAnsi(text string) string {
	text = oscPattern.ReplaceAllString(text, "")
	return ansiPattern.ReplaceAllString(text, "")
}

// FormatText wraps text in SGR sequences for the given foreground,
// background, and styles, followed by a reset. nil colors and an empty
// style list contribute nothing; with no parameters at all the text is
// returned unchanged.
func FormatText(text string, fg, bg color.Color, styles ...Style) string {
	params := make([]string, 0, len(styles)+2)
	for _, s := range styles {
		params = append(params, strconv.Itoa(int(s)))
	}
	if fg != nil {
		params = append(params, colorParams(fg, true))
	}
	if bg != nil {
		params = append(params, colorParams(bg, false))
	}
	if len(params) == 0 {
		return text
	}
	return "\x1b[" + strings.Join(params, ";") + "m" + text + "\x1b[0m"
}

// colorParams renders a cell color as SGR parameters.
func colorParams(c color.Color, fg bool) string {
	switch v := c.(type) {
	case *BasicColor:
		if v.Index < 8 {
			if fg {
				return strconv.Itoa(30 + v.Index)
			}
			return strconv.Itoa(40 + v.Index)
		}
		if fg {
			return strconv.Itoa(90 + v.Index - 8)
		}
		return strconv.Itoa(100 + v.Index - 8)
	case *IndexedColor:
		if fg {
			return fmt.Sprintf("38;5;%d", v.Index)
		}
		return fmt.Sprintf("48;5;%d", v.Index)
	default:
		rgba := resolveRGBA(c, fg)
		if fg {
			return fmt.Sprintf("38;2;%d;%d;%d", rgba.R, rgba.G, rgba.B)
		}
		return fmt.Sprintf("48;2;%d;%d;%d", rgba.R, rgba.G, rgba.B)
	}
}

// basicColorNames maps color names to the 16 basic palette indices.
var basicColorNames = map[string]int{
	"black":          0,
	"red":            1,
	"green":          2,
	"yellow":         3,
	"blue":           4,
	"magenta":        5,
	"cyan":           6,
	"white":          7,
	"gray":           8,
	"grey":           8,
	"bright-black":   8,
	"bright-red":     9,
	"bright-green":   10,
	"bright-yellow":  11,
	"bright-blue":    12,
	"bright-magenta": 13,
	"bright-cyan":    14,
	"bright-white":   15,
}

// ParseColorName resolves a color spec: a basic color name ("red",
// "bright-blue"), a 256-palette reference ("256:208"), or a hex value
// ("#fa0" or "#ffaa00").
func ParseColorName(name string) (color.Color, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	if idx, ok := basicColorNames[name]; ok {
		return &BasicColor{Index: idx}, nil
	}

	if rest, ok := strings.CutPrefix(name, "256:"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 || n > 255 {
			return nil, fmt.Errorf("invalid 256-color index %q", rest)
		}
		return &IndexedColor{Index: n}, nil
	}

	if hex, ok := strings.CutPrefix(name, "#"); ok {
		switch len(hex) {
		case 3:
			var r, g, b uint8
			for i, out := range []*uint8{&r, &g, &b} {
				v, err := strconv.ParseUint(hex[i:i+1], 16, 8)
				if err != nil {
					return nil, fmt.Errorf("invalid hex color %q", name)
				}
				*out = uint8(v * 17)
			}
			return color.RGBA{R: r, G: g, B: b, A: 255}, nil
		case 6:
			var r, g, b uint8
			for i, out := range []*uint8{&r, &g, &b} {
				v, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
				if err != nil {
					return nil, fmt.Errorf("invalid hex color %q", name)
				}
				*out = uint8(v)
			}
			return color.RGBA{R: r, G: g, B: b, A: 255}, nil
		default:
			return nil, fmt.Errorf("invalid hex color %q", name)
		}
	}

	return nil, fmt.Errorf("unknown color %q", name)
}

// TextStyle is the state accumulated by a run of SGR parameters.
type TextStyle struct {
	Fg             color.Color
	Bg             color.Color
	UnderlineColor color.Color
	Flags          CellFlags
	Font           uint8
}

// StyledSegment is a run of text with uniform styling.
type StyledSegment struct {
	Text  string
	Style TextStyle
}

// ExtractStyles splits text into runs of uniform styling by interpreting
// its SGR sequences in place. Non-SGR escapes are dropped.
func ExtractStyles(text string) []StyledSegment {
	var (
		segments []StyledSegment
		current  TextStyle
		buf      strings.Builder
	)

	flush := func() {
		if buf.Len() > 0 {
			segments = append(segments, StyledSegment{Text: buf.String(), Style: current})
			buf.Reset()
		}
	}

	for len(text) > 0 {
		loc := ansiPattern.FindStringIndex(text)
		if loc == nil {
			buf.WriteString(oscPattern.ReplaceAllString(text, ""))
			break
		}
		buf.WriteString(oscPattern.ReplaceAllString(text[:loc[0]], ""))

		seq := text[loc[0]:loc[1]]
		text = text[loc[1]:]
		if !strings.HasPrefix(seq, "\x1b[") || !strings.HasSuffix(seq, "m") {
			continue
		}

		flush()
		applySGRParams(&current, parseSGRParams(seq[2:len(seq)-1]))
	}

	flush()
	return segments
}

// parseSGRParams splits a CSI m parameter string into integers; empty
// parameters mean 0.
func parseSGRParams(raw string) []int {
	if raw == "" {
		return []int{0}
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == ':' })
	params := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			n = 0
		}
		params = append(params, n)
	}
	if len(params) == 0 {
		return []int{0}
	}
	return params
}

// applySGRParams runs the full SGR dispatch table over a parameter list.
// Unknown codes are ignored.
func applySGRParams(st *TextStyle, params []int) {
	for i := 0; i < len(params); i++ {
		switch code := params[i]; {
		case code == 0:
			*st = TextStyle{}
		case code == 1:
			st.Flags |= CellFlagBold
		case code == 2:
			st.Flags |= CellFlagDim
		case code == 3:
			st.Flags |= CellFlagItalic
		case code == 4:
			st.Flags |= CellFlagUnderline
		case code == 5:
			st.Flags |= CellFlagBlinkSlow
		case code == 6:
			st.Flags |= CellFlagBlinkFast
		case code == 7:
			st.Flags |= CellFlagReverse
		case code == 8:
			st.Flags |= CellFlagHidden
		case code == 9:
			st.Flags |= CellFlagStrike
		case code >= 10 && code <= 19:
			st.Font = uint8(code - 10)
		case code == 21:
			st.Flags |= CellFlagDoubleUnderline
		case code == 22:
			st.Flags &^= CellFlagBold | CellFlagDim
		case code == 23:
			st.Flags &^= CellFlagItalic
		case code == 24:
			st.Flags &^= CellFlagUnderline | CellFlagDoubleUnderline
		case code == 25:
			st.Flags &^= CellFlagBlinkSlow | CellFlagBlinkFast
		case code == 27:
			st.Flags &^= CellFlagReverse
		case code == 28:
			st.Flags &^= CellFlagHidden
		case code == 29:
			st.Flags &^= CellFlagStrike
		case code >= 30 && code <= 37:
			st.Fg = &BasicColor{Index: code - 30}
		case code == 38:
			var c color.Color
			c, i = parseExtendedColor(params, i)
			if c != nil {
				st.Fg = c
			}
		case code == 39:
			st.Fg = nil
		case code >= 40 && code <= 47:
			st.Bg = &BasicColor{Index: code - 40}
		case code == 48:
			var c color.Color
			c, i = parseExtendedColor(params, i)
			if c != nil {
				st.Bg = c
			}
		case code == 49:
			st.Bg = nil
		case code == 51:
			st.Flags |= CellFlagFramed
		case code == 52:
			st.Flags |= CellFlagEncircled
		case code == 53:
			st.Flags |= CellFlagOverlined
		case code == 54:
			st.Flags &^= CellFlagFramed | CellFlagEncircled
		case code == 55:
			st.Flags &^= CellFlagOverlined
		case code == 58:
			var c color.Color
			c, i = parseExtendedColor(params, i)
			if c != nil {
				st.UnderlineColor = c
			}
		case code == 59:
			st.UnderlineColor = nil
		case code == 73:
			st.Flags |= CellFlagSuperscript
		case code == 74:
			st.Flags |= CellFlagSubscript
		case code == 75:
			st.Flags &^= CellFlagSuperscript | CellFlagSubscript
		case code >= 90 && code <= 97:
			st.Fg = &BasicColor{Index: code - 90 + 8}
		case code >= 100 && code <= 107:
			st.Bg = &BasicColor{Index: code - 100 + 8}
		}
	}
}

// parseExtendedColor consumes a 38/48/58 extended color after index i and
// returns the color plus the index of the last consumed parameter.
func parseExtendedColor(params []int, i int) (color.Color, int) {
	if i+1 >= len(params) {
		return nil, i
	}
	switch params[i+1] {
	case 5:
		if i+2 < len(params) {
			n := params[i+2]
			if n >= 0 && n < 256 {
				return &IndexedColor{Index: n}, i + 2
			}
		}
		return nil, i + 2
	case 2:
		if i+4 < len(params) {
			return color.RGBA{
				R: uint8(clamp(params[i+2], 0, 255)),
				G: uint8(clamp(params[i+3], 0, 255)),
				B: uint8(clamp(params[i+4], 0, 255)),
				A: 255,
			}, i + 4
		}
		return nil, len(params) - 1
	default:
		return nil, i + 1
	}
}
