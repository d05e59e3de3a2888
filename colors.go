package shellterm

import "image/color"

// DefaultPalette is the standard 256-color palette: 16 named colors (0-15),
// 216 color cube (16-231), 24 grayscale steps (232-255).
var DefaultPalette = [256]color.RGBA{
	// Standard colors (0-7)
	{0, 0, 0, 255},       // Black
	{205, 49, 49, 255},   // Red
	{13, 188, 121, 255},  // Green
	{229, 229, 16, 255},  // Yellow
	{36, 114, 200, 255},  // Blue
	{188, 63, 188, 255},  // Magenta
	{17, 168, 205, 255},  // Cyan
	{229, 229, 229, 255}, // White

	// Bright colors (8-15)
	{102, 102, 102, 255}, // Bright Black
	{241, 76, 76, 255},   // Bright Red
	{35, 209, 139, 255},  // Bright Green
	{245, 245, 67, 255},  // Bright Yellow
	{59, 142, 234, 255},  // Bright Blue
	{214, 112, 214, 255}, // Bright Magenta
	{41, 184, 219, 255},  // Bright Cyan
	{255, 255, 255, 255}, // Bright White

	// 16-255 generated in init below
}

func init() {
	// 216 color cube (16-231)
	i := 16
	for r := 0; r < 6; r++ {
		for g := 0; g < 6; g++ {
			for b := 0; b < 6; b++ {
				DefaultPalette[i] = color.RGBA{
					R: uint8(r * 51),
					G: uint8(g * 51),
					B: uint8(b * 51),
					A: 255,
				}
				i++
			}
		}
	}

	// Grayscale (232-255)
	for j := 0; j < 24; j++ {
		gray := uint8(8 + j*10)
		DefaultPalette[232+j] = color.RGBA{gray, gray, gray, 255}
	}
}

// DefaultForeground is the default text color (light gray).
var DefaultForeground = color.RGBA{229, 229, 229, 255}

// DefaultBackground is the default background color (black).
var DefaultBackground = color.RGBA{0, 0, 0, 255}

// BasicColor is one of the 16 standard terminal colors (SGR 30-37, 90-97
// and their background forms).
type BasicColor struct {
	Index int // 0-15
}

// RGBA resolves the color through the default palette.
func (c *BasicColor) RGBA() (r, g, b, a uint32) {
	if c.Index >= 0 && c.Index < 16 {
		return DefaultPalette[c.Index].RGBA()
	}
	return DefaultForeground.RGBA()
}

// IndexedColor is a 256-color palette reference (SGR 38;5;n / 48;5;n).
type IndexedColor struct {
	Index int // 0-255
}

// RGBA resolves the color through the default palette.
func (c *IndexedColor) RGBA() (r, g, b, a uint32) {
	if c.Index >= 0 && c.Index < 256 {
		return DefaultPalette[c.Index].RGBA()
	}
	return DefaultForeground.RGBA()
}

// resolveRGBA converts a cell color to concrete RGBA. A nil color resolves
// to the default foreground or background depending on fg.
func resolveRGBA(c color.Color, fg bool) color.RGBA {
	if c == nil {
		if fg {
			return DefaultForeground
		}
		return DefaultBackground
	}

	switch v := c.(type) {
	case color.RGBA:
		return v
	case *BasicColor:
		if v.Index >= 0 && v.Index < 16 {
			return DefaultPalette[v.Index]
		}
	case *IndexedColor:
		if v.Index >= 0 && v.Index < 256 {
			return DefaultPalette[v.Index]
		}
	default:
		r, g, b, a := c.RGBA()
		return color.RGBA{
			R: uint8(r >> 8),
			G: uint8(g >> 8),
			B: uint8(b >> 8),
			A: uint8(a >> 8),
		}
	}

	if fg {
		return DefaultForeground
	}
	return DefaultBackground
}

var _ color.Color = (*BasicColor)(nil)
var _ color.Color = (*IndexedColor)(nil)
