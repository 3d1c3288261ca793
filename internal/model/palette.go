package model

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// CategoryPalette maps schedule categories to fill colors. It is passed
// explicitly to whatever needs it; there is no shared global table.
type CategoryPalette struct {
	Colors  map[string]color.NRGBA
	Default color.NRGBA
	Text    color.NRGBA
}

// DefaultPalette returns the stock category colors.
func DefaultPalette() CategoryPalette {
	return CategoryPalette{
		Colors: map[string]color.NRGBA{
			"Work":     {R: 0x8e, G: 0xb4, B: 0xe3, A: 0xff},
			"Meeting":  {R: 0xf4, G: 0xc4, B: 0x7c, A: 0xff},
			"Phone":    {R: 0xb5, G: 0xd9, B: 0x9c, A: 0xff},
			"Email":    {R: 0xd9, G: 0xb3, B: 0xe6, A: 0xff},
			"Holiday":  {R: 0xf2, G: 0x9e, B: 0x9e, A: 0xff},
			"Birthday": {R: 0xff, G: 0xe0, B: 0x82, A: 0xff},
		},
		Default: color.NRGBA{R: 0xc8, G: 0xc8, B: 0xc8, A: 0xff},
		Text:    color.NRGBA{A: 0xff},
	}
}

// Lookup returns the color for category, or Default when unknown.
func (p CategoryPalette) Lookup(category string) color.NRGBA {
	if c, ok := p.Colors[category]; ok {
		return c
	}
	return p.Default
}

// ParseHexColor parses "#rrggbb" or "#rrggbbaa".
func ParseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 && len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("model: invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("model: invalid color %q: %w", s, err)
	}
	if len(h) == 6 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

// HexColor formats c as "#rrggbb", or "#rrggbbaa" when not opaque.
func HexColor(c color.NRGBA) string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
