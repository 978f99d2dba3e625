// Package colorscale maps metric values onto a two-color sequential ramp.
package colorscale

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Color is an opaque 8-bit RGB color.
type Color struct {
	R, G, B uint8
}

// ParseHex parses a hex color string like "#000" or "#64766e".
func ParseHex(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	var r, g, b uint8
	switch len(s) {
	case 3:
		_, err := fmt.Sscanf(s, "%1x%1x%1x", &r, &g, &b)
		if err != nil {
			return Color{}, eris.Wrapf(err, "colorscale: invalid hex color %q", s)
		}
		r = r*16 + r
		g = g*16 + g
		b = b*16 + b
	case 6:
		_, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b)
		if err != nil {
			return Color{}, eris.Wrapf(err, "colorscale: invalid hex color %q", s)
		}
	default:
		return Color{}, eris.Errorf("colorscale: invalid hex color %q: must be 3 or 6 hex digits", s)
	}
	return Color{R: r, G: g, B: b}, nil
}

// MustParseHex is like ParseHex but panics on error.
func MustParseHex(s string) Color {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex returns the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// String returns the color in CSS functional notation.
func (c Color) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// MarshalText encodes the color as CSS rgb() so styles read naturally in JSON.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
