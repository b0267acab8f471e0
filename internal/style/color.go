package style

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// namedColors covers the OSM colour words that appear on route
// relations in the wild
var namedColors = map[string]color.NRGBA{
	"red":    {0xcc, 0x00, 0x00, 0xff},
	"blue":   {0x35, 0x56, 0xdd, 0xff},
	"green":  {0x1c, 0x8a, 0x1c, 0xff},
	"yellow": {0xe6, 0xc8, 0x00, 0xff},
	"orange": {0xe8, 0x82, 0x00, 0xff},
	"purple": {0x80, 0x2b, 0xa8, 0xff},
	"black":  {0x00, 0x00, 0x00, 0xff},
	"white":  {0xff, 0xff, 0xff, 0xff},
	"brown":  {0x8a, 0x5a, 0x2b, 0xff},
	"gray":   {0x80, 0x80, 0x80, 0xff},
	"grey":   {0x80, 0x80, 0x80, 0xff},
}

// ParseColor parses "#rgb", "#rrggbb", "#rrggbbaa" or an OSM colour word
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	if c, ok := namedColors[s]; ok {
		return c, nil
	}

	if !strings.HasPrefix(s, "#") {
		return color.NRGBA{}, fmt.Errorf("unknown color %q", s)
	}
	hex := s[1:]

	switch len(hex) {
	case 3:
		var b strings.Builder
		for _, r := range hex {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		hex = b.String()
	case 6, 8:
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}

	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}

	if len(hex) == 8 {
		return color.NRGBA{
			R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v),
		}, nil
	}
	return color.NRGBA{
		R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff,
	}, nil
}

// MustColor parses a color or panics; for built-in rule tables only
func MustColor(s string) color.NRGBA {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}
