package css

import (
	"strconv"
	"strings"
)

// Color is an sRGB color with float alpha in [0, 1].
type Color struct {
	R, G, B uint8
	A       float64
}

// RGBA returns the channels as gg-friendly floats.
func (c Color) RGBA() (r, g, b, a float64) {
	return float64(c.R) / 255.0, float64(c.G) / 255.0, float64(c.B) / 255.0, c.A
}

var namedColors = map[string]Color{
	"red":         {255, 0, 0, 1},
	"green":       {0, 128, 0, 1},
	"blue":        {0, 0, 255, 1},
	"yellow":      {255, 255, 0, 1},
	"cyan":        {0, 255, 255, 1},
	"magenta":     {255, 0, 255, 1},
	"white":       {255, 255, 255, 1},
	"black":       {0, 0, 0, 1},
	"gray":        {128, 128, 128, 1},
	"grey":        {128, 128, 128, 1},
	"orange":      {255, 165, 0, 1},
	"purple":      {128, 0, 128, 1},
	"pink":        {255, 192, 203, 1},
	"brown":       {165, 42, 42, 1},
	"lime":        {0, 255, 0, 1},
	"navy":        {0, 0, 128, 1},
	"teal":        {0, 128, 128, 1},
	"silver":      {192, 192, 192, 1},
	"transparent": {0, 0, 0, 0},
}

// ParseColor understands named colors, #rgb, #rrggbb, #rrggbbaa, rgb() and
// rgba().
func ParseColor(colorStr string) (Color, bool) {
	colorStr = strings.ToLower(strings.TrimSpace(colorStr))
	if c, ok := namedColors[colorStr]; ok {
		return c, true
	}
	if strings.HasPrefix(colorStr, "#") {
		return parseHexColor(colorStr[1:])
	}
	if strings.HasPrefix(colorStr, "rgb") {
		return parseRGBFunc(colorStr)
	}
	return Color{}, false
}

func parseHexColor(hex string) (Color, bool) {
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6, 8:
	default:
		return Color{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, false
	}
	if len(hex) == 8 {
		return Color{uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), float64(uint8(v)) / 255.0}, true
	}
	return Color{uint8(v >> 16), uint8(v >> 8), uint8(v), 1}, true
}

func parseRGBFunc(s string) (Color, bool) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return Color{}, false
	}
	parts := strings.Split(s[open+1:len(s)-1], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return Color{}, false
	}
	var ch [3]uint8
	for i := 0; i < 3; i++ {
		n, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil || n < 0 || n > 255 {
			return Color{}, false
		}
		ch[i] = uint8(n)
	}
	c := Color{ch[0], ch[1], ch[2], 1}
	if len(parts) == 4 {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || a < 0 || a > 1 {
			return Color{}, false
		}
		c.A = a
	}
	return c, true
}
