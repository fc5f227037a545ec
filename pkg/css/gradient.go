package css

import (
	"math"
	"strconv"
	"strings"
)

// ColorStop represents a color and its position in a gradient
type ColorStop struct {
	Color Color
	// Offset is a 0-1 fraction, or pixels when Pixels is set. -1 means
	// unspecified.
	Offset float64
	Pixels bool
}

// Gradient is a linear-gradient() background.
type Gradient struct {
	Angle      float64 // degrees, CSS convention: 180 = to bottom
	ColorStops []ColorStop
}

// IsGradient reports whether a background value is a gradient function.
func IsGradient(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), "linear-gradient(")
}

// ParseLinearGradient parses a linear-gradient() value
// Example: "linear-gradient(to right, #fff 0%, rgba(0,0,0,0.5) 120px)"
func ParseLinearGradient(value string) (*Gradient, bool) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "linear-gradient(") || !strings.HasSuffix(value, ")") {
		return nil, false
	}
	content := value[len("linear-gradient(") : len(value)-1]

	parts := splitGradientParts(content)
	if len(parts) < 2 {
		return nil, false
	}

	grad := &Gradient{Angle: 180}
	startIdx := 0
	first := strings.TrimSpace(parts[0])
	if angle, ok := parseDirection(first); ok {
		grad.Angle = angle
		startIdx = 1
	}

	for i := startIdx; i < len(parts); i++ {
		stop, ok := parseColorStop(strings.TrimSpace(parts[i]))
		if !ok {
			return nil, false
		}
		grad.ColorStops = append(grad.ColorStops, stop)
	}
	if len(grad.ColorStops) < 2 {
		return nil, false
	}
	return grad, true
}

func parseDirection(s string) (float64, bool) {
	switch s {
	case "to top":
		return 0, true
	case "to right":
		return 90, true
	case "to bottom":
		return 180, true
	case "to left":
		return 270, true
	case "to top right", "to right top":
		return 45, true
	case "to bottom right", "to right bottom":
		return 135, true
	case "to bottom left", "to left bottom":
		return 225, true
	case "to top left", "to left top":
		return 315, true
	}
	if strings.HasSuffix(s, "deg") {
		deg, err := strconv.ParseFloat(strings.TrimSuffix(s, "deg"), 64)
		if err == nil {
			return deg, true
		}
	}
	return 0, false
}

// parseColorStop parses "blue", "blue 150px" or "rgba(0,0,0,.5) 50%".
func parseColorStop(stop string) (ColorStop, bool) {
	colorPart, pos := stop, ""
	if i := strings.LastIndexByte(stop, ' '); i > 0 && !strings.HasSuffix(stop, ")") {
		colorPart, pos = strings.TrimSpace(stop[:i]), stop[i+1:]
	}
	color, ok := ParseColor(colorPart)
	if !ok {
		return ColorStop{}, false
	}
	cs := ColorStop{Color: color, Offset: -1}
	switch {
	case strings.HasSuffix(pos, "px"):
		if px, err := strconv.ParseFloat(strings.TrimSuffix(pos, "px"), 64); err == nil {
			cs.Offset = px
			cs.Pixels = true
		}
	case strings.HasSuffix(pos, "%"):
		if pct, err := strconv.ParseFloat(strings.TrimSuffix(pos, "%"), 64); err == nil {
			cs.Offset = pct / 100.0
		}
	case pos != "":
		return ColorStop{}, false
	}
	return cs, true
}

// splitGradientParts splits gradient content by commas, respecting parentheses
func splitGradientParts(content string) []string {
	var parts []string
	var current strings.Builder
	parenDepth := 0

	for _, ch := range content {
		switch {
		case ch == '(':
			parenDepth++
			current.WriteRune(ch)
		case ch == ')':
			parenDepth--
			current.WriteRune(ch)
		case ch == ',' && parenDepth == 0:
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// Line returns the gradient line for a w x h box at the origin, following
// the CSS rule that the line length covers the box corners.
func (g *Gradient) Line(w, h float64) (x0, y0, x1, y1 float64) {
	rad := g.Angle * math.Pi / 180
	dx, dy := math.Sin(rad), -math.Cos(rad)
	half := (math.Abs(w*dx) + math.Abs(h*dy)) / 2
	cx, cy := w/2, h/2
	return cx - dx*half, cy - dy*half, cx + dx*half, cy + dy*half
}

// Resolve converts pixel stops to fractions of the gradient line length and
// fills unspecified stops by even distribution.
func (g *Gradient) Resolve(w, h float64) []ColorStop {
	x0, y0, x1, y1 := g.Line(w, h)
	length := math.Hypot(x1-x0, y1-y0)
	stops := make([]ColorStop, len(g.ColorStops))
	copy(stops, g.ColorStops)
	for i := range stops {
		if stops[i].Pixels {
			if length > 0 {
				stops[i].Offset /= length
			} else {
				stops[i].Offset = 0
			}
			stops[i].Pixels = false
		}
	}
	fillMissingOffsets(stops)
	return stops
}

// fillMissingOffsets fills in any color stops that don't have explicit offsets
func fillMissingOffsets(stops []ColorStop) {
	if len(stops) == 0 {
		return
	}
	if stops[0].Offset < 0 {
		stops[0].Offset = 0
	}
	last := len(stops) - 1
	if stops[last].Offset < 0 {
		stops[last].Offset = 1.0
	}
	for i := 1; i < last; i++ {
		if stops[i].Offset >= 0 {
			continue
		}
		next := i + 1
		for next < last && stops[next].Offset < 0 {
			next++
		}
		prev := stops[i-1].Offset
		step := (stops[next].Offset - prev) / float64(next-i+1)
		stops[i].Offset = prev + step
	}
}
