package render

import (
	"strconv"
	"strings"

	"painter/pkg/css"
	"painter/pkg/view"
)

// defaultFontSize applies to text views without a fontSize.
const defaultFontSize = "20rpx"

// lineHeightFactor sizes a single text line relative to its font size.
const lineHeightFactor = 1.2

// BoxEdge represents the four sides of a box (top, right, bottom, left)
type BoxEdge struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// length resolves a dimension property. ok is false when it is absent.
func (p *Pen) length(style *css.Style, property string, base float64) (float64, bool) {
	val, ok := style.Get(property)
	if !ok || val == "" {
		return 0, false
	}
	return float64(p.units.ToPx(val, base, p.rects)), true
}

func (p *Pen) lengthOr(style *css.Style, property string, base, def float64) float64 {
	if v, ok := p.length(style, property, base); ok {
		return v
	}
	return def
}

// padding expands the padding shorthand.
// Supports: "10px" (all), "10px 20px" (vertical horizontal),
// "10px 20px 30px" (top h bottom), "10px 20px 30px 40px" (t r b l)
func (p *Pen) padding(style *css.Style, cw float64) BoxEdge {
	val, ok := style.Get("padding")
	if !ok {
		return BoxEdge{}
	}
	parts := strings.Fields(val)
	px := make([]float64, len(parts))
	for i, part := range parts {
		px[i] = float64(p.units.ToPx(part, cw, p.rects))
	}
	switch len(px) {
	case 1:
		return BoxEdge{px[0], px[0], px[0], px[0]}
	case 2:
		return BoxEdge{px[0], px[1], px[0], px[1]}
	case 3:
		return BoxEdge{px[0], px[1], px[2], px[1]}
	case 4:
		return BoxEdge{px[0], px[1], px[2], px[3]}
	}
	return BoxEdge{}
}

func (p *Pen) fontSize(style *css.Style, cw float64) float64 {
	val, ok := style.Get("fontSize")
	if !ok {
		val = defaultFontSize
	}
	return float64(p.units.ToPx(val, cw, p.rects))
}

func isBold(style *css.Style) bool {
	w, _ := style.Get("fontWeight")
	switch w {
	case "bold", "bolder", "600", "700", "800", "900":
		return true
	}
	return false
}

// layoutView resolves the view's box and writes it back to v.Rect and to
// the shared rect cache. Horizontal properties take % against the palette
// width and vertical ones against its height.
func (p *Pen) layoutView(v *view.View, style *css.Style, cw, ch float64) view.Rect {
	pad := p.padding(style, cw)
	width, hasW := p.length(style, "width", cw)
	height, hasH := p.length(style, "height", ch)
	minWidth, hasMin := p.length(style, "minWidth", cw)

	switch v.Kind() {
	case view.KindText:
		if !hasW {
			tw, _ := p.fonts.MeasureText(v.Text, p.fontSize(style, cw), isBold(style))
			width = tw + pad.Left + pad.Right
		}
		if !hasH {
			height = p.fontSize(style, cw)*lineHeightFactor + pad.Top + pad.Bottom
		}
	case view.KindImage:
		nw, nh := float64(v.NaturalWidth), float64(v.NaturalHeight)
		switch {
		case hasW && hasH:
		case hasW && nw > 0:
			height = width * nh / nw
		case hasH && nh > 0:
			width = height * nw / nh
		case !hasW && !hasH && nw > 0:
			width = nw * p.units.PxScale()
			height = nh * p.units.PxScale()
		case hasW:
			height = width
		case hasH:
			width = height
		}
	case view.KindQRCode:
		if hasW && !hasH {
			height = width
		} else if hasH && !hasW {
			width = height
		}
	}
	if hasMin && width < minWidth {
		width = minWidth
	}

	x := 0.0
	if left, ok := p.length(style, "left", cw); ok {
		x = left
	} else if right, ok := p.length(style, "right", cw); ok {
		x = cw - right - width
	}
	y := 0.0
	if top, ok := p.length(style, "top", ch); ok {
		y = top
	} else if bottom, ok := p.length(style, "bottom", ch); ok {
		y = ch - bottom - height
	}

	left := x
	// right-anchored boxes already account for their width
	if style.Has("left") || !style.Has("right") {
		switch align, _ := style.Get("align"); align {
		case "center":
			left = x - width/2
		case "right":
			left = x - width
		}
	}

	rect := view.Rect{
		Left:   left,
		Top:    y,
		Right:  left + width,
		Bottom: y + height,
		X:      x,
		Y:      y,
	}
	if hasMin {
		rect.MinWidth = minWidth
	}
	v.Rect = &rect
	p.rects.Put(v.ID, rect)
	return rect
}

func parseDegrees(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "deg"), 64)
}
