package render

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"painter/pkg/css"
	"painter/pkg/images"
	"painter/pkg/view"
)

func toColor(c css.Color) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(c.A * 255))}
}

func setColor(dc *gg.Context, c css.Color) {
	r, g, b, a := c.RGBA()
	dc.SetRGBA(r, g, b, a)
}

// radius resolves borderRadius, clamped so opposite corners never overlap.
func (p *Pen) radius(style *css.Style, w, h, cw float64) float64 {
	r := p.lengthOr(style, "borderRadius", cw, 0)
	if limit := math.Min(w, h) / 2; r > limit {
		r = limit
	}
	if r < 0 {
		r = 0
	}
	return r
}

// boxPath adds a rectangle to the current path, with corners built from
// arc segments when r > 0.
func boxPath(dc *gg.Context, x, y, w, h, r float64) {
	if r > 0 {
		dc.DrawRoundedRectangle(x, y, w, h, r)
		return
	}
	dc.DrawRectangle(x, y, w, h)
}

// fillBox paints value (a color or a linear-gradient) over the box.
func fillBox(dc *gg.Context, value string, x, y, w, h, r float64) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	if grad, ok := css.ParseLinearGradient(value); ok {
		x0, y0, x1, y1 := grad.Line(w, h)
		g := gg.NewLinearGradient(x+x0, y+y0, x+x1, y+y1)
		for _, stop := range grad.Resolve(w, h) {
			g.AddColorStop(stop.Offset, toColor(stop.Color))
		}
		dc.SetFillStyle(g)
		boxPath(dc, x, y, w, h, r)
		dc.Fill()
		return true
	}
	c, ok := css.ParseColor(value)
	if !ok || c.A == 0 {
		return false
	}
	setColor(dc, c)
	boxPath(dc, x, y, w, h, r)
	dc.Fill()
	return true
}

// drawFill paints the view background. Rect views are filled with their
// color when no background is given.
func (p *Pen) drawFill(dc *gg.Context, v *view.View, style *css.Style, rect view.Rect, cw float64) {
	value, ok := style.Get("background")
	if !ok && v.Kind() == view.KindRect {
		value, ok = style.Get("color")
	}
	if !ok {
		return
	}
	w, h := rect.Width(), rect.Height()
	fillBox(dc, value, rect.Left, rect.Top, w, h, p.radius(style, w, h, cw))
}

// drawBorder strokes the border inside the box edge.
func (p *Pen) drawBorder(dc *gg.Context, style *css.Style, rect view.Rect, cw float64) {
	bw := p.lengthOr(style, "borderWidth", cw, 0)
	if bw <= 0 {
		return
	}
	c := css.Color{A: 1}
	if s, ok := style.Get("borderColor"); ok {
		if parsed, ok := css.ParseColor(s); ok {
			c = parsed
		}
	}
	if c.A == 0 {
		return
	}
	w, h := rect.Width(), rect.Height()
	r := p.radius(style, w, h, cw)
	setColor(dc, c)
	dc.SetLineWidth(bw)
	switch bs, _ := style.Get("borderStyle"); bs {
	case "dashed":
		dc.SetDash(bw*2, bw)
	case "dotted":
		dc.SetDash(bw, bw)
	}
	inner := math.Max(r-bw/2, 0)
	boxPath(dc, rect.Left+bw/2, rect.Top+bw/2, w-bw, h-bw, inner)
	dc.Stroke()
	dc.SetDash()
}

func (p *Pen) drawText(dc *gg.Context, v *view.View, style *css.Style, rect view.Rect, cw float64) error {
	if v.Text == "" {
		return nil
	}
	fontSize := p.fontSize(style, cw)
	pad := p.padding(style, cw)
	unlock, err := p.fonts.Use(dc, fontSize, isBold(style))
	if err != nil {
		return err
	}
	defer unlock()

	c := css.Color{A: 1}
	if s, ok := style.Get("color"); ok {
		if parsed, ok := css.ParseColor(s); ok {
			c = parsed
		}
	}
	setColor(dc, c)

	contentLeft := rect.Left + pad.Left
	contentWidth := rect.Width() - pad.Left - pad.Right
	textWidth, _ := dc.MeasureString(v.Text)
	textX := contentLeft
	switch align, _ := style.Get("textAlign"); align {
	case "center":
		textX = contentLeft + (contentWidth-textWidth)/2
	case "right":
		textX = contentLeft + contentWidth - textWidth
	}
	// baseline one font size below the content top
	textY := rect.Top + pad.Top + fontSize
	dc.DrawString(v.Text, textX, textY)

	lineThickness := math.Max(fontSize/12.0, 1)
	var lineY float64
	switch deco, _ := style.Get("textDecoration"); deco {
	case "underline":
		lineY = textY + fontSize*0.1
	case "overline":
		lineY = rect.Top + pad.Top
	case "line-through":
		lineY = textY - fontSize*0.3
	default:
		return nil
	}
	dc.SetLineWidth(lineThickness)
	dc.DrawLine(textX, lineY, textX+textWidth, lineY)
	dc.Stroke()
	return nil
}

func (p *Pen) drawImage(dc *gg.Context, v *view.View, style *css.Style, rect view.Rect, cw float64) error {
	entry, ok := p.cache.Lookup(v.URL)
	if !ok || entry.Empty() {
		// placeholder: nothing to draw
		return nil
	}
	w, h := int(math.Round(rect.Width())), int(math.Round(rect.Height()))
	if w <= 0 || h <= 0 {
		return nil
	}
	mode, _ := style.Get("mode")
	img := fitImage(entry, w, h, mode, p.radius(style, rect.Width(), rect.Height(), cw))
	dc.DrawImage(img, int(math.Round(rect.Left)), int(math.Round(rect.Top)))
	return nil
}

// fitImage scales the entry bitmap to w x h. aspectFill crops the source
// around its center to the target aspect first; any other mode stretches.
func fitImage(entry images.Entry, w, h int, mode string, radius float64) image.Image {
	src := entry.Image
	sb := src.Bounds()
	crop := sb
	if mode == "aspectFill" && sb.Dx() > 0 && sb.Dy() > 0 {
		crop = aspectFillCrop(sb, w, h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, xdraw.Over, nil)
	if radius <= 0 {
		return dst
	}
	clip := gg.NewContext(w, h)
	clip.DrawRoundedRectangle(0, 0, float64(w), float64(h), radius)
	clip.Clip()
	clip.DrawImage(dst, 0, 0)
	return clip.Image()
}

func aspectFillCrop(sb image.Rectangle, w, h int) image.Rectangle {
	sw, sh := float64(sb.Dx()), float64(sb.Dy())
	target := float64(w) / float64(h)
	if sw/sh > target {
		cropW := int(math.Round(sh * target))
		x0 := sb.Min.X + (sb.Dx()-cropW)/2
		return image.Rect(x0, sb.Min.Y, x0+cropW, sb.Max.Y)
	}
	cropH := int(math.Round(sw / target))
	y0 := sb.Min.Y + (sb.Dy()-cropH)/2
	return image.Rect(sb.Min.X, y0, sb.Max.X, y0+cropH)
}

// drawPaletteBackground fills the whole canvas, rounding its corners by the
// palette borderRadius.
func (p *Pen) drawPaletteBackground(dc *gg.Context, palette *view.Palette, cw, ch float64, entries map[string]images.Entry) {
	r := 0.0
	if palette.BorderRadius != "" {
		r = math.Min(float64(p.units.ToPx(palette.BorderRadius, cw, p.rects)), math.Min(cw, ch)/2)
	}
	if !isImageBackground(palette.Background) {
		fillBox(dc, palette.Background, 0, 0, cw, ch, r)
		return
	}
	entry := entries[palette.Background]
	if entry.Empty() {
		return
	}
	dc.DrawImage(fitImage(entry, int(cw), int(ch), "", r), 0, 0)
}
