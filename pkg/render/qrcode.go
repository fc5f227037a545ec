package render

import (
	"fmt"

	"github.com/fogleman/gg"
	qrcode "github.com/skip2/go-qrcode"

	"painter/pkg/css"
	"painter/pkg/view"
)

// drawQRCode renders the view content as a QR matrix filling the box. The
// box background has already been painted by drawFill.
func (p *Pen) drawQRCode(dc *gg.Context, v *view.View, style *css.Style, rect view.Rect) error {
	if v.Content == "" {
		return nil
	}
	q, err := qrcode.New(v.Content, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("encoding qrcode: %w", err)
	}
	q.DisableBorder = true
	bitmap := q.Bitmap()
	n := len(bitmap)
	if n == 0 {
		return nil
	}
	c := css.Color{A: 1}
	if s, ok := style.Get("color"); ok {
		if parsed, ok := css.ParseColor(s); ok {
			c = parsed
		}
	}
	setColor(dc, c)
	cellW := rect.Width() / float64(n)
	cellH := rect.Height() / float64(n)
	for y, row := range bitmap {
		for x, dark := range row {
			if dark {
				dc.DrawRectangle(rect.Left+float64(x)*cellW, rect.Top+float64(y)*cellH, cellW, cellH)
			}
		}
	}
	dc.Fill()
	return nil
}
