package visualtest

import (
	"context"
	"fmt"
	"image"

	"github.com/fogleman/gg"

	"painter/pkg/render"
	"painter/pkg/view"
)

// RenderPalette paints a deep copy of palette with pen onto a fresh surface
// sized from the palette.
func RenderPalette(ctx context.Context, pen *render.Pen, palette *view.Palette) (image.Image, error) {
	p := palette.Clone()
	w, h, err := p.Size(pen.Units())
	if err != nil {
		return nil, err
	}
	dc := gg.NewContext(w, h)
	if err := pen.Paint(ctx, dc, p); err != nil {
		return nil, fmt.Errorf("paint error: %w", err)
	}
	return dc.Image(), nil
}

// Solid returns a w x h image filled with c.
func Solid(w, h int, c [4]uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		copy(img.Pix[i:i+4], c[:])
	}
	return img
}
