// Package compositor splits a palette into layered surfaces around the
// current selection so that interactive edits only repaint the selection.
package compositor

import (
	"context"
	"image"
	"image/draw"
	"sync"

	"github.com/fogleman/gg"

	"painter/pkg/render"
	"painter/pkg/view"
)

// Surface names one of the raster layers.
type Surface int

const (
	// Bottom holds the views below the selection and the palette background.
	Bottom Surface = iota
	// Front holds the selection.
	Front
	// Top holds the views above the selection.
	Top
	// Overlay holds the selection box and its handles, above every view.
	Overlay
	// Export is the offscreen full-tree surface, never presented.
	Export
	numSurfaces
)

func (s Surface) String() string {
	switch s {
	case Bottom:
		return "bottom"
	case Front:
		return "front"
	case Top:
		return "top"
	case Overlay:
		return "overlay"
	case Export:
		return "export"
	}
	return "unknown"
}

// Presenter flushes a finished surface to the screen.
type Presenter interface {
	Present(s Surface, img image.Image)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(s Surface, img image.Image)

func (f PresenterFunc) Present(s Surface, img image.Image) { f(s, img) }

// Compositor owns the layered surfaces of one editing session.
//
// Every surface carries a generation. A repaint that finishes after a newer
// repaint, Clear or Reset on the same surface started is dropped instead of
// being presented.
type Compositor struct {
	pen       *render.Pen
	presenter Presenter

	mu     sync.Mutex
	gen    [numSurfaces]uint64
	frames [numSurfaces]image.Image
}

func New(pen *render.Pen, presenter Presenter) *Compositor {
	if presenter == nil {
		presenter = PresenterFunc(func(Surface, image.Image) {})
	}
	return &Compositor{pen: pen, presenter: presenter}
}

// Pen returns the pen used for the presented surfaces.
func (c *Compositor) Pen() *render.Pen { return c.pen }

func (c *Compositor) begin(s Surface) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen[s]++
	return c.gen[s]
}

// commit stores and presents img if gen is still current.
func (c *Compositor) commit(s Surface, gen uint64, img image.Image) bool {
	c.mu.Lock()
	if c.gen[s] != gen {
		c.mu.Unlock()
		return false
	}
	c.frames[s] = img
	c.mu.Unlock()
	if s != Export {
		c.presenter.Present(s, img)
	}
	return true
}

// Repaint paints palette onto a fresh surface and presents it. It reports
// false when the result was discarded as stale.
func (c *Compositor) Repaint(ctx context.Context, s Surface, palette *view.Palette) (bool, error) {
	gen := c.begin(s)
	w, h, err := palette.Size(c.pen.Units())
	if err != nil {
		return false, err
	}
	dc := gg.NewContext(w, h)
	if err := c.pen.Paint(ctx, dc, palette); err != nil {
		return false, err
	}
	return c.commit(s, gen, dc.Image()), nil
}

// Clear presents an empty surface of the given size.
func (c *Compositor) Clear(s Surface, w, h int) {
	gen := c.begin(s)
	c.commit(s, gen, image.NewRGBA(image.Rect(0, 0, w, h)))
}

// Reset invalidates every surface so paints started for a previous palette
// are never presented.
func (c *Compositor) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.gen {
		c.gen[i]++
		c.frames[i] = nil
	}
}

// Frame returns the last presented image of a surface, or nil.
func (c *Compositor) Frame(s Surface) image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames[s]
}

// Presented lists the on-screen surfaces from bottom to top.
var Presented = [...]Surface{Bottom, Front, Top, Overlay}

// Flatten stacks the presented surfaces into one image the way the host
// stacks them on screen.
func (c *Compositor) Flatten() image.Image {
	c.mu.Lock()
	frames := c.frames
	c.mu.Unlock()

	var bounds image.Rectangle
	for _, s := range Presented {
		if f := frames[s]; f != nil {
			bounds = bounds.Union(f.Bounds())
		}
	}
	out := image.NewRGBA(bounds)
	for _, s := range Presented {
		if f := frames[s]; f != nil {
			draw.Draw(out, f.Bounds(), f, f.Bounds().Min, draw.Over)
		}
	}
	return out
}
