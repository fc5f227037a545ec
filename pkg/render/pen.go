// Package render lays out palette views and paints them onto gg surfaces.
package render

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/sync/errgroup"

	"painter/pkg/css"
	"painter/pkg/images"
	"painter/pkg/text"
	"painter/pkg/units"
	"painter/pkg/view"
	stdnet "painter/std/net"
)

// Config wires a Pen to its collaborators.
type Config struct {
	Units  units.Context
	Cache  *images.Cache
	Policy images.Policy
	Fonts  *text.Fonts
	// Rects receives every resolved box with an id, for calc() references.
	Rects *view.RectCache
}

// Pen lays out views and issues draw calls for them. A Pen is bound to one
// scale context; the export pass uses its own Pen.
type Pen struct {
	units  units.Context
	cache  *images.Cache
	policy images.Policy
	fonts  *text.Fonts
	rects  *view.RectCache
}

func NewPen(cfg Config) *Pen {
	if cfg.Cache == nil {
		cfg.Cache = images.Shared()
	}
	if cfg.Fonts == nil {
		cfg.Fonts = text.NewFonts(text.DefaultFontConfig())
	}
	if cfg.Rects == nil {
		cfg.Rects = view.NewRectCache()
	}
	return &Pen{
		units:  cfg.Units,
		cache:  cfg.Cache,
		policy: cfg.Policy,
		fonts:  cfg.Fonts,
		rects:  cfg.Rects,
	}
}

// Units returns the scale context the pen resolves with.
func (p *Pen) Units() units.Context { return p.units }

// Rects returns the shared resolved-box cache.
func (p *Pen) Rects() *view.RectCache { return p.rects }

// Cache returns the image cache.
func (p *Pen) Cache() *images.Cache { return p.cache }

// Paint lays out and draws the palette's views onto dc in sequence order.
// It returns only after every draw, including those waiting on images, has
// settled. A view that fails to draw is logged and skipped; only a palette
// without a usable size or a cancelled ctx is reported as an error.
//
// Paint writes resolved rects and image metadata back into the palette's
// views, so callers hand it a snapshot.
func (p *Pen) Paint(ctx context.Context, dc *gg.Context, palette *view.Palette) error {
	w, h, err := palette.Size(p.units)
	if err != nil {
		return err
	}
	cw, ch := float64(w), float64(h)

	entries, release, err := p.acquire(ctx, palette)
	if err != nil {
		return err
	}
	defer release()

	if palette.Background != "" {
		p.drawPaletteBackground(dc, palette, cw, ch, entries)
	}

	for _, v := range palette.Views {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e, ok := entries[v.URL]; ok && v.Kind() == view.KindImage {
			applyEntry(v, e)
		}
		if err := p.paintView(dc, v, cw, ch); err != nil {
			log.Printf("pen: skipping %s: %v", v, err)
		}
	}
	return nil
}

// Layout resolves every view's rect without drawing.
func (p *Pen) Layout(palette *view.Palette) error {
	w, h, err := palette.Size(p.units)
	if err != nil {
		return err
	}
	for _, v := range palette.Views {
		p.layoutView(v, v.Style(), float64(w), float64(h))
	}
	return nil
}

// acquire fans out one acquisition per distinct image URL and waits for all
// of them. The URLs stay pinned in the cache until release is called.
func (p *Pen) acquire(ctx context.Context, palette *view.Palette) (map[string]images.Entry, func(), error) {
	urls := ImageURLs(palette)
	release := p.cache.Pin(urls...)
	entries := make(map[string]images.Entry, len(urls))
	if len(urls) == 0 {
		return entries, release, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, u := range urls {
		u := u
		g.Go(func() error {
			e := p.cache.Acquire(gctx, u, p.policy)
			mu.Lock()
			entries[u] = e
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		release()
		return nil, func() {}, err
	}
	return entries, release, nil
}

// ImageURLs lists the distinct bitmap sources a paint of palette needs: an
// image background and every image view's URL.
func ImageURLs(palette *view.Palette) []string {
	var urls []string
	seen := make(map[string]bool)
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}
	if isImageBackground(palette.Background) {
		add(palette.Background)
	}
	for _, v := range palette.Views {
		if v.Kind() == view.KindImage {
			add(v.URL)
		}
	}
	return urls
}

// applyEntry records the resolved bitmap on the view. A placeholder leaves
// the view as it was.
func applyEntry(v *view.View, e images.Entry) {
	if e.Empty() {
		return
	}
	v.Path = e.Path
	v.NaturalWidth = e.Width
	v.NaturalHeight = e.Height
	if stdnet.IsSecureURL(v.URL) {
		v.OriginURL = v.URL
	}
}

func isImageBackground(bg string) bool {
	if bg == "" || css.IsGradient(bg) {
		return false
	}
	_, isColor := css.ParseColor(bg)
	return !isColor
}

// paintView lays out one view and draws it. Panics from a single view are
// turned into errors so the rest of the batch still paints.
func (p *Pen) paintView(dc *gg.Context, v *view.View, cw, ch float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("draw panicked: %v", r)
		}
	}()
	style := v.Style()
	rect := p.layoutView(v, style, cw, ch)

	dc.Push()
	defer dc.Pop()
	if deg, ok := style.Get("rotate"); ok {
		if d, err := parseDegrees(deg); err == nil && d != 0 {
			dc.RotateAbout(gg.Radians(d), (rect.Left+rect.Right)/2, (rect.Top+rect.Bottom)/2)
		}
	}

	p.drawFill(dc, v, style, rect, cw)
	p.drawBorder(dc, style, rect, cw)

	switch v.Kind() {
	case view.KindRect:
	case view.KindText:
		return p.drawText(dc, v, style, rect, cw)
	case view.KindImage:
		return p.drawImage(dc, v, style, rect, cw)
	case view.KindQRCode:
		return p.drawQRCode(dc, v, style, rect)
	default:
		return fmt.Errorf("unknown view type %q", v.Type)
	}
	return nil
}
