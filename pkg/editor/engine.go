// Package editor is the interactive painter: it owns the editing session
// of one palette, routes gestures to selection, drag and scale, and keeps
// the layered surfaces current.
package editor

import (
	"context"
	"errors"
	"log"
	"strconv"
	"sync"

	"painter/pkg/compositor"
	"painter/pkg/css"
	"painter/pkg/export"
	"painter/pkg/gesture"
	"painter/pkg/images"
	"painter/pkg/render"
	"painter/pkg/text"
	"painter/pkg/units"
	"painter/pkg/view"
	stdnet "painter/std/net"
)

// session is the mutable editing state of the loaded palette.
type session struct {
	palette  *view.Palette
	selected *view.View
	index    int
	prev     int
	overlay  *render.Overlay
	gesture  *gesture.Machine

	loading      bool
	disabled     bool
	hostDisabled bool
}

// Engine edits one palette at a time. Its methods are safe to call from
// any goroutine; gesture events are expected to arrive serially.
type Engine struct {
	opts     Options
	host     Host
	units    units.Context
	cache    *images.Cache
	surfaces *compositor.Compositor
	exporter *export.Exporter

	mu      sync.Mutex
	s       session
	epoch   uint64
	ctx     context.Context
	cancel  context.CancelFunc
	pending []func()
}

func New(opts Options, host Host) *Engine {
	if opts.ScreenWidth <= 0 {
		opts.ScreenWidth = DefaultOptions().ScreenWidth
	}
	if host.Cache == nil {
		host.Cache = images.Shared()
	}
	if host.Fonts == nil {
		host.Fonts = text.NewFonts(text.DefaultFontConfig())
	}
	u := units.NewContext(opts.ScreenWidth, opts.ScaleRatio)
	pen := render.NewPen(render.Config{
		Units:  u,
		Cache:  host.Cache,
		Policy: opts.Retention,
		Fonts:  host.Fonts,
	})
	ex := export.New(export.Options{
		ScreenWidth: opts.ScreenWidth,
		ScaleRatio:  opts.ScaleRatio,
		WidthPixels: opts.WidthPixels,
		PixelRatio:  opts.PixelRatio,
		MaxAttempts: opts.MaxPaintAttempts,
		Dirty:       opts.Dirty,
		Policy:      opts.Retention,
	}, host.Cache, host.Fonts, host.Rasterizer)

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		opts:     opts,
		host:     host,
		units:    u,
		cache:    host.Cache,
		surfaces: compositor.New(pen, host.Presenter),
		exporter: ex,
		s:        session{index: -1, prev: -1, gesture: gesture.NewMachine(opts.Now)},
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Surfaces exposes the layered surfaces, mostly for hosts that poll frames.
func (e *Engine) Surfaces() *compositor.Compositor { return e.surfaces }

// Exporter returns the export loop used by Export and Render.
func (e *Engine) Exporter() *export.Exporter { return e.exporter }

// notify queues a callback to run after the lock is released.
func (e *Engine) notify(f func()) {
	e.pending = append(e.pending, f)
}

func (e *Engine) unlock() {
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()
	for _, f := range pending {
		f()
	}
}

// Load replaces the edited palette. The previous session, its selection
// and any paint or image swap still in flight for it are discarded.
// Gestures are ignored until the first paint completes.
func (e *Engine) Load(ctx context.Context, palette *view.Palette) error {
	e.mu.Lock()
	e.cancel()
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.epoch++
	epoch := e.epoch
	e.surfaces.Reset()
	e.surfaces.Pen().Rects().Forget()
	snapshot := palette.Clone()
	e.s = session{
		palette:      snapshot,
		index:        -1,
		prev:         -1,
		gesture:      gesture.NewMachine(e.opts.Now),
		loading:      true,
		disabled:     true,
		hostDisabled: e.s.hostDisabled,
	}
	work := snapshot.Clone()
	e.unlock()

	// a new palette gets a fresh attempt at images that failed before
	e.cache.Retry(render.ImageURLs(work)...)

	w, h, err := work.Size(e.units)
	if err != nil {
		log.Printf("painter: %v", err)
		return err
	}
	e.surfaces.Clear(compositor.Front, w, h)
	e.surfaces.Clear(compositor.Top, w, h)
	e.surfaces.Clear(compositor.Overlay, w, h)
	if _, err := e.surfaces.Repaint(ctx, compositor.Bottom, work); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.unlock()
	if e.epoch != epoch {
		return nil
	}
	// adopt what the paint resolved: rects and image metadata
	for i, v := range work.Views {
		dst := e.s.palette.Views[i]
		dst.Rect = v.Rect
		dst.Path = v.Path
		dst.OriginURL = v.OriginURL
		dst.NaturalWidth = v.NaturalWidth
		dst.NaturalHeight = v.NaturalHeight
	}
	e.s.loading = false
	e.s.disabled = e.s.hostDisabled
	if cb := e.host.OnPaintComplete; cb != nil {
		e.notify(cb)
	}
	return nil
}

// SetDisabled gates gesture handling. While a palette is loading gestures
// stay disabled and the flag applies once the first paint completes.
func (e *Engine) SetDisabled(disabled bool) {
	e.mu.Lock()
	defer e.unlock()
	e.s.hostDisabled = disabled
	if !e.s.loading {
		e.s.disabled = disabled
	}
}

// Palette returns a deep copy of the edited palette.
func (e *Engine) Palette() *view.Palette {
	e.mu.Lock()
	defer e.unlock()
	return e.s.palette.Clone()
}

// Selected returns a copy of the selected view and its index, or nil, -1.
func (e *Engine) Selected() (*view.View, int) {
	e.mu.Lock()
	defer e.unlock()
	if e.s.selected == nil {
		return nil, -1
	}
	return e.s.selected.Clone(), e.s.index
}

// ClearSelection drops the selection and its overlay. The selected view
// stays where it is drawn.
func (e *Engine) ClearSelection() {
	e.mu.Lock()
	defer e.unlock()
	if e.s.palette == nil {
		return
	}
	last := e.s.selected
	e.s.selected = nil
	e.s.overlay = nil
	e.s.prev = e.s.index
	e.s.index = -1
	e.dropOverlayLocked(last)
}

// dropOverlayLocked keeps the last selection drawn on front and clears the
// overlay surface.
func (e *Engine) dropOverlayLocked(last *view.View) {
	_, front, _ := compositor.Slice(e.s.palette, -1)
	if last != nil {
		front.Views = []*view.View{last}
	}
	if _, err := e.surfaces.Repaint(e.ctx, compositor.Front, front); err != nil {
		log.Printf("painter: repainting front: %v", err)
		return
	}
	w, h, err := e.s.palette.Size(e.units)
	if err != nil {
		return
	}
	e.surfaces.Clear(compositor.Overlay, w, h)
}

// Press starts a gesture at (x, y) on the front surface.
func (e *Engine) Press(x, y float64) {
	e.mu.Lock()
	defer e.unlock()
	if e.s.disabled || e.s.palette == nil {
		return
	}
	onScale := false
	var w, h float64
	if sel := e.s.selected; sel != nil && sel.Rect != nil && e.s.overlay.InScale(x, y) {
		onScale = true
		w, h = sel.Rect.Width(), sel.Rect.Height()
	}
	e.s.gesture.Press(x, y, onScale, w, h)
}

// Move continues a gesture, dragging or scaling the selection.
func (e *Engine) Move(x, y float64) {
	e.mu.Lock()
	defer e.unlock()
	if e.s.disabled || e.s.palette == nil {
		return
	}
	step := e.s.gesture.Move(x, y)
	sel := e.s.selected
	if !sel.Selectable() || sel.Rect == nil {
		return
	}
	var patch *css.Style
	switch step.Kind {
	case gesture.Scale:
		e.surfaces.Pen().Rects().Forget(sel.ID)
		w, h, hasHeight := gesture.ScaleSize(sel.Kind(), step.StartW, step.StartH, step.DX, step.DY)
		if minWidth, ok := sel.CSS.Get("minWidth"); ok && minWidth != "" {
			cw, _, _ := e.s.palette.Size(e.units)
			if w < float64(e.units.ToPx(minWidth, float64(cw), e.surfaces.Pen().Rects())) {
				return
			}
		}
		if sel.Rect.MinWidth > 0 && w < sel.Rect.MinWidth {
			return
		}
		patch = css.StyleOf("width", e.px(w))
		if hasHeight {
			patch.Set("height", e.px(h))
		}
	case gesture.Drag:
		patch = css.StyleOf(
			"left", e.px(sel.Rect.X+step.DX),
			"top", e.px(sel.Rect.Y+step.DY),
			"right", "",
			"bottom", "",
		)
	default:
		return
	}
	e.applyLocked(&view.View{CSS: css.Single(patch)}, false)
}

// px formats a device pixel value so that it resolves back to itself
// under the interactive scale.
func (e *Engine) px(v float64) string {
	return strconv.FormatFloat(v/e.units.PxScale(), 'f', -1, 64) + "px"
}

// Release ends a gesture. A short press without movement is a tap and
// runs hit testing; anything else reports the drag or scale result.
func (e *Engine) Release() {
	e.mu.Lock()
	defer e.unlock()
	if e.s.disabled || e.s.palette == nil {
		return
	}
	switch e.s.gesture.Release() {
	case gesture.Tap:
		e.tapLocked(e.s.gesture.Point())
	case gesture.Finished:
		if sel := e.s.selected; sel != nil {
			end := TouchEnd{View: sel.Clone(), Index: e.s.index, Type: TouchMoved}
			e.notifyTouchEnd(end)
		}
	}
}

func (e *Engine) notifyTouchEnd(end TouchEnd) {
	if cb := e.host.OnTouchEnd; cb != nil {
		e.notify(func() { cb(end) })
	}
}

// tapLocked hit-tests (x, y) from the topmost view down. A tap on the
// selection's delete handle wins over every view body. Repeated taps on
// overlapping selectable views cycle downward through them.
func (e *Engine) tapLocked(x, y float64) {
	views := e.s.palette.Views
	last := e.s.selected
	var hits []int
	deleteIdx := -1
	for i := len(views) - 1; i >= 0; i-- {
		v := views[i]
		if last.Selectable() && last.ID == v.ID && e.s.overlay.InDelete(x, y) {
			hits = nil
			deleteIdx = i
			break
		}
		if v.Rect != nil && v.Rect.Contains(x, y) {
			hits = append(hits, i)
		}
	}

	e.s.selected = nil
	var candidates []int
	for _, i := range hits {
		if views[i].Selectable() {
			candidates = append(candidates, i)
		}
	}
	switch {
	case len(hits) == 0:
		e.s.index = -1
	case len(candidates) == 0:
		e.s.index = hits[0]
	default:
		i := 0
		for ; i < len(candidates); i++ {
			if e.s.index == candidates[i] {
				i++
				break
			}
		}
		if i == len(candidates) {
			i = 0
		}
		e.s.index = candidates[i]
		e.s.selected = views[e.s.index]
		if cb := e.host.OnViewClicked; cb != nil {
			clicked := e.s.selected.Clone()
			e.notify(func() { cb(clicked) })
		}
	}

	if e.s.selected == nil {
		e.s.overlay = nil
		e.dropOverlayLocked(last)
		if deleteIdx >= 0 {
			e.notifyTouchEnd(TouchEnd{View: views[deleteIdx].Clone(), Index: deleteIdx, Type: TouchDelete})
		} else if e.s.index < 0 {
			e.notifyTouchEnd(TouchEnd{Index: -1})
		}
		e.s.index = -1
		e.s.prev = -1
		return
	}
	e.sliceLocked()
}

// sliceLocked repaints the three view surfaces around the selection in the
// order that keeps the selection between its neighbours, then the overlay.
func (e *Engine) sliceLocked() {
	bottom, _, top := compositor.Slice(e.s.palette, e.s.index)
	for _, s := range compositor.Order(e.s.prev, e.s.index) {
		var err error
		switch s {
		case compositor.Bottom:
			_, err = e.surfaces.Repaint(e.ctx, compositor.Bottom, bottom)
		case compositor.Top:
			_, err = e.surfaces.Repaint(e.ctx, compositor.Top, top)
		case compositor.Front:
			e.frontLocked()
		}
		if err != nil {
			log.Printf("painter: repainting %s: %v", s, err)
		}
	}
	e.s.prev = e.s.index
	e.overlayLocked()
}

// redrawLocked repaints the selection on front and its overlay above it.
func (e *Engine) redrawLocked() {
	if e.frontLocked() {
		e.overlayLocked()
	}
}

// frontLocked repaints the selection alone on front, resolving its rect.
func (e *Engine) frontLocked() bool {
	if e.s.selected == nil {
		return false
	}
	_, front, _ := compositor.Slice(e.s.palette, e.s.index)
	if _, err := e.surfaces.Repaint(e.ctx, compositor.Front, front); err != nil {
		log.Printf("painter: repainting front: %v", err)
		return false
	}
	return true
}

// overlayLocked rebuilds the selection box and handles from the selection's
// rect and paints them on the overlay surface, above every view.
func (e *Engine) overlayLocked() {
	sel := e.s.selected
	if sel == nil {
		return
	}
	e.s.overlay = render.NewOverlay(e.units, sel, e.opts.ActionStyle)
	layer := &view.Palette{
		Width:  e.s.palette.Width,
		Height: e.s.palette.Height,
		Views:  e.s.overlay.Views(),
	}
	if _, err := e.surfaces.Repaint(e.ctx, compositor.Overlay, layer); err != nil {
		log.Printf("painter: repainting overlay: %v", err)
		return
	}
	if cb := e.host.OnViewUpdate; cb != nil {
		updated := sel.Clone()
		e.notify(func() { cb(updated) })
	}
}

// DoAction applies delta to the selection, or, when delta carries an id of
// another view, selects that view first. Style layers are merged over the
// current style unless overwrite is set. Text and content change only when
// both the old and new values are non-empty. A new image URL is acquired in
// the background; the old bitmap stays visible until it resolves.
func (e *Engine) DoAction(delta *view.View, overwrite bool) {
	e.mu.Lock()
	defer e.unlock()
	if e.s.palette == nil {
		return
	}
	if delta != nil && delta.ID != "" && (e.s.selected == nil || e.s.selected.ID != delta.ID) {
		if i := e.s.palette.Index(delta.ID); i >= 0 {
			e.s.selected = e.s.palette.Views[i]
			e.s.index = i
			e.sliceLocked()
		}
	}
	e.applyLocked(delta, overwrite)
}

func (e *Engine) applyLocked(delta *view.View, overwrite bool) {
	v := e.s.selected
	if v == nil || delta == nil {
		return
	}
	if delta.CSS != nil {
		if overwrite {
			v.CSS = delta.CSS.Clone()
		} else {
			v.CSS = v.CSS.Merge(delta.CSS)
		}
	}
	if delta.Rect != nil {
		r := *delta.Rect
		v.Rect = &r
	}
	if delta.Text != "" && v.Text != "" && delta.Text != v.Text {
		v.Text = delta.Text
	}
	if delta.Content != "" && v.Content != "" && delta.Content != v.Content {
		v.Content = delta.Content
	}
	if delta.URL != "" && v.URL != "" && delta.URL != v.URL && delta.URL != v.OriginURL {
		go e.swapImage(e.ctx, e.epoch, v, delta.URL)
	}
	e.redrawLocked()
}

// swapImage acquires url and then points v at it, redrawing whatever
// surface v is on. It gives up if the palette was replaced meanwhile.
func (e *Engine) swapImage(ctx context.Context, epoch uint64, v *view.View, url string) {
	e.cache.Retry(url)
	entry := e.cache.Acquire(ctx, url, e.opts.Retention)

	e.mu.Lock()
	defer e.unlock()
	if e.epoch != epoch || ctx.Err() != nil {
		return
	}
	if entry.Empty() {
		log.Printf("painter: keeping the previous image of %s, %s did not load", v, url)
		if v == e.s.selected {
			e.redrawLocked()
		}
		return
	}
	v.URL = url
	v.Path = entry.Path
	v.NaturalWidth = entry.Width
	v.NaturalHeight = entry.Height
	if stdnet.IsSecureURL(url) {
		v.OriginURL = url
	}
	if v == e.s.selected {
		e.redrawLocked()
		return
	}
	e.repaintAllLocked()
}

// repaintAllLocked repaints every presented surface for the current
// selection state.
func (e *Engine) repaintAllLocked() {
	if e.s.selected != nil {
		e.s.prev = e.s.index
		e.sliceLocked()
		return
	}
	all, _, _ := compositor.Slice(e.s.palette, -1)
	if _, err := e.surfaces.Repaint(e.ctx, compositor.Bottom, all); err != nil {
		log.Printf("painter: repainting bottom: %v", err)
	}
	w, h, err := e.s.palette.Size(e.units)
	if err != nil {
		return
	}
	e.surfaces.Clear(compositor.Front, w, h)
	e.surfaces.Clear(compositor.Top, w, h)
	e.surfaces.Clear(compositor.Overlay, w, h)
}

// Export rasterizes the edited palette through the export loop.
func (e *Engine) Export(ctx context.Context) (string, error) {
	return e.Render(ctx, e.Palette())
}

// Render exports palette without touching the edited session. The result
// is also reported through OnExportOK or OnExportError.
func (e *Engine) Render(ctx context.Context, palette *view.Palette) (string, error) {
	path, err := e.exporter.Export(ctx, palette)
	switch {
	case errors.Is(err, export.ErrUnchanged):
		return "", err
	case err != nil:
		log.Printf("painter: export failed: %v", err)
		if cb := e.host.OnExportError; cb != nil {
			cb(err)
		}
		return "", err
	}
	if cb := e.host.OnExportOK; cb != nil {
		cb(path)
	}
	return path, nil
}

// Close cancels any background image swap.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.unlock()
	e.cancel()
}
