package editor

import (
	"time"

	"painter/pkg/compositor"
	"painter/pkg/export"
	"painter/pkg/images"
	"painter/pkg/render"
	"painter/pkg/text"
	"painter/pkg/view"
)

// Options configures an Engine.
type Options struct {
	// ScreenWidth is the host screen width in device pixels.
	ScreenWidth float64
	// ScaleRatio is the scale of the interactive surfaces. Zero means 1.
	ScaleRatio float64
	// WidthPixels fixes the exported image width.
	WidthPixels int
	// PixelRatio supersamples the export surface.
	PixelRatio float64
	// Retention is the cache policy for images this engine acquires.
	Retention images.Policy
	// Dirty skips exporting a palette equal to the previous export.
	Dirty bool
	// ActionStyle customises the selection overlay.
	ActionStyle *render.ActionStyle
	// MaxPaintAttempts bounds the export verification loop.
	MaxPaintAttempts int
	// Now is the gesture clock. Nil means time.Now.
	Now func() time.Time
}

// DefaultOptions returns the options for a 375px wide screen.
func DefaultOptions() Options {
	return Options{
		ScreenWidth:      375,
		ScaleRatio:       1,
		Retention:        images.Bounded,
		MaxPaintAttempts: export.DefaultMaxAttempts,
	}
}

// TouchType qualifies a touch-end report.
type TouchType string

const (
	// TouchMoved reports the end of a drag or scale of the selection.
	TouchMoved TouchType = ""
	// TouchDelete asks the host to delete View.
	TouchDelete TouchType = "delete"
)

// TouchEnd is reported when a gesture ends. A tap on the background is
// reported with a nil View.
type TouchEnd struct {
	View  *view.View
	Index int
	Type  TouchType
}

// Callbacks are fire-and-forget notifications to the host. Each is called
// without the engine lock held, so a callback may call back into the
// engine. Any of them may be nil.
type Callbacks struct {
	// OnPaintComplete fires when the first full paint of a loaded palette
	// has been presented.
	OnPaintComplete func()
	// OnViewUpdate fires after the selection was redrawn.
	OnViewUpdate func(v *view.View)
	// OnViewClicked fires when a tap selects a view.
	OnViewClicked func(v *view.View)
	OnTouchEnd    func(e TouchEnd)
	OnExportOK    func(path string)
	OnExportError func(err error)
}

// Host bundles the collaborators an Engine draws and exports through.
type Host struct {
	Presenter  compositor.Presenter
	Rasterizer export.Rasterizer
	// Cache is shared between engines; nil means images.Shared().
	Cache *images.Cache
	Fonts *text.Fonts
	Callbacks
}
