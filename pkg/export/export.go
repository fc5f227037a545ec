// Package export paints a palette to an offscreen surface, rasterizes it
// and verifies the result, repainting until the output is consistent.
package export

import (
	"context"
	"errors"
	"fmt"
	"log"
	"reflect"
	"sync"

	"painter/pkg/compositor"
	"painter/pkg/images"
	"painter/pkg/render"
	"painter/pkg/text"
	"painter/pkg/units"
	"painter/pkg/view"
)

// DefaultMaxAttempts bounds the paint/rasterize/verify cycle.
const DefaultMaxAttempts = 5

// aspectTolerance is the accepted relative aspect mismatch.
const aspectTolerance = 0.01

// ErrUnchanged is returned when dirty checking is on and the palette equals
// the one exported last.
var ErrUnchanged = errors.New("export: palette unchanged")

// VerificationError reports an output whose aspect never matched the
// palette within the attempt budget.
type VerificationError struct {
	Attempts int
	Declared [2]int
	Expected [2]float64
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("export: output %dx%d does not match expected %gx%g after %d attempts",
		e.Declared[0], e.Declared[1], e.Expected[0], e.Expected[1], e.Attempts)
}

// Options configures an Exporter.
type Options struct {
	// ScreenWidth is the host screen width in device pixels.
	ScreenWidth float64
	// ScaleRatio is the scale of the interactive pass. Zero means 1.
	ScaleRatio float64
	// WidthPixels, when set, fixes the output width; the export scale
	// becomes WidthPixels over the interactive canvas width.
	WidthPixels int
	// PixelRatio supersamples the export surface. Zero means 1.
	PixelRatio float64
	// MaxAttempts defaults to DefaultMaxAttempts.
	MaxAttempts int
	// Dirty skips exports of a palette equal to the previous one.
	Dirty bool
	Policy images.Policy
}

// Exporter runs the export and verification loop. One Exporter serves one
// editing session; Export calls are serialized.
type Exporter struct {
	opts   Options
	cache  *images.Cache
	fonts  *text.Fonts
	raster Rasterizer

	mu       sync.Mutex
	last     *view.Palette
	attempts int
}

// New builds an Exporter. Nil cache and fonts fall back to the shared cache
// and the bundled fonts.
func New(opts Options, cache *images.Cache, fonts *text.Fonts, raster Rasterizer) *Exporter {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.PixelRatio <= 0 {
		opts.PixelRatio = 1
	}
	if raster == nil {
		raster = &PNGRasterizer{}
	}
	return &Exporter{opts: opts, cache: cache, fonts: fonts, raster: raster}
}

// Attempts returns how many paint cycles the last export ran.
func (e *Exporter) Attempts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attempts
}

// Verify reports whether a declared output size is aspect-consistent with
// the expected size.
func Verify(declaredW, declaredH, expectedW, expectedH float64) bool {
	if declaredH <= 0 || expectedH <= 0 {
		return false
	}
	diff := (declaredW*expectedH - expectedW*declaredH) / (declaredH * expectedH)
	if diff < 0 {
		diff = -diff
	}
	return diff < aspectTolerance
}

// Plan is the resolved geometry of one export.
type Plan struct {
	Units units.Context
	// Width and Height are the expected output size in pixels.
	Width, Height int
}

// Plan resolves the export scale and the expected output size.
func (e *Exporter) Plan(palette *view.Palette) (Plan, error) {
	interactive := units.NewContext(e.opts.ScreenWidth, e.opts.ScaleRatio)
	w, _, err := palette.Size(interactive)
	if err != nil {
		return Plan{}, err
	}
	ctx := interactive
	if e.opts.WidthPixels > 0 {
		ctx = interactive.WithScale(float64(e.opts.WidthPixels) / float64(w))
	}
	w, h, err := palette.Size(ctx)
	if err != nil {
		return Plan{}, err
	}
	if e.opts.WidthPixels > 0 {
		w = e.opts.WidthPixels
	}
	return Plan{Units: ctx, Width: w, Height: h}, nil
}

// Export paints palette, rasterizes it and verifies the output, returning
// the output file path.
func (e *Exporter) Export(ctx context.Context, palette *view.Palette) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot := palette.Clone()
	if e.opts.Dirty && e.last != nil && reflect.DeepEqual(e.last, snapshot) {
		return "", ErrUnchanged
	}
	plan, err := e.Plan(snapshot)
	if err != nil {
		return "", err
	}
	e.last = snapshot.Clone()
	e.attempts = 0

	// The surface is painted at PixelRatio and downsampled to the plan size.
	pen := render.NewPen(render.Config{
		Units:  plan.Units.WithScale(plan.Units.PxScale() * e.opts.PixelRatio),
		Cache:  e.cache,
		Policy: e.opts.Policy,
		Fonts:  e.fonts,
	})
	surfaces := compositor.New(pen, nil)

	var vErr *VerificationError
	for e.attempts < e.opts.MaxAttempts {
		e.attempts++
		if _, err := surfaces.Repaint(ctx, compositor.Export, snapshot.Clone()); err != nil {
			return "", err
		}
		path, err := e.raster.Rasterize(ctx, surfaces.Frame(compositor.Export), plan.Width, plan.Height)
		if err != nil {
			return "", fmt.Errorf("rasterizing: %w", err)
		}
		dw, dh, err := e.raster.ImageInfo(path)
		if err != nil {
			return "", fmt.Errorf("reading back %s: %w", path, err)
		}
		if Verify(float64(dw), float64(dh), float64(plan.Width), float64(plan.Height)) {
			return path, nil
		}
		vErr = &VerificationError{
			Attempts: e.attempts,
			Declared: [2]int{dw, dh},
			Expected: [2]float64{float64(plan.Width), float64(plan.Height)},
		}
		log.Printf("export: attempt %d produced %dx%d, expected %dx%d, repainting", e.attempts, dw, dh, plan.Width, plan.Height)
	}
	log.Printf("%v", vErr)
	return "", vErr
}
