package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"painter/pkg/export"
	"painter/pkg/images"
	"painter/pkg/script"
)

// params collects repeated -param name=value flags.
type params map[string]any

func (p params) String() string { return fmt.Sprint(map[string]any(p)) }

func (p params) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("want name=value, got %q", s)
	}
	p[name] = value
	return nil
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("painter", flag.ContinueOnError)
	fs.SetOutput(stderr)
	output := fs.String("o", "output.png", "output PNG file path")
	screenWidth := fs.Float64("screen-width", 375, "screen width in device pixels (750rpx)")
	widthPixels := fs.Int("width-pixels", 0, "fixed output width in pixels")
	scale := fs.Float64("scale", 1, "scale ratio")
	pixelRatio := fs.Float64("pixel-ratio", 1, "supersampling factor of the export surface")
	attempts := fs.Int("attempts", export.DefaultMaxAttempts, "maximum paint attempts")
	cacheDir := fs.String("cache-dir", "", "directory for downloaded images")
	unbounded := fs.Bool("keep-images", false, "retain downloaded images instead of evicting the oldest")
	vars := params{}
	fs.Var(vars, "param", "template parameter name=value (repeatable)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: painter [flags] <palette.json|palette.js|url>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("missing palette")
	}
	source := fs.Arg(0)

	fmt.Fprintf(stderr, "Loading %s...\n", source)
	palette, err := script.Load(ctx, source, vars)
	if err != nil {
		return fmt.Errorf("loading palette: %w", err)
	}

	policy := images.Bounded
	if *unbounded {
		policy = images.Unbounded
	}
	cache := images.NewCache(images.Options{Dir: *cacheDir})
	ex := export.New(export.Options{
		ScreenWidth: *screenWidth,
		ScaleRatio:  *scale,
		WidthPixels: *widthPixels,
		PixelRatio:  *pixelRatio,
		MaxAttempts: *attempts,
		Policy:      policy,
	}, cache, nil, &export.PNGRasterizer{Path: *output})

	plan, err := ex.Plan(palette)
	if err != nil {
		return err
	}
	fmt.Fprintf(stderr, "Rendering %dx%d...\n", plan.Width, plan.Height)
	path, err := ex.Export(ctx, palette)
	if err != nil {
		return err
	}
	fmt.Fprintf(stderr, "Saved to %s after %d attempt(s)\n", path, ex.Attempts())
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
