package visualtest

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"painter/pkg/css"
	"painter/pkg/images"
	"painter/pkg/render"
	"painter/pkg/units"
	"painter/pkg/view"
)

func TestCompare_Identical(t *testing.T) {
	img := Solid(10, 10, [4]uint8{255, 0, 0, 255})

	result, err := Compare(img, img, DefaultOptions())
	if err != nil {
		t.Fatalf("comparison failed: %v", err)
	}
	if !result.Match {
		t.Errorf("expected images to match")
	}
	if result.DifferentPixels != 0 {
		t.Errorf("expected 0 different pixels, got %d", result.DifferentPixels)
	}
}

func TestCompare_Different(t *testing.T) {
	red := Solid(10, 10, [4]uint8{255, 0, 0, 255})
	blue := Solid(10, 10, [4]uint8{0, 0, 255, 255})

	opts := DefaultOptions()
	opts.Diff = true
	result, err := Compare(red, blue, opts)
	if err != nil {
		t.Fatalf("comparison failed: %v", err)
	}
	if result.Match {
		t.Errorf("expected images to not match")
	}
	if result.DifferentPixels != 100 {
		t.Errorf("expected 100 different pixels, got %d", result.DifferentPixels)
	}
	if got := result.Diff.RGBAAt(3, 3); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("diff pixel = %v, want red", got)
	}
}

func TestCompare_WithTolerance(t *testing.T) {
	img1 := Solid(10, 10, [4]uint8{100, 100, 100, 255})
	img2 := Solid(10, 10, [4]uint8{102, 102, 102, 255})

	opts := DefaultOptions()
	opts.Tolerance = 2
	result, err := Compare(img1, img2, opts)
	if err != nil {
		t.Fatalf("comparison failed: %v", err)
	}
	if !result.Match {
		t.Errorf("expected images to match with tolerance=2")
	}

	opts.Tolerance = 0
	result, err = Compare(img1, img2, opts)
	if err != nil {
		t.Fatalf("comparison failed: %v", err)
	}
	if result.Match {
		t.Errorf("expected images to not match with tolerance=0")
	}
}

func TestCompare_Fuzzy(t *testing.T) {
	a := Solid(10, 10, [4]uint8{255, 255, 255, 255})
	b := Solid(10, 10, [4]uint8{255, 255, 255, 255})
	a.Set(4, 4, color.Black)
	b.Set(5, 4, color.Black)

	opts := DefaultOptions()
	if result, _ := Compare(a, b, opts); result.Match {
		t.Errorf("shifted pixel matched without fuzzy radius")
	}
	opts.FuzzyRadius = 1
	if result, _ := Compare(a, b, opts); !result.Match {
		t.Errorf("shifted pixel did not match with fuzzy radius 1")
	}
}

func TestCompare_DifferentDimensions(t *testing.T) {
	result, err := Compare(image.NewRGBA(image.Rect(0, 0, 10, 10)), image.NewRGBA(image.Rect(0, 0, 20, 20)), DefaultOptions())
	if err == nil {
		t.Errorf("expected error for different dimensions")
	}
	if result != nil && result.Match {
		t.Errorf("expected images with different dimensions to not match")
	}
}

func TestCompareFiles(t *testing.T) {
	tmpDir := t.TempDir()
	path1 := filepath.Join(tmpDir, "img1.png")
	path2 := filepath.Join(tmpDir, "img2.png")
	if err := SavePNG(Solid(4, 4, [4]uint8{0, 255, 0, 255}), path1); err != nil {
		t.Fatal(err)
	}
	if err := SavePNG(Solid(4, 4, [4]uint8{0, 255, 0, 255}), path2); err != nil {
		t.Fatal(err)
	}
	result, err := CompareFiles(path1, path2, DefaultOptions())
	if err != nil {
		t.Fatalf("comparison failed: %v", err)
	}
	if !result.Match {
		t.Errorf("expected saved images to match")
	}
	if _, err := CompareFiles(path1, filepath.Join(tmpDir, "missing.png"), DefaultOptions()); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestRenderPaletteDoesNotMutateInput(t *testing.T) {
	pen := render.NewPen(render.Config{
		Units: units.NewContext(750, 1),
		Cache: images.NewCache(images.Options{Dir: t.TempDir()}),
	})
	palette := &view.Palette{
		Width:      "20px",
		Height:     "20px",
		Background: "#000000",
		Views: []*view.View{
			{ID: "a", CSS: css.Single(css.StyleOf("width", "10px", "height", "10px", "color", "#ffffff"))},
		},
	}
	img, err := RenderPalette(context.Background(), pen, palette)
	if err != nil {
		t.Fatal(err)
	}
	if palette.Views[0].Rect != nil {
		t.Errorf("input palette was laid out in place")
	}
	want := Solid(20, 20, [4]uint8{0, 0, 0, 255})
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			want.Set(x, y, color.White)
		}
	}
	result, err := Compare(img, want, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !result.Match {
		t.Errorf("render differs in %d pixels", result.DifferentPixels)
	}
}
