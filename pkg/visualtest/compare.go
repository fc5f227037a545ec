// Package visualtest compares rendered surfaces pixel by pixel.
package visualtest

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
)

// CompareResult contains the results of an image comparison
type CompareResult struct {
	Match           bool
	DifferentPixels int
	TotalPixels     int
	MaxDifference   int // Max color channel difference found
	// Diff marks mismatching pixels in red when CompareOptions.Diff is set.
	Diff *image.RGBA
}

// CompareOptions configures the image comparison
type CompareOptions struct {
	// Tolerance: maximum allowed difference per color channel (0-255)
	Tolerance int

	// FuzzyRadius: if > 0, a pixel matches if it matches any pixel within this radius.
	// Antialiased edges of rotated or rounded boxes shift by a pixel between passes.
	FuzzyRadius int

	// MaxDifferentPercent: if > 0, pass if the percentage of different pixels is <= this value
	MaxDifferentPercent float64

	// Diff requests a diff image in the result.
	Diff bool
}

// DefaultOptions returns sensible defaults for image comparison
func DefaultOptions() CompareOptions {
	return CompareOptions{
		Tolerance: 2,
	}
}

// Compare compares two in-memory images pixel by pixel.
func Compare(actual, expected image.Image, opts CompareOptions) (*CompareResult, error) {
	actualBounds := actual.Bounds()
	expectedBounds := expected.Bounds()
	if actualBounds.Size() != expectedBounds.Size() {
		return &CompareResult{
			Match: false,
		}, fmt.Errorf("image dimensions differ: actual=%v, expected=%v", actualBounds, expectedBounds)
	}

	result := &CompareResult{
		Match:       true,
		TotalPixels: actualBounds.Dx() * actualBounds.Dy(),
	}
	if opts.Diff {
		result.Diff = image.NewRGBA(image.Rect(0, 0, actualBounds.Dx(), actualBounds.Dy()))
	}
	offset := expectedBounds.Min.Sub(actualBounds.Min)

	for y := actualBounds.Min.Y; y < actualBounds.Max.Y; y++ {
		for x := actualBounds.Min.X; x < actualBounds.Max.X; x++ {
			diff := pixelDiff(actual.At(x, y), expected.At(x+offset.X, y+offset.Y))
			if diff > result.MaxDifference {
				result.MaxDifference = diff
			}
			if diff <= opts.Tolerance {
				continue
			}
			if opts.FuzzyRadius > 0 && fuzzyMatch(actual, expected, x, y, offset, opts) {
				continue
			}
			result.Match = false
			result.DifferentPixels++
			if result.Diff != nil {
				result.Diff.Set(x-actualBounds.Min.X, y-actualBounds.Min.Y, color.RGBA{255, 0, 0, 255})
			}
		}
	}

	if !result.Match && opts.MaxDifferentPercent > 0 {
		pct := float64(result.DifferentPixels) / float64(result.TotalPixels) * 100
		if pct <= opts.MaxDifferentPercent {
			result.Match = true
		}
	}
	return result, nil
}

// CompareFiles decodes two PNG files and compares them.
func CompareFiles(actualPath, expectedPath string, opts CompareOptions) (*CompareResult, error) {
	actualImg, err := LoadPNG(actualPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load actual image: %w", err)
	}
	expectedImg, err := LoadPNG(expectedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load expected image: %w", err)
	}
	return Compare(actualImg, expectedImg, opts)
}

// pixelDiff is the largest 8-bit channel difference between two colors.
func pixelDiff(a, b color.Color) int {
	ar, ag, ab, aa := a.RGBA()
	er, eg, eb, ea := b.RGBA()
	return maxInt(
		absInt(int(ar>>8)-int(er>>8)),
		absInt(int(ag>>8)-int(eg>>8)),
		absInt(int(ab>>8)-int(eb>>8)),
		absInt(int(aa>>8)-int(ea>>8)),
	)
}

// fuzzyMatch checks if the actual pixel at (x, y) matches any expected pixel within radius
func fuzzyMatch(actual, expected image.Image, x, y int, offset image.Point, opts CompareOptions) bool {
	bounds := expected.Bounds()
	c := actual.At(x, y)
	for dy := -opts.FuzzyRadius; dy <= opts.FuzzyRadius; dy++ {
		for dx := -opts.FuzzyRadius; dx <= opts.FuzzyRadius; dx++ {
			p := image.Pt(x+dx+offset.X, y+dy+offset.Y)
			if !p.In(bounds) {
				continue
			}
			if pixelDiff(c, expected.At(p.X, p.Y)) <= opts.Tolerance {
				return true
			}
		}
	}
	return false
}

// LoadPNG decodes a PNG file.
func LoadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}

// SavePNG saves an image as PNG
func SavePNG(img image.Image, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func maxInt(vals ...int) int {
	if len(vals) == 0 {
		return 0
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
