package text

import (
	"fmt"
	"os"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// FontConfig holds paths to font files used for text measurement and rendering.
// Empty paths fall back to the bundled Go fonts.
type FontConfig struct {
	Regular string
	Bold    string
}

// DefaultFontConfig returns a FontConfig that uses the bundled Go fonts.
func DefaultFontConfig() FontConfig {
	return FontConfig{}
}

type faceKey struct {
	bold bool
	size float64
}

// Fonts parses each font once and caches faces per size. Faces are shared
// between surfaces, so draws on different goroutines take the lock.
type Fonts struct {
	cfg   FontConfig
	mu    sync.Mutex
	fonts map[bool]*truetype.Font
	faces map[faceKey]font.Face
}

func NewFonts(cfg FontConfig) *Fonts {
	return &Fonts{
		cfg:   cfg,
		fonts: make(map[bool]*truetype.Font),
		faces: make(map[faceKey]font.Face),
	}
}

func (f *Fonts) load(bold bool) (*truetype.Font, error) {
	if ft, ok := f.fonts[bold]; ok {
		return ft, nil
	}
	path, data := f.cfg.Regular, goregular.TTF
	if bold {
		path, data = f.cfg.Bold, gobold.TTF
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading font %s: %w", path, err)
		}
		data = b
	}
	ft, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	f.fonts[bold] = ft
	return ft, nil
}

// Face returns a face for the given pixel size and weight.
func (f *Fonts) Face(size float64, bold bool) (font.Face, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := faceKey{bold: bold, size: size}
	if face, ok := f.faces[key]; ok {
		return face, nil
	}
	ft, err := f.load(bold)
	if err != nil {
		return nil, err
	}
	face := truetype.NewFace(ft, &truetype.Options{Size: size, Hinting: font.HintingNone})
	f.faces[key] = face
	return face, nil
}

// Use selects the face on dc. Drawing with a face is not safe concurrently,
// so callers hold the returned unlock until the draw is finished.
func (f *Fonts) Use(dc *gg.Context, size float64, bold bool) (unlock func(), err error) {
	face, err := f.Face(size, bold)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	dc.SetFontFace(face)
	return f.mu.Unlock, nil
}

// MeasureText measures the single-line width and height of text with the
// given font size.
func (f *Fonts) MeasureText(text string, fontSize float64, bold bool) (width, height float64) {
	face, err := f.Face(fontSize, bold)
	if err != nil {
		// If font loading fails, return rough estimate
		return float64(len(text)) * fontSize * 0.6, fontSize * 1.2
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	dc := gg.NewContext(1, 1)
	dc.SetFontFace(face)
	return dc.MeasureString(text)
}
