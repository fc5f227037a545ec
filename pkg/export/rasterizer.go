package export

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"painter/pkg/images"
)

// Rasterizer writes a finished surface to a file and reads back the size
// the file declares.
type Rasterizer interface {
	Rasterize(ctx context.Context, img image.Image, w, h int) (string, error)
	ImageInfo(path string) (w, h int, err error)
}

// PNGRasterizer saves surfaces as PNG files. An empty Dir uses the system
// temp directory; a set Path overwrites that file instead.
type PNGRasterizer struct {
	Dir  string
	Path string
}

func (r *PNGRasterizer) Rasterize(ctx context.Context, img image.Image, w, h int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if img == nil {
		return "", fmt.Errorf("no surface to rasterize")
	}
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
		img = dst
	}
	path := r.Path
	if path == "" {
		f, err := os.CreateTemp(r.Dir, "painter-*.png")
		if err != nil {
			return "", err
		}
		path = f.Name()
		f.Close()
	}
	if err := gg.SavePNG(path, img); err != nil {
		return "", err
	}
	return path, nil
}

func (r *PNGRasterizer) ImageInfo(path string) (int, int, error) {
	return images.GetImageDimensions(path)
}
