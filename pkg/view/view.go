// Package view holds the palette data model: the root render target and the
// ordered views drawn onto it.
package view

import (
	"encoding/json"
	"fmt"

	"painter/pkg/css"
	"painter/pkg/units"
)

// Kind is the type of a view.
type Kind string

const (
	KindRect   Kind = "rect"
	KindText   Kind = "text"
	KindImage  Kind = "image"
	KindQRCode Kind = "qrcode"
)

// Rect is the resolved box of a view in device pixels. X and Y are the
// anchor the style positions (left/top before align is applied); a drag
// moves the anchor.
type Rect struct {
	Left     float64 `json:"left"`
	Top      float64 `json:"top"`
	Right    float64 `json:"right"`
	Bottom   float64 `json:"bottom"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	MinWidth float64 `json:"minWidth,omitempty"`
}

func (r Rect) Width() float64  { return r.Right - r.Left }
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Contains reports whether (x, y) is strictly inside the box. Points on the
// edge belong to neither neighbour.
func (r Rect) Contains(x, y float64) bool {
	return x > r.Left && y > r.Top && x < r.Right && y < r.Bottom
}

// Attr returns a named edge or size, as referenced from calc().
func (r Rect) Attr(attr string) (float64, bool) {
	switch attr {
	case "left":
		return r.Left, true
	case "right":
		return r.Right, true
	case "top":
		return r.Top, true
	case "bottom":
		return r.Bottom, true
	case "width":
		return r.Width(), true
	case "height":
		return r.Height(), true
	}
	return 0, false
}

// View is one drawable node. Rect is only meaningful after a layout pass.
type View struct {
	Type    Kind       `json:"type,omitempty"`
	ID      string     `json:"id,omitempty"`
	CSS     css.Layers `json:"css,omitempty"`
	Rect    *Rect      `json:"rect,omitempty"`
	Text    string     `json:"text,omitempty"`
	Content string     `json:"content,omitempty"`
	URL     string     `json:"url,omitempty"`

	// OriginURL keeps a secure-origin source after download.
	OriginURL string `json:"originUrl,omitempty"`
	// Path is the resolved local file for URL.
	Path string `json:"path,omitempty"`
	// NaturalWidth and NaturalHeight are the intrinsic size of the bitmap.
	NaturalWidth  int `json:"sWidth,omitempty"`
	NaturalHeight int `json:"sHeight,omitempty"`
}

// Kind returns the view type, treating an empty type as rect.
func (v *View) Kind() Kind {
	if v.Type == "" {
		return KindRect
	}
	return v.Type
}

// Selectable reports whether the view can be selected and edited.
func (v *View) Selectable() bool {
	return v != nil && v.ID != ""
}

// Style is the merged effective style record.
func (v *View) Style() *css.Style {
	return v.CSS.Effective()
}

func (v *View) Clone() *View {
	if v == nil {
		return nil
	}
	c := *v
	c.CSS = v.CSS.Clone()
	if v.Rect != nil {
		r := *v.Rect
		c.Rect = &r
	}
	return &c
}

func (v *View) String() string {
	if v.ID != "" {
		return fmt.Sprintf("%s#%s", v.Kind(), v.ID)
	}
	return string(v.Kind())
}

// Palette is the root render target.
type Palette struct {
	Width        string  `json:"width"`
	Height       string  `json:"height"`
	Background   string  `json:"background,omitempty"`
	BorderRadius string  `json:"borderRadius,omitempty"`
	Views        []*View `json:"views"`
}

// Clone deep-copies the palette so a paint works on a snapshot the caller
// cannot mutate underneath it.
func (p *Palette) Clone() *Palette {
	if p == nil {
		return nil
	}
	c := *p
	c.Views = make([]*View, len(p.Views))
	for i, v := range p.Views {
		c.Views[i] = v.Clone()
	}
	return &c
}

// ConfigurationError reports a palette that cannot be painted at all.
type ConfigurationError struct {
	Width  string
	Height string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("palette width and height must be set, width: %q, height: %q", e.Width, e.Height)
}

// Size resolves the palette size under ctx. A missing, malformed or zero
// width or height is a ConfigurationError.
func (p *Palette) Size(ctx units.Context) (w, h int, err error) {
	if p == nil {
		return 0, 0, &ConfigurationError{}
	}
	if p.Width == "" || p.Height == "" {
		return 0, 0, &ConfigurationError{Width: p.Width, Height: p.Height}
	}
	w, errW := ctx.Resolve(p.Width, 0)
	h, errH := ctx.Resolve(p.Height, 0)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, &ConfigurationError{Width: p.Width, Height: p.Height}
	}
	return w, h, nil
}

// Index returns the position of the view with the given id, or -1.
func (p *Palette) Index(id string) int {
	if id == "" {
		return -1
	}
	for i, v := range p.Views {
		if v.ID == id {
			return i
		}
	}
	return -1
}

// Parse decodes a palette from JSON.
func Parse(data []byte) (*Palette, error) {
	var p Palette
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing palette: %w", err)
	}
	for i, v := range p.Views {
		if v == nil {
			return nil, fmt.Errorf("parsing palette: view %d is null", i)
		}
	}
	return &p, nil
}
