package render

import (
	"strconv"

	"painter/pkg/css"
	"painter/pkg/units"
	"painter/pkg/view"
)

const (
	actionSize   = "48rpx"
	actionRadius = "24rpx"
	actionOffset = "2rpx"
	boxBorder    = "4rpx"
	boxColor     = "#1A7AF8"
	handleColor  = "#0000ff"
)

// ActionStyle customises the selection overlay. Border is merged over the
// box style; icon URLs replace the plain handle squares with images.
type ActionStyle struct {
	Border         *css.Style
	ScaleTextIcon  string
	ScaleImageIcon string
	DeleteIcon     string
}

// Overlay is the editing chrome drawn around the selected view. Its views
// carry no ids so they never land in the rect cache; their Rect fields are
// filled once the overlay has been painted.
type Overlay struct {
	Box    *view.View
	Scale  *view.View
	Delete *view.View
}

// NewOverlay builds the overlay for a view resolved to rect. Handles are
// only present when the view style marks it scalable or deletable.
func NewOverlay(u units.Context, v *view.View, as *ActionStyle) *Overlay {
	if v == nil || v.Rect == nil {
		return nil
	}
	if as == nil {
		as = &ActionStyle{}
	}
	rect := *v.Rect
	style := v.Style()
	px := func(f float64) string {
		return strconv.FormatFloat(f/u.PxScale(), 'f', -1, 64) + "px"
	}

	box := css.StyleOf(
		"width", px(rect.Width()),
		"height", px(rect.Height()),
		"left", px(rect.Left),
		"top", px(rect.Top),
		"borderWidth", boxBorder,
		"borderColor", boxColor,
		"color", "transparent",
	)
	if v.Kind() == view.KindText {
		box.Set("borderStyle", "dashed")
	}
	if as.Border != nil {
		for _, k := range as.Border.Keys() {
			val, _ := as.Border.Get(k)
			box.Set(k, val)
		}
	}
	o := &Overlay{Box: &view.View{Type: view.KindRect, CSS: css.Single(box)}}

	offset := float64(u.ToPx(actionOffset, 0, nil))
	half := float64(u.ToPx(actionSize, 0, nil)) / 2

	if style.GetBool("scalable") {
		icon := as.ScaleImageIcon
		top := rect.Bottom - offset - half
		if v.Kind() == view.KindText {
			icon = as.ScaleTextIcon
			top = rect.Top - offset - half
		}
		o.Scale = handle(icon, px(rect.Right+offset), px(top))
	}
	if style.GetBool("deletable") {
		o.Delete = handle(as.DeleteIcon, px(rect.Left-offset), px(rect.Top-offset-half))
	}
	return o
}

func handle(icon, left, top string) *view.View {
	hv := &view.View{Type: view.KindRect}
	style := css.StyleOf("color", handleColor)
	if icon != "" {
		hv.Type = view.KindImage
		hv.URL = icon
		style = css.NewStyle()
	}
	style.Set("align", "center")
	style.Set("width", actionSize)
	style.Set("height", actionSize)
	style.Set("borderRadius", actionRadius)
	style.Set("left", left)
	style.Set("top", top)
	hv.CSS = css.Single(style)
	return hv
}

// Views returns the overlay views in paint order.
func (o *Overlay) Views() []*view.View {
	if o == nil {
		return nil
	}
	views := []*view.View{o.Box}
	if o.Scale != nil {
		views = append(views, o.Scale)
	}
	if o.Delete != nil {
		views = append(views, o.Delete)
	}
	return views
}

// InScale reports whether (x, y) lands on the painted scale handle.
func (o *Overlay) InScale(x, y float64) bool {
	return o != nil && inside(o.Scale, x, y)
}

// InDelete reports whether (x, y) lands on the painted delete handle.
func (o *Overlay) InDelete(x, y float64) bool {
	return o != nil && inside(o.Delete, x, y)
}

func inside(v *view.View, x, y float64) bool {
	return v != nil && v.Rect != nil && v.Rect.Contains(x, y)
}
