package render

import (
	"testing"

	"painter/pkg/css"
	"painter/pkg/view"
)

func TestOverlayGeometry(t *testing.T) {
	pen := newTestPen(t)
	v := &view.View{
		Type: view.KindImage,
		ID:   "pic",
		CSS:  css.Single(css.StyleOf("scalable", "true", "deletable", "true")),
		Rect: &view.Rect{Left: 100, Top: 100, Right: 200, Bottom: 150},
	}
	o := NewOverlay(testUnits, v, nil)
	if len(o.Views()) != 3 {
		t.Fatalf("views = %d, want 3", len(o.Views()))
	}
	palette := &view.Palette{Width: "400px", Height: "400px", Views: o.Views()}
	if err := pen.Layout(palette); err != nil {
		t.Fatal(err)
	}

	if got, want := *o.Box.Rect, (view.Rect{Left: 100, Top: 100, Right: 200, Bottom: 150, X: 100, Y: 100}); got != want {
		t.Errorf("box = %+v, want %+v", got, want)
	}
	// scale handle centred on (right + 2, bottom - 2)
	if got := o.Scale.Rect; got.Left != 202-24 || got.Top != 150-2-24 || got.Width() != 48 {
		t.Errorf("scale = %+v", got)
	}
	// delete handle centred on (left - 2, top - 2)
	if got := o.Delete.Rect; got.Left != 98-24 || got.Top != 98-24 {
		t.Errorf("delete = %+v", got)
	}
	if !o.InDelete(98, 98) || o.InDelete(150, 125) {
		t.Errorf("InDelete hit test wrong")
	}
	if !o.InScale(202, 148) {
		t.Errorf("InScale(202, 148) = false")
	}
	for _, ov := range o.Views() {
		if ov.ID != "" {
			t.Errorf("overlay view has id %q", ov.ID)
		}
	}
}

func TestOverlayText(t *testing.T) {
	v := &view.View{
		Type: view.KindText,
		ID:   "t",
		CSS:  css.Single(css.StyleOf("scalable", "true")),
		Rect: &view.Rect{Left: 10, Top: 50, Right: 60, Bottom: 70},
	}
	o := NewOverlay(testUnits, v, &ActionStyle{
		Border:        css.StyleOf("borderColor", "#ff0000"),
		ScaleTextIcon: "scale.png",
	})
	if o.Delete != nil {
		t.Errorf("delete handle without deletable")
	}
	box := o.Box.Style()
	if s, _ := box.Get("borderStyle"); s != "dashed" {
		t.Errorf("text box borderStyle = %q, want dashed", s)
	}
	if c, _ := box.Get("borderColor"); c != "#ff0000" {
		t.Errorf("borderColor = %q, want override", c)
	}
	if o.Scale.Kind() != view.KindImage || o.Scale.URL != "scale.png" {
		t.Errorf("scale handle = %+v, want icon image", o.Scale)
	}
	// text handle sits at the top edge
	if top, _ := o.Scale.Style().Get("top"); top != "24px" {
		t.Errorf("scale top = %q, want 24px", top)
	}
}

func TestOverlayNilRect(t *testing.T) {
	if o := NewOverlay(testUnits, &view.View{ID: "x"}, nil); o != nil {
		t.Errorf("overlay for unlaid view = %+v", o)
	}
	var o *Overlay
	if o.InDelete(0, 0) || o.InScale(0, 0) || o.Views() != nil {
		t.Errorf("nil overlay should be inert")
	}
}
