package view

import (
	"errors"
	"testing"

	"painter/pkg/css"
	"painter/pkg/units"
)

func TestParse_StyleShapes(t *testing.T) {
	p, err := Parse([]byte(`{
		"width": "654rpx", "height": "1000rpx", "background": "#eee",
		"views": [
			{"type": "text", "id": "title", "text": "hi", "css": {"left": "10rpx"}},
			{"type": "image", "url": "https://x/y.png", "css": [{"width": "10px"}, {"width": "20px"}]},
			{"css": {"width": "1px"}}
		]
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Views) != 3 {
		t.Fatalf("expected 3 views, got %d", len(p.Views))
	}
	if w, _ := p.Views[1].Style().Get("width"); w != "20px" {
		t.Errorf("expected merged width 20px, got %q", w)
	}
	if p.Views[2].Kind() != KindRect {
		t.Errorf("expected empty type to be rect, got %q", p.Views[2].Kind())
	}
	if !p.Views[0].Selectable() || p.Views[1].Selectable() {
		t.Error("only views with an id are selectable")
	}
}

func TestParse_NullView(t *testing.T) {
	if _, err := Parse([]byte(`{"width":"1px","height":"1px","views":[null]}`)); err == nil {
		t.Error("expected error for null view")
	}
}

func TestPalette_CloneIsDeep(t *testing.T) {
	p := &Palette{Width: "10px", Height: "10px", Views: []*View{
		{ID: "a", CSS: css.Single(css.StyleOf("color", "red")), Rect: &Rect{Left: 1}},
	}}
	c := p.Clone()
	c.Views[0].CSS[0].Set("color", "blue")
	c.Views[0].Rect.Left = 5
	c.Views[0].Text = "changed"
	if v, _ := p.Views[0].CSS.Get("color"); v != "red" {
		t.Error("clone shares style with original")
	}
	if p.Views[0].Rect.Left != 1 || p.Views[0].Text != "" {
		t.Error("clone shares view fields with original")
	}
}

func TestPalette_SizeRequiresDimensions(t *testing.T) {
	ctx := units.Context{ScreenK: 0.5}
	tests := []*Palette{
		nil,
		{Height: "10px"},
		{Width: "10px"},
		{Width: "0", Height: "10px"},
		{Width: "10em", Height: "10px"},
	}
	for i, p := range tests {
		_, _, err := p.Size(ctx)
		var ce *ConfigurationError
		if !errors.As(err, &ce) {
			t.Errorf("case %d: expected ConfigurationError, got %v", i, err)
		}
	}
	w, h, err := (&Palette{Width: "750rpx", Height: "100px"}).Size(ctx)
	if err != nil || w != 375 || h != 100 {
		t.Errorf("expected 375x100, got %dx%d (%v)", w, h, err)
	}
}

func TestRect_ContainsIsStrict(t *testing.T) {
	r := Rect{Left: 0, Top: 0, Right: 10, Bottom: 10}
	if !r.Contains(5, 5) {
		t.Error("expected center to be inside")
	}
	for _, p := range [][2]float64{{0, 5}, {10, 5}, {5, 0}, {5, 10}} {
		if r.Contains(p[0], p[1]) {
			t.Errorf("edge point %v should not be inside", p)
		}
	}
}

func TestRectCache_RefAttr(t *testing.T) {
	c := NewRectCache()
	c.Put("a", Rect{Left: 10, Top: 20, Right: 110, Bottom: 70})
	c.Put("", Rect{Left: 99})
	if w, ok := c.RefAttr("a", "width"); !ok || w != 100 {
		t.Errorf("expected width 100, got %v %v", w, ok)
	}
	if h, _ := c.RefAttr("a", "height"); h != 50 {
		t.Errorf("expected height 50, got %v", h)
	}
	if _, ok := c.RefAttr("a", "depth"); ok {
		t.Error("unknown attribute should not resolve")
	}
	c.Forget("a")
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be forgotten")
	}
}

func TestRectCache_FeedsCalc(t *testing.T) {
	c := NewRectCache()
	c.Put("a", Rect{Left: 0, Right: 100})
	ctx := units.Context{ScreenK: 0.5, Scale: 1}
	got, err := ctx.ResolveRefs("calc(a.width + 10px)", 0, c)
	if err != nil || got != 110 {
		t.Errorf("expected 110, got %d (%v)", got, err)
	}
}
