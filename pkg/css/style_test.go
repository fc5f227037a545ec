package css

import (
	"encoding/json"
	"testing"
)

func TestLayers_EffectiveLaterOverrides(t *testing.T) {
	layers := Layers{
		StyleOf("color", "red"),
		StyleOf("color", "blue", "width", "10px"),
	}
	got := layers.Effective()
	if len(got.Properties) != 2 {
		t.Fatalf("expected 2 properties, got %v", got.Properties)
	}
	if v, _ := got.Get("color"); v != "blue" {
		t.Errorf("expected color=blue, got %q", v)
	}
	if v, _ := got.Get("width"); v != "10px" {
		t.Errorf("expected width=10px, got %q", v)
	}
}

func TestLayers_SingleEqualsOneElementList(t *testing.T) {
	s := StyleOf("left", "10rpx", "top", "20rpx")
	a := Single(s).Effective()
	b := Layers{s}.Effective()
	if a.String() != b.String() {
		t.Errorf("single %q != list %q", a, b)
	}
}

func TestLayers_EmptyValueClears(t *testing.T) {
	base := Layers{StyleOf("left", "10px", "right", "20px")}
	merged := base.Merge(Layers{StyleOf("left", "30px", "right", "")})
	if len(merged) != 1 {
		t.Fatalf("expected merge to collapse to one layer, got %d", len(merged))
	}
	eff := merged.Effective()
	if eff.Has("right") {
		t.Error("expected right to be cleared")
	}
	if v, _ := eff.Get("left"); v != "30px" {
		t.Errorf("expected left=30px, got %q", v)
	}
}

func TestLayers_MergeDoesNotMutateInput(t *testing.T) {
	first := StyleOf("color", "red")
	base := Layers{first}
	base.Merge(Layers{StyleOf("color", "blue")})
	if v, _ := first.Get("color"); v != "red" {
		t.Errorf("merge mutated its input: color=%q", v)
	}
}

func TestLayers_GetSearchesFromTop(t *testing.T) {
	layers := Layers{StyleOf("fontSize", "20rpx"), nil, StyleOf("fontSize", "30rpx")}
	if v, _ := layers.Get("fontSize"); v != "30rpx" {
		t.Errorf("expected 30rpx, got %q", v)
	}
	if _, ok := layers.Get("color"); ok {
		t.Error("expected color to be missing")
	}
}

func TestLayers_UnmarshalObjectAndArray(t *testing.T) {
	var single Layers
	if err := json.Unmarshal([]byte(`{"width":"100rpx","scalable":true,"opacity":0.5}`), &single); err != nil {
		t.Fatalf("unmarshal object: %v", err)
	}
	if len(single) != 1 {
		t.Fatalf("expected one layer, got %d", len(single))
	}
	if !single.Effective().GetBool("scalable") {
		t.Error("expected scalable=true")
	}
	if v, _ := single.Get("opacity"); v != "0.5" {
		t.Errorf("expected opacity literal 0.5, got %q", v)
	}

	var list Layers
	if err := json.Unmarshal([]byte(`[{"color":"red"},{"color":"blue","width":"10px"}]`), &list); err != nil {
		t.Fatalf("unmarshal array: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected two layers, got %d", len(list))
	}
	if v, _ := list.Effective().Get("color"); v != "blue" {
		t.Errorf("expected blue, got %q", v)
	}
}

func TestLayers_UnmarshalRejectsNested(t *testing.T) {
	var l Layers
	if err := json.Unmarshal([]byte(`{"shadow":{"x":1}}`), &l); err == nil {
		t.Error("expected error for nested object value")
	}
}

func TestLayers_MarshalRoundTripShape(t *testing.T) {
	data, err := json.Marshal(Single(StyleOf("color", "red")))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"color":"red"}` {
		t.Errorf("expected plain object, got %s", data)
	}
}

func TestStyle_CloneIsDeep(t *testing.T) {
	s := StyleOf("color", "red")
	c := s.Clone()
	c.Set("color", "blue")
	if v, _ := s.Get("color"); v != "red" {
		t.Errorf("clone shares storage with original")
	}
}

func TestParseColor(t *testing.T) {
	tests := map[string]Color{
		"red":                  {255, 0, 0, 1},
		"#fff":                 {255, 255, 255, 1},
		"#1A7AF8":              {0x1a, 0x7a, 0xf8, 1},
		"#00000080":            {0, 0, 0, 128.0 / 255.0},
		"rgb(10, 20, 30)":      {10, 20, 30, 1},
		"rgba(10, 20, 30, .5)": {10, 20, 30, 0.5},
		"transparent":          {0, 0, 0, 0},
	}
	for in, want := range tests {
		got, ok := ParseColor(in)
		if !ok || got != want {
			t.Errorf("ParseColor(%q) = %+v, %v; want %+v", in, got, ok, want)
		}
	}
	for _, bad := range []string{"", "#12", "#zzzzzz", "rgb(1,2)", "rgba(1,2,3,4)", "chartreuse-ish"} {
		if _, ok := ParseColor(bad); ok {
			t.Errorf("ParseColor(%q) should fail", bad)
		}
	}
}

func TestLayers_UnmarshalNullClears(t *testing.T) {
	var patch Layers
	if err := json.Unmarshal([]byte(`{"right":null,"bottom":""}`), &patch); err != nil {
		t.Fatal(err)
	}
	merged := Single(StyleOf("right", "1px", "bottom", "2px", "left", "3px")).Merge(patch).Effective()
	if merged.Has("right") || merged.Has("bottom") {
		t.Errorf("expected right and bottom cleared, got %s", merged)
	}
	if !merged.Has("left") {
		t.Errorf("left was dropped")
	}
}
