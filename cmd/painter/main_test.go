package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"painter/pkg/images"
)

func TestRunExportsJSONPalette(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "card.json")
	output := filepath.Join(dir, "card.png")
	palette := `{
		"width": "654rpx",
		"height": "400rpx",
		"background": "linear-gradient(to bottom, #ffffff, #dddddd)",
		"views": [
			{"type": "rect", "css": {"left": "20rpx", "top": "20rpx", "width": "200rpx", "height": "100rpx", "color": "#1A7AF8", "borderRadius": "10rpx"}},
			{"type": "text", "text": "hello", "css": {"left": "20rpx", "top": "140rpx", "fontSize": "32rpx"}},
			{"type": "qrcode", "content": "https://example.com", "css": {"right": "20rpx", "bottom": "20rpx", "width": "160rpx"}}
		]
	}`
	if err := os.WriteFile(input, []byte(palette), 0o644); err != nil {
		t.Fatal(err)
	}

	var stderr bytes.Buffer
	err := run(context.Background(), []string{"-o", output, "-screen-width", "375", "-cache-dir", dir, input}, &stderr)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, stderr.String())
	}
	w, h, err := images.GetImageDimensions(output)
	if err != nil {
		t.Fatal(err)
	}
	// 654rpx x 400rpx on a 375px screen
	if w != 327 || h != 200 {
		t.Errorf("output = %dx%d, want 327x200", w, h)
	}
	if !strings.Contains(stderr.String(), "Saved to") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunTemplateWithParams(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "card.js")
	output := filepath.Join(dir, "card.png")
	src := `var palette = {width: px(params.w), height: "10px", views: [{type: "text", text: params.name}]};`
	if err := os.WriteFile(input, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	var stderr bytes.Buffer
	args := []string{"-o", output, "-screen-width", "750", "-width-pixels", "60", "-param", "w=30", "-param", "name=ada", input}
	if err := run(context.Background(), args, &stderr); err != nil {
		t.Fatalf("run: %v\n%s", err, stderr.String())
	}
	w, h, err := images.GetImageDimensions(output)
	if err != nil {
		t.Fatal(err)
	}
	if w != 60 || h != 20 {
		t.Errorf("output = %dx%d, want 60x20", w, h)
	}
}

func TestRunErrors(t *testing.T) {
	var stderr bytes.Buffer
	if err := run(context.Background(), nil, &stderr); err == nil {
		t.Errorf("expected error without a palette argument")
	}
	if err := run(context.Background(), []string{"-param", "novalue", "x.json"}, &stderr); err == nil {
		t.Errorf("expected error for a malformed -param")
	}

	dir := t.TempDir()
	input := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(input, []byte(`{"width": "100px", "views": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := run(context.Background(), []string{"-o", filepath.Join(dir, "x.png"), input}, &stderr); err == nil {
		t.Errorf("expected a configuration error for a palette without height")
	}
}
