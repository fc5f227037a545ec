package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"painter/pkg/compositor"
	"painter/pkg/editor"
	"painter/pkg/export"
	"painter/pkg/images"
	"painter/pkg/script"
	"painter/pkg/units"
	"painter/pkg/view"
)

// touchPad forwards pointer input over the stacked surfaces to the engine.
type touchPad struct {
	widget.BaseWidget
	engine  *editor.Engine
	pressed bool
}

var (
	_ desktop.Mouseable = (*touchPad)(nil)
	_ fyne.Draggable    = (*touchPad)(nil)
)

func newTouchPad(engine *editor.Engine) *touchPad {
	t := &touchPad{engine: engine}
	t.ExtendBaseWidget(t)
	return t
}

func (t *touchPad) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(canvas.NewRectangle(color.Transparent))
}

func (t *touchPad) MouseDown(ev *desktop.MouseEvent) {
	t.pressed = true
	t.engine.Press(float64(ev.Position.X), float64(ev.Position.Y))
}

func (t *touchPad) MouseUp(*desktop.MouseEvent) { t.release() }

func (t *touchPad) Dragged(ev *fyne.DragEvent) {
	if t.pressed {
		t.engine.Move(float64(ev.Position.X), float64(ev.Position.Y))
	}
}

func (t *touchPad) DragEnd() { t.release() }

// release ends the gesture once; fyne reports both MouseUp and DragEnd
// after a drag.
func (t *touchPad) release() {
	if t.pressed {
		t.pressed = false
		t.engine.Release()
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: paintershow [flags] <palette.json|palette.js|url>\n\n")
	fmt.Fprintf(os.Stderr, "Click a view to select it, drag to move, drag the corner handle to scale.\n")
	fmt.Fprintf(os.Stderr, "Press e to export.\n\nFlags:\n")
	flag.PrintDefaults()
}

func main() {
	output := flag.String("o", "painter.png", "export file path")
	screenWidth := flag.Float64("screen-width", 375, "screen width in device pixels (750rpx)")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}
	source := flag.Arg(0)

	palette, err := script.Load(context.Background(), source, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	w, h, err := palette.Size(units.NewContext(*screenWidth, 1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	a := app.New()
	win := a.NewWindow("painter - " + source)
	status := widget.NewLabel("Loading " + source + "...")

	layers := [len(compositor.Presented)]*canvas.Image{}
	for i := range layers {
		blank := image.NewRGBA(image.Rect(0, 0, w, h))
		layers[i] = canvas.NewImageFromImage(blank)
		layers[i].FillMode = canvas.ImageFillStretch
		layers[i].SetMinSize(fyne.NewSize(float32(w), float32(h)))
	}
	present := compositor.PresenterFunc(func(s compositor.Surface, img image.Image) {
		if int(s) >= len(layers) {
			return
		}
		fyne.Do(func() {
			layers[s].Image = img
			layers[s].Refresh()
		})
	})
	setStatus := func(msg string) {
		fyne.Do(func() { status.SetText(msg) })
	}

	opts := editor.DefaultOptions()
	opts.ScreenWidth = *screenWidth
	var engine *editor.Engine
	engine = editor.New(opts, editor.Host{
		Presenter:  present,
		Rasterizer: &export.PNGRasterizer{Path: *output},
		Cache:      images.Shared(),
		Callbacks: editor.Callbacks{
			OnPaintComplete: func() { setStatus(source) },
			OnViewClicked:   func(v *view.View) { setStatus("Selected " + v.String()) },
			OnTouchEnd: func(end editor.TouchEnd) {
				switch {
				case end.Type == editor.TouchDelete:
					go remove(engine, end.Index, setStatus)
				case end.View == nil:
					setStatus(source)
				default:
					setStatus(describe(end.View))
				}
			},
			OnExportOK:    func(path string) { setStatus("Exported " + path) },
			OnExportError: func(err error) { setStatus("Export failed: " + err.Error()) },
		},
	})
	defer engine.Close()

	stack := container.NewStack()
	for _, s := range compositor.Presented {
		stack.Add(layers[s])
	}
	stack.Add(newTouchPad(engine))
	win.SetContent(container.NewBorder(nil, status, nil, nil, container.NewCenter(stack)))
	win.Resize(fyne.NewSize(float32(w)+40, float32(h)+80))

	win.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyE {
			setStatus("Exporting...")
			go engine.Export(context.Background())
		}
	})

	go func() {
		if err := engine.Load(context.Background(), palette); err != nil {
			setStatus("Error: " + err.Error())
		}
	}()
	win.ShowAndRun()
}

// remove drops the view at index and reloads the palette.
func remove(engine *editor.Engine, index int, setStatus func(string)) {
	p := engine.Palette()
	if p == nil || index < 0 || index >= len(p.Views) {
		return
	}
	removed := p.Views[index]
	p.Views = append(p.Views[:index], p.Views[index+1:]...)
	if err := engine.Load(context.Background(), p); err != nil {
		setStatus("Error: " + err.Error())
		return
	}
	setStatus("Deleted " + removed.String())
}

func describe(v *view.View) string {
	style := v.Style()
	var parts []string
	for _, k := range []string{"left", "top", "width", "height"} {
		if val, ok := style.Get(k); ok && val != "" {
			parts = append(parts, k+"="+val)
		}
	}
	return v.String() + " " + strings.Join(parts, " ")
}
