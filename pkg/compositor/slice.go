package compositor

import "painter/pkg/view"

// Slice splits palette around the view at idx. The bottom palette keeps the
// background and every view below idx; the top palette every view above it.
// Views are shared with palette, not copied, so painting the slices records
// resolved rects on the session's views.
func Slice(palette *view.Palette, idx int) (bottom, front, top *view.Palette) {
	frame := func(views []*view.View) *view.Palette {
		return &view.Palette{Width: palette.Width, Height: palette.Height, Views: views}
	}
	n := len(palette.Views)
	if idx < 0 || idx >= n {
		bottom = frame(palette.Views)
		bottom.Background = palette.Background
		bottom.BorderRadius = palette.BorderRadius
		return bottom, frame(nil), frame(nil)
	}
	bottom = frame(palette.Views[:idx:idx])
	bottom.Background = palette.Background
	bottom.BorderRadius = palette.BorderRadius
	front = frame([]*view.View{palette.Views[idx]})
	top = frame(palette.Views[idx+1:])
	return bottom, front, top
}

// Order is the repaint order for a selection moving from prev to idx. A
// selection moving up the stack repaints bottom first, one moving down
// repaints top first, so the selection never flashes under the wrong layer.
func Order(prev, idx int) [3]Surface {
	if prev < idx {
		return [3]Surface{Bottom, Front, Top}
	}
	return [3]Surface{Top, Front, Bottom}
}
