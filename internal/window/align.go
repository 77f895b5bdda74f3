package window

// Anchor selects where aligned text is placed inside a region.
type Anchor int

const (
	TopCenter Anchor = iota + 1
	TopLeft
	TopRight
	BottomCenter
	BottomLeft
	BottomRight
	// Right and Left write the text as a vertical run centred on that edge.
	Right
	Left
)

// Point is a cell coordinate.
type Point struct {
	X, Y int
}

// Align returns where text of length n starts in a grid of cols x rows.
// Horizontal anchors yield one start point; Left and Right yield one point
// per character, top to bottom. Starts that would fall before the first
// row or column are clamped to 0, so overlong text is cut at the far edge.
func Align(cols, rows, n int, a Anchor) []Point {
	switch a {
	case TopLeft:
		return []Point{{0, 0}}
	case TopCenter:
		return []Point{{max(cols/2-n/2, 0), 0}}
	case TopRight:
		return []Point{{max(cols-n, 0), 0}}
	case BottomLeft:
		return []Point{{0, max(rows-1, 0)}}
	case BottomCenter:
		return []Point{{max(cols/2-n/2, 0), max(rows-1, 0)}}
	case BottomRight:
		return []Point{{max(cols-n, 0), max(rows-1, 0)}}
	case Left, Right:
		x := 0
		if a == Right {
			x = max(cols-1, 0)
		}
		y0 := max((rows-n)/2, 0)
		pts := make([]Point, n)
		for i := range pts {
			pts[i] = Point{x, y0 + i}
		}
		return pts
	}
	return nil
}

// SetAlignedText writes text at anchor a. Vertical anchors write one rune
// per row; runes that fall outside the visible grid are dropped.
func (r *Region) SetAlignedText(a Anchor, text string, fg, bg Color, attr Attr) {
	runes := []rune(text)
	pts := Align(r.cols, r.VisibleRows(), len(runes), a)
	switch {
	case len(pts) == 0:
		return
	case a == Left || a == Right:
		for i, p := range pts {
			if p.Y >= r.VisibleRows() {
				return
			}
			r.SetCell(p.X, p.Y, runes[i], fg, bg, attr)
		}
	default:
		r.SetText(pts[0].X, pts[0].Y, text, fg, bg, attr)
	}
}
