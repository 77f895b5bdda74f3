package window

// BorderGlyphs are the runes used to frame a bordered region.
type BorderGlyphs struct {
	Horizontal rune
	Vertical   rune
	Corner     rune
}

// DefaultBorder frames with plain ASCII.
var DefaultBorder = BorderGlyphs{Horizontal: '-', Vertical: '|', Corner: '+'}

// Options configure a region at construction.
type Options struct {
	// Reset is the background ClearBuffer paints and the background used
	// for cells written with ColorDefault.
	Reset  Color
	Border bool
	Glyphs BorderGlyphs
}

// Region is a rectangular cell grid drawn onto a parent surface.
//
// The grid is (W - 2*border) columns by (H - border) rows. Grid cell (0, 0)
// sits one cell in from the top-left corner when bordered. The bottom grid
// row of a bordered region lies under the bottom border and is overdrawn by
// it. Writes outside the grid are dropped.
type Region struct {
	want   Rect
	rect   Rect
	opts   Options
	cols   int
	rows   int
	cells  []Cell
	border int
}

// NewRegion places want inside parent and allocates a cleared grid.
// Geometry that does not fit is first shifted into the parent; if it still
// does not fit, the region takes over the whole parent.
func NewRegion(parent, want Rect, opts Options) *Region {
	if opts.Glyphs == (BorderGlyphs{}) {
		opts.Glyphs = DefaultBorder
	}
	r := &Region{want: want, opts: opts}
	if opts.Border {
		r.border = 1
	}
	r.Resize(parent)
	return r
}

// place clamps want into parent.
func place(parent, want Rect) Rect {
	if want.W <= 0 || want.H <= 0 {
		return parent
	}
	r := want
	if r.X < parent.X {
		r.X = parent.X
	}
	if r.X+r.W > parent.X+parent.W {
		r.X = parent.X + parent.W - r.W
	}
	if r.Y < parent.Y {
		r.Y = parent.Y
	}
	if r.Y+r.H > parent.Y+parent.H {
		r.Y = parent.Y + parent.H - r.H
	}
	if r.X < parent.X || r.Y < parent.Y {
		return parent
	}
	return r
}

// Resize re-places the requested geometry inside parent and rebuilds the
// grid. Previous contents are discarded.
func (r *Region) Resize(parent Rect) {
	r.rect = place(parent, r.want)
	r.cols = max(r.rect.W-2*r.border, 0)
	r.rows = max(r.rect.H-r.border, 0)
	size := r.cols * r.rows
	if cap(r.cells) < size {
		r.cells = make([]Cell, size)
	} else {
		r.cells = r.cells[:size]
	}
	r.ClearBuffer()
}

// Move requests new geometry and re-places it inside parent.
func (r *Region) Move(parent, want Rect) {
	r.want = want
	r.Resize(parent)
}

// ClearBuffer resets every cell to a blank in the default colours.
func (r *Region) ClearBuffer() {
	if len(r.cells) == 0 {
		return
	}
	r.cells[0] = Cell{Glyph: ' ', FG: ColorDefault, BG: r.opts.Reset, Attr: AttrNone}
	for filled := 1; filled < len(r.cells); filled *= 2 {
		copy(r.cells[filled:], r.cells[:filled])
	}
}

// SetCell writes one grid cell. Out-of-range coordinates are ignored.
func (r *Region) SetCell(x, y int, glyph rune, fg, bg Color, attr Attr) {
	if x < 0 || y < 0 || x >= r.cols || y >= r.rows {
		return
	}
	if bg == ColorDefault {
		bg = r.opts.Reset
	}
	r.cells[y*r.cols+x] = Cell{Glyph: glyph, FG: fg, BG: bg, Attr: attr}
}

// SetText writes text left to right from (x, y). Runes past the right edge
// are dropped; nothing wraps.
func (r *Region) SetText(x, y int, text string, fg, bg Color, attr Attr) {
	if y < 0 || y >= r.rows {
		return
	}
	i := 0
	for _, ch := range text {
		if x+i >= r.cols {
			return
		}
		r.SetCell(x+i, y, ch, fg, bg, attr)
		i++
	}
}

// Cell returns the grid cell at (x, y).
func (r *Region) Cell(x, y int) (Cell, bool) {
	if x < 0 || y < 0 || x >= r.cols || y >= r.rows {
		return Cell{}, false
	}
	return r.cells[y*r.cols+x], true
}

// Render writes the grid and then the border to s, resolving colours
// through pairs.
func (r *Region) Render(s Surface, pairs *Pairs) {
	ox := r.rect.X + r.border
	oy := r.rect.Y + r.border
	for y := 0; y < r.rows; y++ {
		for x := 0; x < r.cols; x++ {
			c := r.cells[y*r.cols+x]
			id := pairs.GetOrCreate(c.FG, c.BG)
			style := pairs.Style(id).Attributes(c.Attr.mask())
			s.SetContent(ox+x, oy+y, c.Glyph, nil, style)
		}
	}
	if r.border == 1 {
		r.renderBorder(s, pairs)
	}
}

func (r *Region) renderBorder(s Surface, pairs *Pairs) {
	style := pairs.Style(pairs.GetOrCreate(ColorDefault, r.opts.Reset))
	g := r.opts.Glyphs
	x0, y0 := r.rect.X, r.rect.Y
	x1, y1 := r.rect.X+r.rect.W-1, r.rect.Y+r.rect.H-1
	for x := x0 + 1; x < x1; x++ {
		s.SetContent(x, y0, g.Horizontal, nil, style)
		s.SetContent(x, y1, g.Horizontal, nil, style)
	}
	for y := y0 + 1; y < y1; y++ {
		s.SetContent(x0, y, g.Vertical, nil, style)
		s.SetContent(x1, y, g.Vertical, nil, style)
	}
	for _, p := range [][2]int{{x0, y0}, {x1, y0}, {x0, y1}, {x1, y1}} {
		s.SetContent(p[0], p[1], g.Corner, nil, style)
	}
}

// Rect returns the region's placed geometry on the parent.
func (r *Region) Rect() Rect {
	return r.rect
}

// Cols returns the grid width.
func (r *Region) Cols() int {
	return r.cols
}

// Rows returns the grid height.
func (r *Region) Rows() int {
	return r.rows
}

// VisibleRows returns the grid rows not covered by the bottom border.
func (r *Region) VisibleRows() int {
	return max(r.rows-r.border, 0)
}

// Bordered reports whether the region draws a border.
func (r *Region) Bordered() bool {
	return r.border == 1
}
