// Package chart plots multi-series data into a window.Region and renders
// temperature sparklines with colour-coded thresholds.
package chart

import (
	"math"
	"strconv"
	"strings"

	"github.com/luki/tempwatch/internal/history"
	"github.com/luki/tempwatch/internal/window"
)

// Point is one sample of a series.
type Point struct {
	X, Y float64
}

// Range is the visible data window.
type Range struct {
	XMin, XMax, YMin, YMax float64
}

// Contains reports whether p lies inside r, edges included.
func (r Range) Contains(p Point) bool {
	return p.X >= r.XMin && p.X <= r.XMax && p.Y >= r.YMin && p.Y <= r.YMax
}

func (r Range) normalized() Range {
	if r.XMin > r.XMax {
		r.XMin, r.XMax = r.XMax, r.XMin
	}
	if r.YMin > r.YMax {
		r.YMin, r.YMax = r.YMax, r.YMin
	}
	return r
}

// Tick is an axis graduation: its value, the column (x axis) or row
// (y axis) it sits on, and its label.
type Tick struct {
	Value float64
	Cell  int
	Label string
}

// Glyphs used for chart furniture.
type Glyphs struct {
	XLine, YLine, XTick, YTick, Origin, Threshold rune
}

// DefaultGlyphs draws with plain ASCII.
var DefaultGlyphs = Glyphs{XLine: '-', YLine: '|', XTick: '+', YTick: '+', Origin: '+', Threshold: '.'}

// Options configure a Chart.
type Options struct {
	// XCadence and YCadence are the tick spacing in cells.
	XCadence int
	YCadence int
	// LabelWidth is the fixed width of tick labels; longer labels are cut.
	LabelWidth int
	// Capacity bounds the points kept per series. Older points are dropped.
	Capacity int
	Glyphs   Glyphs
	AxisFG   window.Color
	AxisBG   window.Color
}

// DefaultOptions returns the usual cadences, label width and capacity.
func DefaultOptions() Options {
	return Options{
		XCadence:   8,
		YCadence:   2,
		LabelWidth: 5,
		Capacity:   4096,
		Glyphs:     DefaultGlyphs,
		AxisFG:     window.ColorWhite,
		AxisBG:     window.ColorDefault,
	}
}

// Series is one plotted signal.
type Series struct {
	points       *history.Ring[Point]
	Glyph        rune
	FG, BG       window.Color
	Attr         window.Attr
	threshold    float64
	hasThreshold bool
}

// Len returns the number of stored points.
func (s *Series) Len() int {
	return s.points.Len()
}

// Points returns a copy of the stored points, oldest first.
func (s *Series) Points() []Point {
	return s.points.Slice()
}

// Threshold returns the marker value and whether one is set.
func (s *Series) Threshold() (float64, bool) {
	return s.threshold, s.hasThreshold
}

// Chart is the chart model: series, range, and the tick and origin layout
// derived from them. Plot is the cell rectangle inside the target region
// that data maps onto.
type Chart struct {
	opts      Options
	plot      window.Rect
	rng       Range
	series    []*Series
	xTicks    []Tick
	yTicks    []Tick
	originCol int
	originRow int
}

// New creates an empty chart showing rng. Zero option fields take their
// defaults.
func New(opts Options, rng Range) *Chart {
	def := DefaultOptions()
	if opts.XCadence <= 0 {
		opts.XCadence = def.XCadence
	}
	if opts.YCadence <= 0 {
		opts.YCadence = def.YCadence
	}
	if opts.LabelWidth <= 0 {
		opts.LabelWidth = def.LabelWidth
	}
	if opts.Capacity <= 0 {
		opts.Capacity = def.Capacity
	}
	if opts.Glyphs == (Glyphs{}) {
		opts.Glyphs = def.Glyphs
	}
	c := &Chart{opts: opts, rng: rng.normalized()}
	c.SetSpacing()
	return c
}

// InitDataset registers a series and returns its index.
func (c *Chart) InitDataset(glyph rune, fg, bg window.Color, attr window.Attr) int {
	c.series = append(c.series, &Series{
		points: history.NewRing[Point](c.opts.Capacity),
		Glyph:  glyph,
		FG:     fg,
		BG:     bg,
		Attr:   attr,
	})
	return len(c.series) - 1
}

// AppendData adds p to series i. Unknown indices are ignored.
func (c *Chart) AppendData(i int, p Point) {
	if s := c.Series(i); s != nil {
		s.points.Push(p)
	}
}

// ChangeDataset restyles series i.
func (c *Chart) ChangeDataset(i int, glyph rune, fg, bg window.Color, attr window.Attr) {
	if s := c.Series(i); s != nil {
		s.Glyph, s.FG, s.BG, s.Attr = glyph, fg, bg, attr
	}
}

// SetThreshold sets or clears the horizontal marker of series i.
func (c *Chart) SetThreshold(i int, y float64, on bool) {
	if s := c.Series(i); s != nil {
		s.threshold, s.hasThreshold = y, on
	}
}

// Series returns series i, or nil.
func (c *Chart) Series(i int) *Series {
	if i < 0 || i >= len(c.series) {
		return nil
	}
	return c.series[i]
}

// NumSeries returns the number of registered series.
func (c *Chart) NumSeries() int {
	return len(c.series)
}

// Range returns the current data window.
func (c *Chart) Range() Range {
	return c.rng
}

// SetRange replaces the data window and recomputes the layout.
func (c *Chart) SetRange(r Range) {
	c.rng = r.normalized()
	c.SetSpacing()
}

// Plot returns the plotting rectangle.
func (c *Chart) Plot() window.Rect {
	return c.plot
}

// SetPlot sets the plotting rectangle in region grid coordinates.
func (c *Chart) SetPlot(plot window.Rect) {
	c.plot = plot
	c.SetSpacing()
}

// Resize lays the plot out in a cols x rows grid, leaving the left margin
// for y labels and the bottom row for x labels.
func (c *Chart) Resize(cols, rows int) {
	margin := c.opts.LabelWidth + 1
	c.SetPlot(window.Rect{
		X: margin,
		W: max(cols-margin, 0),
		H: max(rows-1, 0),
	})
}

// Origin returns the cell where the axes cross.
func (c *Chart) Origin() (col, row int) {
	return c.originCol, c.originRow
}

// XTicks returns the x axis ticks, lowest value first.
func (c *Chart) XTicks() []Tick {
	return c.xTicks
}

// YTicks returns the y axis ticks, lowest value first.
func (c *Chart) YTicks() []Tick {
	return c.yTicks
}

// Project maps p to a cell. The result may lie outside the plot when p is
// outside the range.
func (c *Chart) Project(p Point) (col, row int) {
	return c.col(p.X), c.row(p.Y)
}

func (c *Chart) col(x float64) int {
	return c.plot.X + scale(x, c.rng.XMin, c.rng.XMax, c.plot.W)
}

func (c *Chart) row(y float64) int {
	return c.plot.Y + c.plot.H - 1 - scale(y, c.rng.YMin, c.rng.YMax, c.plot.H)
}

// scale maps v in [lo, hi] onto 0..cells-1. A zero span maps everything to 0.
func scale(v, lo, hi float64, cells int) int {
	span := hi - lo
	if span <= 0 || cells <= 1 {
		return 0
	}
	return int(math.Round(float64(cells-1) * (v - lo) / span))
}

// SetSpacing recomputes the ticks and the origin. A range straddling zero
// always gets a tick at 0 and puts the perpendicular axis there; otherwise
// ticks start at the minimum and the axis sits on the minimum edge.
func (c *Chart) SetSpacing() {
	xs, xo := axisTicks(c.rng.XMin, c.rng.XMax, c.plot.W, c.opts.XCadence)
	ys, yo := axisTicks(c.rng.YMin, c.rng.YMax, c.plot.H, c.opts.YCadence)

	c.xTicks = c.xTicks[:0]
	for _, v := range xs {
		c.xTicks = append(c.xTicks, Tick{Value: v, Cell: c.col(v), Label: formatLabel(v, c.opts.LabelWidth)})
	}
	c.yTicks = c.yTicks[:0]
	for _, v := range ys {
		c.yTicks = append(c.yTicks, Tick{Value: v, Cell: c.row(v), Label: formatLabel(v, c.opts.LabelWidth)})
	}
	c.originCol = c.col(xo)
	c.originRow = c.row(yo)
}

// axisTicks returns tick values for [lo, hi] over cells cells, one every
// cadence cells, and the value the perpendicular axis passes through.
func axisTicks(lo, hi float64, cells, cadence int) ([]float64, float64) {
	span := hi - lo
	if span <= 0 || cells <= 1 || cadence <= 0 {
		return []float64{lo}, lo
	}
	step := span * float64(cadence) / float64(cells-1)
	eps := step * 1e-9
	limit := (cells-1)/cadence + 2

	if lo < 0 && hi > 0 {
		var below []float64
		for k := 1; k <= limit; k++ {
			v := -float64(k) * step
			if v < lo-eps {
				break
			}
			below = append(below, v)
		}
		ticks := make([]float64, 0, len(below)+limit)
		for i := len(below) - 1; i >= 0; i-- {
			ticks = append(ticks, below[i])
		}
		ticks = append(ticks, 0)
		for k := 1; k <= limit; k++ {
			v := float64(k) * step
			if v > hi+eps {
				break
			}
			ticks = append(ticks, v)
		}
		return ticks, 0
	}

	ticks := []float64{lo}
	for k := 1; k <= limit; k++ {
		v := lo + float64(k)*step
		if v > hi+eps {
			break
		}
		ticks = append(ticks, v)
	}
	return ticks, lo
}

// formatLabel renders v in at most width characters, dropping decimals
// first and truncating as a last resort.
func formatLabel(v float64, width int) string {
	var s string
	for prec := 2; prec >= 0; prec-- {
		s = strconv.FormatFloat(v, 'f', prec, 64)
		if prec > 0 {
			s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
		}
		if s == "-0" {
			s = "0"
		}
		if len(s) <= width {
			return s
		}
	}
	return s[:width]
}

// AutoRecalcSize fits the range to the data. When the shortest non-empty
// series holds more points than the plot is wide, only the newest Plot.W
// points of every series are scanned. The range is left alone when there is
// no data.
func (c *Chart) AutoRecalcSize() {
	shortest := -1
	for _, s := range c.series {
		n := s.points.Len()
		if n > 0 && (shortest < 0 || n < shortest) {
			shortest = n
		}
	}
	if shortest < 0 {
		return
	}
	visible := 0
	if c.plot.W > 0 && shortest > c.plot.W {
		visible = c.plot.W
	}

	var r Range
	first := true
	for _, s := range c.series {
		n := s.points.Len()
		from := 0
		if visible > 0 {
			from = max(n-visible, 0)
		}
		for i := from; i < n; i++ {
			p := s.points.At(i)
			if first {
				r = Range{XMin: p.X, XMax: p.X, YMin: p.Y, YMax: p.Y}
				first = false
				continue
			}
			r.XMin = math.Min(r.XMin, p.X)
			r.XMax = math.Max(r.XMax, p.X)
			r.YMin = math.Min(r.YMin, p.Y)
			r.YMax = math.Max(r.YMax, p.Y)
		}
	}
	c.rng = r
	c.SetSpacing()
}

// Draw renders threshold markers, axes, the origin, ticks, labels and then
// every series into r. Points outside the range are skipped.
func (c *Chart) Draw(r *window.Region) {
	p := c.plot
	if p.W <= 0 || p.H <= 0 {
		return
	}
	g := c.opts.Glyphs
	fg, bg := c.opts.AxisFG, c.opts.AxisBG

	for _, s := range c.series {
		y, ok := s.Threshold()
		if !ok || y < c.rng.YMin || y > c.rng.YMax {
			continue
		}
		row := c.row(y)
		for x := p.X; x < p.X+p.W; x++ {
			r.SetCell(x, row, g.Threshold, s.FG, s.BG, window.AttrDim)
		}
	}

	for x := p.X; x < p.X+p.W; x++ {
		r.SetCell(x, c.originRow, g.XLine, fg, bg, window.AttrNone)
	}
	for y := p.Y; y < p.Y+p.H; y++ {
		r.SetCell(c.originCol, y, g.YLine, fg, bg, window.AttrNone)
	}
	r.SetCell(c.originCol, c.originRow, g.Origin, fg, bg, window.AttrBold)
	for _, t := range c.xTicks {
		r.SetCell(t.Cell, c.originRow, g.XTick, fg, bg, window.AttrNone)
	}
	for _, t := range c.yTicks {
		r.SetCell(c.originCol, t.Cell, g.YTick, fg, bg, window.AttrNone)
	}

	for _, t := range c.xTicks {
		r.SetText(t.Cell-len(t.Label)/2, c.originRow+1, t.Label, fg, bg, window.AttrNone)
	}
	w := c.opts.LabelWidth
	for _, t := range c.yTicks {
		label := strings.Repeat(" ", w-len(t.Label)) + t.Label
		r.SetText(c.originCol-w-1, t.Cell, label, fg, bg, window.AttrNone)
	}

	for _, s := range c.series {
		for i := 0; i < s.points.Len(); i++ {
			pt := s.points.At(i)
			if !c.rng.Contains(pt) {
				continue
			}
			col, row := c.Project(pt)
			r.SetCell(col, row, s.Glyph, s.FG, s.BG, s.Attr)
		}
	}
}
