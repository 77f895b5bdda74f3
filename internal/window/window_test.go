package window

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
)

type fakeSurface struct {
	w, h   int
	colors int
	cells  map[[2]int]fakeCell
	shows  int
	syncs  int
}

type fakeCell struct {
	ch    rune
	style tcell.Style
}

func newFakeSurface(w, h int) *fakeSurface {
	return &fakeSurface{w: w, h: h, colors: 256, cells: map[[2]int]fakeCell{}}
}

func (f *fakeSurface) Size() (int, int) { return f.w, f.h }
func (f *fakeSurface) SetContent(x, y int, ch rune, _ []rune, style tcell.Style) {
	f.cells[[2]int{x, y}] = fakeCell{ch, style}
}
func (f *fakeSurface) Show()       { f.shows++ }
func (f *fakeSurface) Sync()       { f.syncs++ }
func (f *fakeSurface) Clear()      { f.cells = map[[2]int]fakeCell{} }
func (f *fakeSurface) Colors() int { return f.colors }

func TestClearThenRenderIsBlank(t *testing.T) {
	s := newFakeSurface(20, 10)
	pairs := NewPairs(DefaultPairLimit)
	r := NewRegion(Rect{W: 20, H: 10}, Rect{X: 2, Y: 1, W: 10, H: 5}, Options{Reset: ColorDefault})

	r.SetText(0, 0, "dirty", ColorRed, ColorBlue, AttrBold)
	r.ClearBuffer()
	r.Render(s, pairs)
	r.Render(s, pairs)

	for y := 1; y < 6; y++ {
		for x := 2; x < 12; x++ {
			c, ok := s.cells[[2]int{x, y}]
			if !ok {
				t.Fatalf("cell (%d,%d) not written", x, y)
			}
			if c.ch != ' ' || c.style != tcell.StyleDefault {
				t.Errorf("cell (%d,%d) = %q %v, want blank default", x, y, c.ch, c.style)
			}
		}
	}
	if pairs.Len() != 1 {
		t.Errorf("pairs in use = %d, want only the default pair", pairs.Len())
	}
}

func TestRegionGridSize(t *testing.T) {
	parent := Rect{W: 80, H: 24}
	tests := []struct {
		name       string
		border     bool
		cols, rows int
	}{
		{"plain", false, 30, 10},
		{"bordered", true, 28, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegion(parent, Rect{X: 5, Y: 5, W: 30, H: 10}, Options{Border: tt.border})
			if r.Cols() != tt.cols || r.Rows() != tt.rows {
				t.Errorf("grid = %dx%d, want %dx%d", r.Cols(), r.Rows(), tt.cols, tt.rows)
			}
		})
	}
}

func TestRegionPlacement(t *testing.T) {
	parent := Rect{W: 40, H: 20}
	tests := []struct {
		name string
		want Rect
		got  Rect
	}{
		{"fits", Rect{X: 1, Y: 1, W: 10, H: 5}, Rect{X: 1, Y: 1, W: 10, H: 5}},
		{"shifted left", Rect{X: 35, Y: 0, W: 10, H: 5}, Rect{X: 30, Y: 0, W: 10, H: 5}},
		{"shifted up", Rect{X: 0, Y: 18, W: 10, H: 5}, Rect{X: 0, Y: 15, W: 10, H: 5}},
		{"negative origin", Rect{X: -3, Y: -2, W: 10, H: 5}, Rect{X: 0, Y: 0, W: 10, H: 5}},
		{"too wide", Rect{X: 0, Y: 0, W: 41, H: 5}, parent},
		{"larger than parent", Rect{X: 0, Y: 0, W: 100, H: 100}, parent},
		{"zero size", Rect{X: 3, Y: 3}, parent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegion(parent, tt.want, Options{})
			if r.Rect() != tt.got {
				t.Errorf("Rect() = %+v, want %+v", r.Rect(), tt.got)
			}
		})
	}
}

func TestSetTextTruncatesAtEdge(t *testing.T) {
	const w = 12
	r := NewRegion(Rect{W: 40, H: 10}, Rect{W: w, H: 3}, Options{})
	r.SetText(w-2, 0, "abcdef", ColorWhite, ColorDefault, AttrNone)

	for x, want := range map[int]rune{w - 2: 'a', w - 1: 'b'} {
		c, _ := r.Cell(x, 0)
		if c.Glyph != want {
			t.Errorf("cell %d = %q, want %q", x, c.Glyph, want)
		}
	}
	for x := 0; x < w-2; x++ {
		if c, _ := r.Cell(x, 1); c.Glyph != ' ' {
			t.Fatalf("text wrapped into row 1 at %d: %q", x, c.Glyph)
		}
	}
}

func TestOutOfRangeWritesAreDropped(t *testing.T) {
	r := NewRegion(Rect{W: 10, H: 10}, Rect{W: 4, H: 4}, Options{Border: true})
	r.SetCell(-1, 0, 'x', ColorRed, ColorDefault, AttrNone)
	r.SetCell(2, 0, 'x', ColorRed, ColorDefault, AttrNone)
	r.SetCell(0, 3, 'x', ColorRed, ColorDefault, AttrNone)
	r.SetText(0, -1, "oops", ColorRed, ColorDefault, AttrNone)
	if _, ok := r.Cell(2, 0); ok {
		t.Fatal("Cell(2,0) reported in range for a 2-column grid")
	}
	for y := 0; y < r.Rows(); y++ {
		for x := 0; x < r.Cols(); x++ {
			if c, _ := r.Cell(x, y); c.Glyph != ' ' {
				t.Errorf("cell (%d,%d) = %q, want blank", x, y, c.Glyph)
			}
		}
	}
}

func TestBorderRendering(t *testing.T) {
	s := newFakeSurface(10, 10)
	r := NewRegion(Rect{W: 10, H: 10}, Rect{X: 1, Y: 1, W: 5, H: 4}, Options{Border: true})
	r.SetCell(0, 0, 'z', ColorGreen, ColorDefault, AttrNone)
	r.Render(s, NewPairs(8))

	checks := map[[2]int]rune{
		{1, 1}: '+', {5, 1}: '+', {1, 4}: '+', {5, 4}: '+',
		{3, 1}: '-', {3, 4}: '-', {1, 2}: '|', {5, 3}: '|',
		{2, 2}: 'z',
	}
	for pos, want := range checks {
		if got := s.cells[pos].ch; got != want {
			t.Errorf("surface %v = %q, want %q", pos, got, want)
		}
	}
}

func TestPairsSameFrame(t *testing.T) {
	p := NewPairs(16)
	a := p.GetOrCreate(ColorRed, ColorBlack)
	b := p.GetOrCreate(ColorRed, ColorBlack)
	if a != b {
		t.Fatalf("same tuple got %v and %v", a, b)
	}
	if c := p.GetOrCreate(ColorBlack, ColorRed); c == a {
		t.Fatalf("distinct tuple shared id %v", c)
	}
	if d := p.GetOrCreate(ColorDefault, ColorDefault); d.Slot != 0 {
		t.Errorf("default pair slot = %d, want 0", d.Slot)
	}
}

func TestPairsResetIssuesNewID(t *testing.T) {
	p := NewPairs(16)
	before := p.GetOrCreate(ColorRed, ColorBlack)
	p.Reset()
	after := p.GetOrCreate(ColorRed, ColorBlack)
	if before == after {
		t.Fatalf("id %v reused across frames", before)
	}
	if got := p.Style(before); got != tcell.StyleDefault {
		t.Errorf("stale id resolved to %v, want default style", got)
	}
	want := tcell.StyleDefault.Foreground(tcell.PaletteColor(1)).Background(tcell.PaletteColor(0))
	if got := p.Style(after); got != want {
		t.Errorf("Style(after) = %v, want %v", got, want)
	}
}

func TestPairsExhaustionReusesLastSlot(t *testing.T) {
	p := NewPairs(4)
	for fg := Color(0); fg < 50; fg++ {
		id := p.GetOrCreate(fg, ColorBlack)
		if id.Slot >= 4 {
			t.Fatalf("slot %d beyond limit", id.Slot)
		}
	}
	if p.Len() != 4 {
		t.Errorf("Len() = %d, want 4", p.Len())
	}
	id := p.GetOrCreate(ColorWhite, ColorBlue)
	if id.Slot != 3 {
		t.Errorf("full table returned slot %d, want 3", id.Slot)
	}
	want := tcell.StyleDefault.Foreground(tcell.PaletteColor(7)).Background(tcell.PaletteColor(4))
	if got := p.Style(id); got != want {
		t.Errorf("reused slot style = %v, want %v", got, want)
	}
}

func TestAlign(t *testing.T) {
	tests := []struct {
		name string
		a    Anchor
		n    int
		want []Point
	}{
		{"top left", TopLeft, 4, []Point{{0, 0}}},
		{"top center", TopCenter, 4, []Point{{8, 0}}},
		{"top right", TopRight, 4, []Point{{16, 0}}},
		{"bottom left", BottomLeft, 4, []Point{{0, 5}}},
		{"bottom center", BottomCenter, 4, []Point{{8, 5}}},
		{"bottom right", BottomRight, 4, []Point{{16, 5}}},
		{"right", Right, 2, []Point{{19, 2}, {19, 3}}},
		{"left", Left, 2, []Point{{0, 2}, {0, 3}}},
		{"overlong right is clamped", TopRight, 30, []Point{{0, 0}}},
		{"overlong center is clamped", BottomCenter, 30, []Point{{0, 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Align(20, 6, tt.n, tt.a)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("point %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSetAlignedTextVertical(t *testing.T) {
	r := NewRegion(Rect{W: 20, H: 20}, Rect{W: 6, H: 6}, Options{})
	r.SetAlignedText(Right, "ab", ColorWhite, ColorDefault, AttrNone)
	for y, want := range map[int]rune{2: 'a', 3: 'b'} {
		if c, _ := r.Cell(5, y); c.Glyph != want {
			t.Errorf("cell (5,%d) = %q, want %q", y, c.Glyph, want)
		}
	}

	r.ClearBuffer()
	r.SetAlignedText(TopRight, "toolong!", ColorWhite, ColorDefault, AttrNone)
	if c, _ := r.Cell(0, 0); c.Glyph != 't' {
		t.Errorf("overlong text starts with %q, want 't'", c.Glyph)
	}
}

func TestManagerHandles(t *testing.T) {
	m := NewManager(newFakeSurface(40, 20), 0)
	a := m.AddRegion(Rect{W: 10, H: 5}, Options{})
	b := m.AddRegion(Rect{X: 10, W: 10, H: 5}, Options{})
	if a == b {
		t.Fatal("handles collide")
	}
	if m.Region(Handle(99)) != nil {
		t.Error("unknown handle resolved")
	}
	m.MoveRegion(b, Rect{X: 30, Y: 10, W: 20, H: 5})
	if got := m.Region(b).Rect(); got != (Rect{X: 20, Y: 10, W: 20, H: 5}) {
		t.Errorf("moved rect = %+v", got)
	}
}

func TestManagerPairLimitFollowsSurface(t *testing.T) {
	s := newFakeSurface(10, 10)
	s.colors = 8
	m := NewManager(s, 256)
	if m.Pairs().Limit() != 8 {
		t.Errorf("pair limit = %d, want 8", m.Pairs().Limit())
	}
}

func TestManagerClearAllResetsPairs(t *testing.T) {
	m := NewManager(newFakeSurface(20, 10), 0)
	h := m.AddRegion(Rect{W: 5, H: 2}, Options{})
	m.Region(h).SetText(0, 0, "hi", ColorRed, ColorDefault, AttrNone)
	m.DrawAll()
	frame := m.Pairs().Frame()

	m.ClearAll()
	if m.Pairs().Frame() == frame {
		t.Error("ClearAll did not start a new pair frame")
	}
	if c, _ := m.Region(h).Cell(0, 0); c.Glyph != ' ' {
		t.Errorf("ClearAll left %q", c.Glyph)
	}
}

func TestDrawAllRebuildsOnResize(t *testing.T) {
	s := newFakeSurface(40, 20)
	m := NewManager(s, 0)
	h := m.AddRegion(Rect{X: 30, Y: 0, W: 10, H: 5}, Options{})
	m.Region(h).SetText(0, 0, "keep?", ColorRed, ColorDefault, AttrNone)

	if m.DrawAll() {
		t.Fatal("rebuild reported without a resize")
	}
	if s.shows != 1 {
		t.Errorf("Show called %d times, want 1", s.shows)
	}

	s.w, s.h = 20, 10
	if !m.DrawAll() {
		t.Fatal("resize not detected")
	}
	if m.Bounds() != (Rect{W: 20, H: 10}) {
		t.Errorf("Bounds() = %+v", m.Bounds())
	}
	if got := m.Region(h).Rect(); got != (Rect{X: 10, Y: 0, W: 10, H: 5}) {
		t.Errorf("region after rebuild = %+v", got)
	}
	if c, _ := m.Region(h).Cell(0, 0); c.Glyph != ' ' {
		t.Errorf("content survived rebuild: %q", c.Glyph)
	}
	if s.syncs != 1 {
		t.Errorf("Sync called %d times, want 1", s.syncs)
	}
	if m.DrawAll() {
		t.Error("second pass after rebuild reported another rebuild")
	}
}

func TestSimulationScreenRender(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer screen.Fini()
	screen.SetSize(30, 10)

	m := NewManager(screen, 0)
	m.DrawAll()
	h := m.AddRegion(Rect{W: 30, H: 10}, Options{Border: true})
	m.Region(h).SetText(0, 0, "cpu", ColorYellow, ColorDefault, AttrBold)
	m.DrawAll()

	if ch, _, _, _ := screen.GetContent(1, 1); ch != 'c' {
		t.Errorf("screen (1,1) = %q, want 'c'", ch)
	}
	if ch, _, _, _ := screen.GetContent(0, 0); ch != '+' {
		t.Errorf("screen (0,0) = %q, want '+'", ch)
	}
}

type scriptedEvents struct {
	events chan tcell.Event
}

func (s *scriptedEvents) PollEvent() tcell.Event {
	return <-s.events
}

func TestPollerTimeoutAndDelivery(t *testing.T) {
	src := &scriptedEvents{events: make(chan tcell.Event, 1)}
	p := NewPoller(src)

	if ev := p.Poll(10 * time.Millisecond); ev != nil {
		t.Fatalf("Poll returned %v with nothing queued", ev)
	}

	want := tcell.NewEventInterrupt("wake")
	src.events <- want
	if ev := p.Poll(time.Second); ev != tcell.Event(want) {
		t.Fatalf("Poll = %v, want the queued event", ev)
	}

	src.events <- nil
	if ev := p.Poll(time.Second); ev != nil {
		t.Errorf("Poll after finalise = %v, want nil", ev)
	}
}

type endlessEvents struct{}

func (endlessEvents) PollEvent() tcell.Event {
	return tcell.NewEventInterrupt(nil)
}

func TestPollerStopReleasesForwarder(t *testing.T) {
	p := NewPoller(endlessEvents{})
	p.Stop()
	p.Stop()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-p.events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("forwarding goroutine still running after Stop")
		}
	}
}
