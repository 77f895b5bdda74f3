package window

import (
	"log/slog"

	"github.com/luki/tempwatch/internal/logger"
)

// Handle identifies a region owned by a Manager.
type Handle int

// Manager is the render context: the surface, the regions drawn on it and
// the colour pairs they share. It is not safe for concurrent use; exactly
// one DrawAll runs at a time.
type Manager struct {
	surface Surface
	regions []*Region
	pairs   *Pairs
	width   int
	height  int
	drawing bool
	log     *slog.Logger
}

// NewManager wraps s. pairLimit is lowered to the colour count of s when
// the surface reports fewer colours.
func NewManager(s Surface, pairLimit int) *Manager {
	if pairLimit <= 0 {
		pairLimit = DefaultPairLimit
	}
	if n := s.Colors(); n > 1 && n < pairLimit {
		pairLimit = n
	}
	w, h := s.Size()
	return &Manager{
		surface: s,
		pairs:   NewPairs(pairLimit),
		width:   w,
		height:  h,
		log:     logger.ComponentLogger("window"),
	}
}

// Bounds returns the surface geometry observed at the last draw.
func (m *Manager) Bounds() Rect {
	return Rect{W: m.width, H: m.height}
}

// AddRegion places a new region against the current bounds.
func (m *Manager) AddRegion(want Rect, opts Options) Handle {
	m.regions = append(m.regions, NewRegion(m.Bounds(), want, opts))
	return Handle(len(m.regions) - 1)
}

// Region returns the region for h, or nil for an unknown handle.
func (m *Manager) Region(h Handle) *Region {
	if h < 0 || int(h) >= len(m.regions) {
		return nil
	}
	return m.regions[h]
}

// MoveRegion requests new geometry for h.
func (m *Manager) MoveRegion(h Handle, want Rect) {
	if r := m.Region(h); r != nil {
		r.Move(m.Bounds(), want)
	}
}

// ClearAll clears every region and starts a new colour-pair frame.
func (m *Manager) ClearAll() {
	m.pairs.Reset()
	for _, r := range m.regions {
		r.ClearBuffer()
	}
}

// ClearOne clears a single region.
func (m *Manager) ClearOne(h Handle) {
	if r := m.Region(h); r != nil {
		r.ClearBuffer()
	}
}

// DrawAll renders every region in handle order and flushes the surface. If
// the surface geometry changed since the last pass, every region is rebuilt
// against the new bounds and DrawAll returns true; the rebuilt regions are
// blank and the caller must redraw them.
func (m *Manager) DrawAll() bool {
	if m.drawing {
		return false
	}
	m.drawing = true
	defer func() { m.drawing = false }()

	for _, r := range m.regions {
		r.Render(m.surface, m.pairs)
	}
	m.surface.Show()

	w, h := m.surface.Size()
	if w == m.width && h == m.height {
		return false
	}
	m.log.Debug("surface resized, rebuilding",
		"from_w", m.width, "from_h", m.height, "to_w", w, "to_h", h, "regions", len(m.regions))
	m.width, m.height = w, h
	m.surface.Clear()
	for _, r := range m.regions {
		r.Resize(m.Bounds())
	}
	m.pairs.Reset()
	m.surface.Sync()
	return true
}

// Pairs exposes the colour-pair allocator.
func (m *Manager) Pairs() *Pairs {
	return m.pairs
}
