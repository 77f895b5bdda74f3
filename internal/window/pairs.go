package window

import "github.com/gdamore/tcell/v2"

// DefaultPairLimit is the usual number of colour pairs a terminal exposes.
const DefaultPairLimit = 256

// PairID names an allocated colour pair. An id is only valid for the frame
// that issued it; after Reset it resolves to the default style.
type PairID struct {
	Slot  int
	Frame uint64
}

type pair struct {
	fg, bg Color
}

// Pairs maps (fg, bg) tuples to a bounded set of slots. Lookup is a linear
// scan and eviction drops the whole table, so the table is expected to be
// reset once per full redraw. Slot 0 is the default pair.
//
// Pairs is not safe for concurrent use.
type Pairs struct {
	entries []pair
	limit   int
	frame   uint64
}

// NewPairs creates an allocator with room for limit slots, including the
// default pair. Limits below 2 are raised to 2.
func NewPairs(limit int) *Pairs {
	if limit < 2 {
		limit = 2
	}
	p := &Pairs{
		entries: make([]pair, 1, limit),
		limit:   limit,
	}
	p.entries[0] = pair{ColorDefault, ColorDefault}
	return p
}

// GetOrCreate returns the slot holding (fg, bg) in the current frame,
// allocating the next free slot when the tuple is new. A full table re-points
// its last slot at the tuple instead of failing.
func (p *Pairs) GetOrCreate(fg, bg Color) PairID {
	want := pair{fg, bg}
	for i, e := range p.entries {
		if e == want {
			return PairID{Slot: i, Frame: p.frame}
		}
	}
	if len(p.entries) < p.limit {
		p.entries = append(p.entries, want)
		return PairID{Slot: len(p.entries) - 1, Frame: p.frame}
	}
	last := p.limit - 1
	p.entries[last] = want
	return PairID{Slot: last, Frame: p.frame}
}

// Reset drops every allocated pair and starts a new frame.
func (p *Pairs) Reset() {
	p.entries = p.entries[:1]
	p.frame++
}

// Len returns the number of slots in use, including the default pair.
func (p *Pairs) Len() int {
	return len(p.entries)
}

// Limit returns the slot capacity.
func (p *Pairs) Limit() int {
	return p.limit
}

// Frame returns the current frame generation.
func (p *Pairs) Frame() uint64 {
	return p.frame
}

// Style resolves id to a tcell style. Stale or unknown ids resolve to
// tcell.StyleDefault.
func (p *Pairs) Style(id PairID) tcell.Style {
	if id.Frame != p.frame || id.Slot < 0 || id.Slot >= len(p.entries) {
		return tcell.StyleDefault
	}
	e := p.entries[id.Slot]
	return tcell.StyleDefault.Foreground(e.fg.tcell()).Background(e.bg.tcell())
}
