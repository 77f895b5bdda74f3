// Package window is the character-cell rendering core: regions holding cell
// grids, a frame-scoped colour-pair allocator, and a manager that flushes
// everything to a terminal surface and rebuilds on resize.
package window

import "github.com/gdamore/tcell/v2"

// Color is a palette index (0..255) or ColorDefault.
type Color int16

// ColorDefault leaves the terminal's own colour in place.
const ColorDefault Color = -1

// The eight base colours, in curses order.
const (
	ColorBlack Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
)

func (c Color) tcell() tcell.Color {
	if c < 0 {
		return tcell.ColorDefault
	}
	return tcell.PaletteColor(int(c) & 0xff)
}

// Attr is a bitmask of display attributes.
type Attr uint8

const (
	AttrBold Attr = 1 << iota
	AttrUnderline
	AttrReverse
	AttrDim
	AttrBlink
)

// AttrNone is the plain attribute set.
const AttrNone Attr = 0

func (a Attr) mask() tcell.AttrMask {
	m := tcell.AttrNone
	if a&AttrBold != 0 {
		m |= tcell.AttrBold
	}
	if a&AttrUnderline != 0 {
		m |= tcell.AttrUnderline
	}
	if a&AttrReverse != 0 {
		m |= tcell.AttrReverse
	}
	if a&AttrDim != 0 {
		m |= tcell.AttrDim
	}
	if a&AttrBlink != 0 {
		m |= tcell.AttrBlink
	}
	return m
}

// Cell is one character position of a region grid.
type Cell struct {
	Glyph rune
	FG    Color
	BG    Color
	Attr  Attr
}

// Rect is a rectangle in cell coordinates; X/Y is the top-left corner.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}
