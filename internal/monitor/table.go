package monitor

import (
	"fmt"

	"github.com/mattn/go-runewidth"

	"github.com/luki/tempwatch/internal/chart"
	"github.com/luki/tempwatch/internal/sensor"
	"github.com/luki/tempwatch/internal/window"
)

// Table columns.
const (
	colNum = iota
	colName
	colCrit
	colCurrent
	colColour
	colStats
	colTrend
	colCommand
	numColumns
)

var columnTitles = [numColumns]string{"NUM", "NAME", "CRIT", "CURRENT", "COLOUR", "AVG/LO/PK", "TREND", "COMMAND"}

// editColumn maps the editable cursor onto a table column.
var editColumn = [numEditable]int{editCrit: colCrit, editColour: colColour, editCommand: colCommand}

type span struct{ x, w int }

// tableLayout splits cols into column spans. On narrow screens the stats
// column goes first, then the trend column, then the name column shrinks.
func tableLayout(cols int) [numColumns]span {
	widths := [numColumns]int{
		colNum: 4, colName: 24, colCrit: 7, colCurrent: 9, colColour: 8, colStats: 18, colTrend: 14, colCommand: 12,
	}
	fixed := func() int {
		n := 0
		for _, w := range widths {
			n += w
		}
		return n
	}
	if fixed() > cols {
		widths[colStats] = 0
	}
	if fixed() > cols {
		widths[colTrend] = 0
	}
	if over := fixed() - cols; over > 0 {
		widths[colName] = max(widths[colName]-over, 8)
	}
	widths[colCommand] = max(cols-(fixed()-widths[colCommand]), 0)

	var out [numColumns]span
	x := 0
	for i, w := range widths {
		out[i] = span{x: x, w: w}
		x += w
	}
	return out
}

func (m *Monitor) drawTable() {
	r := m.mgr.Region(m.tableRegion)
	spans := tableLayout(r.Cols())

	for i, title := range columnTitles {
		if spans[i].w == 0 {
			continue
		}
		r.SetText(spans[i].x, 0, fit(title, spans[i].w-1), window.ColorWhite, window.ColorDefault, window.AttrBold|window.AttrUnderline)
	}

	if len(m.rows) == 0 {
		r.SetText(1, 1, "waiting for sensor data...", window.ColorWhite, window.ColorDefault, window.AttrDim)
		return
	}

	visible := max(r.VisibleRows()-1, 0)
	if m.cursor < m.top {
		m.top = m.cursor
	}
	if visible > 0 && m.cursor >= m.top+visible {
		m.top = m.cursor - visible + 1
	}
	m.top = max(0, min(m.top, max(len(m.rows)-visible, 0)))

	for i := 0; i < visible && m.top+i < len(m.rows); i++ {
		idx := m.top + i
		m.drawRow(r, spans, 1+i, m.rows[idx], idx == m.cursor)
	}
}

func (m *Monitor) drawRow(r *window.Region, spans [numColumns]span, y int, rd sensor.Reading, selected bool) {
	p, _ := m.prefs.Get(rd.Key())
	limits := chart.Limits{Crit: p.Crit, HasCrit: p.Active, High: rd.High, HasHigh: rd.HasHigh}

	base := window.AttrNone
	if selected {
		base = window.AttrBold
	}
	cellAttr := func(col int) window.Attr {
		if selected && editColumn[m.column] == col {
			return base | window.AttrReverse
		}
		return base
	}
	text := func(col int, s string, fg, bg window.Color, attr window.Attr) {
		if sp := spans[col]; sp.w > 0 {
			r.SetText(sp.x, y, fit(s, sp.w-1), fg, bg, attr)
		}
	}

	text(colNum, fmt.Sprintf("%3d", int(rd.ID)), window.ColorWhite, window.ColorDefault, base)

	nameAttr := base
	if !p.Active {
		nameAttr |= window.AttrDim
	}
	text(colName, rd.Name(), window.ColorWhite, window.ColorDefault, nameAttr)

	crit := "off"
	if p.Active {
		crit = fmt.Sprintf("%5.1f", p.Crit)
	}
	text(colCrit, crit, window.ColorWhite, window.ColorDefault, cellAttr(colCrit))

	curAttr := base
	curBG := window.ColorDefault
	if m.eval != nil && m.eval.Above(rd.ID) {
		curAttr |= window.AttrBlink
		curBG = window.ColorRed
	}
	text(colCurrent, fmt.Sprintf("%5.1f°C", rd.Temp), chart.CellColor(rd.Temp, limits), curBG, curAttr)

	text(colColour, fmt.Sprintf(" %2d  ", p.Color), p.FG(), p.BG(), cellAttr(colColour))

	buf := m.hist.Get(rd.ID)
	if buf != nil && buf.Len() > 0 {
		text(colStats, fmt.Sprintf("%5.1f %5.1f %5.1f", buf.Avg(), buf.Min, buf.Peak), window.ColorWhite, window.ColorDefault, base|window.AttrDim)
	}

	if sp := spans[colTrend]; sp.w > 1 {
		if buf != nil {
			hi := buf.Peak
			if p.Active {
				hi = max(hi, p.Crit)
			}
			chart.DrawSparkline(r, sp.x, y, sp.w-1, buf.LastN(sp.w-1), buf.Min, hi, limits)
		}
	}

	cmd := p.Command
	fg := window.ColorWhite
	attr := cellAttr(colCommand)
	if cmd == "" {
		cmd = "-"
		attr |= window.AttrDim
	}
	text(colCommand, cmd, fg, window.ColorDefault, attr)
}

// fit truncates s to w display cells.
func fit(s string, w int) string {
	if w <= 0 {
		return ""
	}
	return runewidth.Truncate(s, w, "…")
}
