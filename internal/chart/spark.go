package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/tempwatch/internal/history"
	"github.com/luki/tempwatch/internal/window"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// cellRamp is the ASCII ramp used for sparklines drawn into regions.
var cellRamp = []rune{'_', '.', ',', '-', '~', '=', '*', '#'}

// Limits are the thresholds a value is judged against.
type Limits struct {
	High, Crit       float64
	HasHigh, HasCrit bool
}

// Level classifies a temperature against its limits.
type Level int

const (
	LevelNormal Level = iota
	LevelWarm
	LevelHigh
	LevelCrit
)

// LevelOf returns the level of v.
func (l Limits) LevelOf(v float64) Level {
	switch {
	case l.HasCrit && v >= l.Crit:
		return LevelCrit
	case l.HasHigh && v >= l.High:
		return LevelHigh
	case l.HasHigh && v >= l.High*0.85:
		return LevelWarm
	default:
		return LevelNormal
	}
}

// Palette indices per level: red, orange, yellow, soft green.
var levelPalette = map[Level]int{
	LevelCrit:   196,
	LevelHigh:   208,
	LevelWarm:   220,
	LevelNormal: 78,
}

// TempColor returns the lipgloss colour for v.
func TempColor(v float64, l Limits) lipgloss.Color {
	return lipgloss.Color(fmt.Sprint(levelPalette[l.LevelOf(v)]))
}

// CellColor returns the region colour for v.
func CellColor(v float64, l Limits) window.Color {
	return window.Color(levelPalette[l.LevelOf(v)])
}

func sparkIndex(v, lo, hi float64) int {
	span := hi - lo
	if span <= 0 {
		span = 1
	}
	norm := math.Max(0, math.Min(1, (v-lo)/span))
	return min(int(norm*7), 7)
}

// DrawSparkline writes the newest width values into row y of r starting at
// column x, right aligned, coloured by level.
func DrawSparkline(r *window.Region, x, y, width int, values []float64, lo, hi float64, l Limits) {
	if width <= 0 {
		return
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	pad := width - len(values)
	for i := 0; i < pad; i++ {
		r.SetCell(x+i, y, ' ', window.ColorDefault, window.ColorDefault, window.AttrNone)
	}
	for i, v := range values {
		attr := window.AttrNone
		if l.LevelOf(v) == LevelCrit {
			attr = window.AttrBold
		}
		r.SetCell(x+pad+i, y, cellRamp[sparkIndex(v, lo, hi)], CellColor(v, l), window.ColorDefault, attr)
	}
}

// RenderSparkline renders a sparkline with minute tick marks on the
// timeline. A subtle pipe is drawn at each minute boundary.
func RenderSparkline(points []history.Point, width int, lo, hi float64, l Limits) string {
	if width <= 0 {
		return ""
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	if len(points) == 0 {
		return dim.Render(strings.Repeat("╌", width))
	}
	if len(points) > width {
		points = points[len(points)-width:]
	}

	var sb strings.Builder
	sb.WriteString(dim.Render(strings.Repeat("╌", width-len(points))))

	tickStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	for i, p := range points {
		if minuteTick(points, i) {
			sb.WriteString(tickStyle.Render("│"))
			continue
		}
		style := lipgloss.NewStyle().Foreground(TempColor(p.Temp, l))
		if l.LevelOf(p.Temp) == LevelCrit {
			style = style.Bold(true)
		}
		sb.WriteString(style.Render(string(sparkBlocks[sparkIndex(p.Temp, lo, hi)])))
	}
	return sb.String()
}

func minuteTick(points []history.Point, i int) bool {
	p := points[i]
	if p.Time.IsZero() {
		return false
	}
	if p.Time.Second() == 0 {
		return true
	}
	return i > 0 && !points[i-1].Time.IsZero() && p.Time.Minute() != points[i-1].Time.Minute()
}

// RenderTimeline renders HH:MM labels under the minute ticks of a sparkline
// of the same width. Labels that would collide are skipped.
func RenderTimeline(points []history.Point, width int) string {
	if len(points) == 0 || width <= 0 {
		return ""
	}
	if len(points) > width {
		points = points[len(points)-width:]
	}
	pad := width - len(points)

	line := []rune(strings.Repeat(" ", width))
	lastEnd := -1
	for i, p := range points {
		if !minuteTick(points, i) {
			continue
		}
		label := p.Time.Format("15:04")
		start := max(pad+i-2, 0)
		end := start + len(label)
		if end > width || start <= lastEnd+1 {
			continue
		}
		copy(line[start:], []rune(label))
		lastEnd = end
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Render(string(line))
}

// RenderTempValue renders the temperature value with color coding.
func RenderTempValue(temp float64, l Limits) string {
	style := lipgloss.NewStyle().Foreground(TempColor(temp, l))
	if l.LevelOf(temp) == LevelCrit {
		style = style.Bold(true)
	}
	return style.Render(fmt.Sprintf("%5.1f°C", temp))
}
