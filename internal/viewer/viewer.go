// Package viewer implements the history browser: a bubbletea program that
// scrubs through one logged day at a time with a sparkline per sensor.
package viewer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/luki/tempwatch/internal/chart"
	twerrors "github.com/luki/tempwatch/internal/errors"
	"github.com/luki/tempwatch/internal/history"
	"github.com/luki/tempwatch/internal/logger"
	"github.com/luki/tempwatch/internal/prefs"
	"github.com/luki/tempwatch/internal/sensor"
	"github.com/luki/tempwatch/internal/store"
)

// Run launches the viewer over the days held by st. Critical temperatures
// from set, when non-nil, take precedence over the logged ones.
func Run(st store.Store, set *prefs.Set) error {
	days, err := st.ListDays()
	if err != nil {
		return twerrors.E(twerrors.Op("viewer.Run"), twerrors.KindIO, "cannot list days", err)
	}
	if len(days) == 0 {
		return twerrors.E(twerrors.Op("viewer.Run"), twerrors.KindNotFound, "no history data recorded yet")
	}

	p := tea.NewProgram(
		newModel(st, set, days),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err = p.Run()
	return err
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorAccent   = lipgloss.Color("214")
	colorBorder   = lipgloss.Color("62")
	colorChipName = lipgloss.Color("147")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFaint    = lipgloss.Color("237")
	colorFooterBg = lipgloss.Color("235")
	colorWarn     = lipgloss.Color("220")
	colorCrit     = lipgloss.Color("196")
)

// ── Day data ─────────────────────────────────────────────────────────

type sample struct {
	time time.Time
	temp float64
}

type track struct {
	key      string
	chip     string
	label    string
	samples  []sample
	limits   chart.Limits
	min, max float64
	avg      float64
	alerts   int // rising crossings of the critical limit
}

// dayData is one logged day grouped per sensor.
type dayData struct {
	count  int
	slots  []time.Time // unique timestamps, ascending
	tracks []*track    // sorted by key
}

func buildDay(readings []store.StoredReading, set *prefs.Set) dayData {
	slotSet := make(map[int64]time.Time)
	byKey := make(map[string]*track)

	for _, r := range readings {
		key := r.Key()
		tr, ok := byKey[key]
		if !ok {
			tr = &track{key: key, chip: r.Chip, label: r.Label}
			byKey[key] = tr
		}
		slotSet[r.Time.Unix()] = r.Time
		tr.samples = append(tr.samples, sample{time: r.Time, temp: r.Temp})
		if r.High > 0 {
			tr.limits.High, tr.limits.HasHigh = r.High, true
		}
		if r.Crit > 0 {
			tr.limits.Crit, tr.limits.HasCrit = r.Crit, true
		}
	}

	d := dayData{count: len(readings)}
	for _, t := range slotSet {
		d.slots = append(d.slots, t)
	}
	sort.Slice(d.slots, func(i, j int) bool { return d.slots[i].Before(d.slots[j]) })

	for _, tr := range byKey {
		if set != nil {
			if p, ok := set.Get(tr.key); ok && p.Crit > 0 {
				tr.limits.Crit, tr.limits.HasCrit = p.Crit, true
			}
		}
		sort.SliceStable(tr.samples, func(i, j int) bool { return tr.samples[i].time.Before(tr.samples[j].time) })
		tr.summarize()
		d.tracks = append(d.tracks, tr)
	}
	sort.Slice(d.tracks, func(i, j int) bool { return d.tracks[i].key < d.tracks[j].key })
	return d
}

func (tr *track) summarize() {
	if len(tr.samples) == 0 {
		return
	}
	tr.min, tr.max = tr.samples[0].temp, tr.samples[0].temp
	sum := 0.0
	above := false
	for _, s := range tr.samples {
		tr.min = min(tr.min, s.temp)
		tr.max = max(tr.max, s.temp)
		sum += s.temp
		hot := tr.limits.LevelOf(s.temp) == chart.LevelCrit
		if hot && !above {
			tr.alerts++
		}
		above = hot
	}
	tr.avg = sum / float64(len(tr.samples))
}

// scale returns the sparkline range: a 5° margin around the data, widened
// to include the limits.
func (tr *track) scale() (lo, hi float64) {
	lo = max(0, tr.min-5)
	hi = tr.max + 5
	if tr.limits.HasCrit && tr.limits.Crit >= hi {
		hi = tr.limits.Crit + 5
	}
	if tr.limits.HasHigh && tr.limits.High >= hi {
		hi = tr.limits.High + 5
	}
	return lo, hi
}

// ── Model ────────────────────────────────────────────────────────────

type model struct {
	src    store.Store
	prefs  *prefs.Set
	days   []string // newest first
	dayIdx int
	day    dayData
	cursor int // index into day.slots
	scroll int
	width  int
	height int
	err    error
}

func newModel(src store.Store, set *prefs.Set, days []string) model {
	m := model{src: src, prefs: set, days: days}
	m.loadDay()
	return m
}

func (m *model) loadDay() {
	log := logger.ComponentLogger("viewer")
	day := m.days[m.dayIdx]
	readings, err := m.src.LoadDay(day)
	if err != nil {
		log.Warn("failed to load day", "day", day, "error", err)
		m.err = err
		m.day = dayData{}
		return
	}
	m.err = nil
	m.day = buildDay(readings, m.prefs)
	m.cursor = max(len(m.day.slots)-1, 0)
	m.scroll = 0
	log.Debug("loaded day", "day", day, "readings", m.day.count, "sensors", len(m.day.tracks))
}

func (m *model) moveCursor(delta int) {
	m.cursor = max(0, min(m.cursor+delta, len(m.day.slots)-1))
}

// ── Init / Update ────────────────────────────────────────────────────

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "left", "h":
			m.moveCursor(-1)
		case "right", "l":
			m.moveCursor(1)
		case "shift+left", "H":
			m.moveCursor(-60)
		case "shift+right", "L":
			m.moveCursor(60)
		case "home", "g":
			m.cursor = 0
		case "end", "G":
			m.moveCursor(len(m.day.slots))
		case "[":
			if m.dayIdx < len(m.days)-1 {
				m.dayIdx++
				m.loadDay()
			}
		case "]":
			if m.dayIdx > 0 {
				m.dayIdx--
				m.loadDay()
			}
		case "up", "k":
			m.scroll = max(m.scroll-1, 0)
		case "down", "j":
			m.scroll++
		}

	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.scroll = max(m.scroll-1, 0)
		case tea.MouseButtonWheelDown:
			m.scroll++
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

// ── View ─────────────────────────────────────────────────────────────

func (m model) View() string {
	if m.width == 0 {
		return "  Loading..."
	}

	width := max(m.width-2, 40)
	sections := []string{m.renderTitle(width)}

	if m.err != nil {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("ERROR: %v", m.err)))
	}

	if len(m.day.slots) == 0 {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(2, 0).
			Align(lipgloss.Center).
			Width(width).
			Render("No data for this day."))
	} else {
		sections = append(sections, m.renderCursorInfo(width))
		sections = append(sections, m.renderPanels(width)...)
	}

	sections = append(sections, m.renderFooter(width))

	lines := strings.Split(lipgloss.JoinVertical(lipgloss.Left, sections...), "\n")
	visible := max(m.height, 5)
	scroll := min(m.scroll, max(len(lines)-visible, 0))
	end := min(scroll+visible, len(lines))
	return strings.Join(lines[scroll:end], "\n")
}

func (m model) renderTitle(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("TEMPWATCH HISTORY")

	right := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render(m.days[m.dayIdx]) +
		lipgloss.NewStyle().Foreground(colorDim).Render(fmt.Sprintf("  [ %d/%d ]", m.dayIdx+1, len(m.days)))

	if n := len(m.day.slots); n > 0 {
		right += lipgloss.NewStyle().
			Foreground(colorDim).
			Render(fmt.Sprintf("  %s - %s  (%d readings, %d sensors)",
				m.day.slots[0].Format("15:04:05"), m.day.slots[n-1].Format("15:04:05"),
				m.day.count, len(m.day.tracks)))
	}

	gap := max(width-lipgloss.Width(logo)-lipgloss.Width(right)-4, 1)

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + strings.Repeat(" ", gap) + right)
}

func (m model) renderCursorInfo(width int) string {
	if m.cursor >= len(m.day.slots) {
		return ""
	}

	ts := lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true).
		Render(m.day.slots[m.cursor].Format("15:04:05"))
	pos := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("  %d/%d", m.cursor+1, len(m.day.slots)))

	return lipgloss.NewStyle().
		Padding(0, 1).
		Render("  " + ts + pos + "  " + m.renderScrubber(max(width-30, 10)))
}

// renderScrubber draws the day as a bar with the cursor as a diamond and a
// tick at every hour boundary.
func (m model) renderScrubber(width int) string {
	n := len(m.day.slots)
	if n == 0 || width <= 0 {
		return ""
	}

	pos := 0
	if n > 1 {
		pos = min(m.cursor*(width-1)/(n-1), width-1)
	}

	dimS := lipgloss.NewStyle().Foreground(colorFaint)
	curS := lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	tickS := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	var sb strings.Builder
	for i := 0; i < width; i++ {
		if i == pos {
			sb.WriteString(curS.Render("◆"))
			continue
		}
		slot := 0
		if n > 1 && width > 1 {
			slot = i * (n - 1) / (width - 1)
		}
		if slot > 0 && m.day.slots[slot].Hour() != m.day.slots[slot-1].Hour() {
			sb.WriteString(tickS.Render("│"))
			continue
		}
		sb.WriteString(dimS.Render("─"))
	}
	return sb.String()
}

const (
	labelWidth = 16
	valueWidth = 8
)

func (m model) renderPanels(totalWidth int) []string {
	if m.cursor >= len(m.day.slots) {
		return nil
	}

	inner := max(totalWidth-4, 30)
	sparkWidth := max(min(inner-60, 140), 15)

	var chips []string
	groups := make(map[string][]*track)
	for _, tr := range m.day.tracks {
		if _, ok := groups[tr.chip]; !ok {
			chips = append(chips, tr.chip)
		}
		groups[tr.chip] = append(groups[tr.chip], tr)
	}

	var panels []string
	for _, chip := range chips {
		rows := []string{
			lipgloss.NewStyle().Bold(true).Foreground(colorChipName).Render(sensor.FriendlyName(chip)) +
				"  " + lipgloss.NewStyle().Foreground(colorDim).Render(chip),
			m.renderHeader(sparkWidth),
			lipgloss.NewStyle().Foreground(colorFaint).Render(strings.Repeat("─", inner)),
		}
		for _, tr := range groups[chip] {
			rows = append(rows, m.renderTrack(tr, sparkWidth)...)
		}

		panels = append(panels, lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1).
			Width(totalWidth).
			Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
	}
	return panels
}

func (m model) renderHeader(sparkWidth int) string {
	head := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	return head.Width(labelWidth).Render("sensor") + " " +
		head.Width(valueWidth).Align(lipgloss.Right).Render("value") + "  " +
		lipgloss.NewStyle().Foreground(colorFaint).Render(strings.Repeat(" ", max(sparkWidth/2-3, 0))+"history")
}

func (m model) renderTrack(tr *track, sparkWidth int) []string {
	if len(tr.samples) == 0 {
		return nil
	}
	at := m.day.slots[m.cursor]
	window := sparkWindow(tr.samples, m.cursor, sparkWidth, m.day.slots)
	lo, hi := tr.scale()

	label := lipgloss.NewStyle().
		Foreground(colorLabel).
		Bold(true).
		Width(labelWidth).
		Render(truncate(tr.label, labelWidth))
	value := lipgloss.NewStyle().
		Width(valueWidth).
		Align(lipgloss.Right).
		Render(chart.RenderTempValue(tempAt(tr.samples, at), tr.limits))

	frame := lipgloss.NewStyle().Foreground(colorBorder)
	spark := frame.Render("▕") + chart.RenderSparkline(window, sparkWidth, lo, hi, tr.limits) + frame.Render("▏")

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	stats := dimS.Render("avg") + valS.Render(fmt.Sprintf("%5.1f", tr.avg)) +
		dimS.Render(" lo") + valS.Render(fmt.Sprintf("%5.1f", tr.min)) +
		dimS.Render(" pk") + valS.Render(fmt.Sprintf("%5.1f", tr.max))

	if tr.limits.HasHigh {
		stats += " " + lipgloss.NewStyle().Foreground(colorWarn).Render(fmt.Sprintf("H:%.0f°", tr.limits.High))
	}
	if tr.limits.HasCrit {
		stats += " " + lipgloss.NewStyle().Foreground(colorCrit).Render(fmt.Sprintf("C:%.0f°", tr.limits.Crit))
	}
	if tr.alerts > 0 {
		stats += " " + lipgloss.NewStyle().Foreground(colorCrit).Bold(true).Render(fmt.Sprintf("▲%d", tr.alerts))
	}

	rows := []string{label + " " + value + " " + spark + " " + stats}
	if timeline := chart.RenderTimeline(window, sparkWidth); strings.TrimSpace(timeline) != "" {
		rows = append(rows, strings.Repeat(" ", labelWidth+valueWidth+3)+timeline)
	}
	return rows
}

func (m model) renderFooter(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	keyS := lipgloss.NewStyle().Foreground(colorLabel)

	var sb strings.Builder
	for i, k := range [][2]string{
		{"q", "quit"}, {"h/l", "scrub"}, {"H/L", "skip 60"}, {"home/end", "jump"}, {"[/]", "day"}, {"j/k", "scroll"},
	} {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(dimS.Render(k[0]) + keyS.Render(":"+k[1]))
	}

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(sb.String())
}

// ── Helpers ──────────────────────────────────────────────────────────

// tempAt returns the sample nearest to t. samples must be sorted.
func tempAt(samples []sample, t time.Time) float64 {
	best := samples[0].temp
	bestDiff := absDuration(samples[0].time.Sub(t))
	for _, s := range samples[1:] {
		diff := absDuration(s.time.Sub(t))
		if diff < bestDiff {
			best, bestDiff = s.temp, diff
		} else if s.time.After(t) {
			break
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// sparkWindow returns the samples on the width slots ending at the cursor.
// Slots where the sensor has no sample are skipped.
func sparkWindow(samples []sample, cursor, width int, slots []time.Time) []history.Point {
	if len(samples) == 0 || len(slots) == 0 {
		return nil
	}

	bySlot := make(map[int64]float64, len(samples))
	for _, s := range samples {
		bySlot[s.time.Unix()] = s.temp
	}

	var out []history.Point
	for i := max(cursor-width+1, 0); i <= cursor && i < len(slots); i++ {
		if temp, ok := bySlot[slots[i].Unix()]; ok {
			out = append(out, history.Point{Temp: temp, Time: slots[i]})
		}
	}
	return out
}

func truncate(s string, w int) string {
	return runewidth.Truncate(s, w, "…")
}
