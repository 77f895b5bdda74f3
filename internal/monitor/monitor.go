// Package monitor implements the live temperature monitor: a single
// threaded loop that polls sensors on an interval, plots them on a chart
// region above an editable sensor table, and fires alerts.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/luki/tempwatch/internal/alert"
	"github.com/luki/tempwatch/internal/chart"
	"github.com/luki/tempwatch/internal/history"
	"github.com/luki/tempwatch/internal/logger"
	"github.com/luki/tempwatch/internal/prefs"
	"github.com/luki/tempwatch/internal/sensor"
	"github.com/luki/tempwatch/internal/store"
	"github.com/luki/tempwatch/internal/window"
)

const statusTTL = 5 * time.Second

// Screen is the display the monitor draws on. tcell.Screen satisfies it.
type Screen interface {
	window.Surface
	Beep() error
}

// Options tune the loop and the chart.
type Options struct {
	Interval     time.Duration
	FrameTimeout time.Duration
	HistorySize  int
	PairLimit    int
	Chart        chart.Options
	PrefsPath    string
	PrefsFormat  prefs.Format
}

// DefaultOptions matches the built-in configuration.
func DefaultOptions() Options {
	return Options{
		Interval:     5 * time.Second,
		FrameTimeout: 100 * time.Millisecond,
		HistorySize:  600,
		PairLimit:    window.DefaultPairLimit,
		Chart:        chart.DefaultOptions(),
	}
}

// Option wires a collaborator into the monitor.
type Option func(*Monitor)

// WithPrefs edits and saves set instead of an empty one.
func WithPrefs(set *prefs.Set) Option {
	return func(m *Monitor) { m.prefs = set }
}

// WithAlerts evaluates every poll with eval.
func WithAlerts(eval *alert.Evaluator) Option {
	return func(m *Monitor) { m.eval = eval }
}

// WithStore logs every poll to st.
func WithStore(st store.Store) Option {
	return func(m *Monitor) { m.store = st }
}

// Monitor is the live view. It is not safe for concurrent use.
type Monitor struct {
	opts   Options
	screen Screen
	source sensor.Source
	mgr    *window.Manager
	graph  *chart.Chart

	chartRegion  window.Handle
	tableRegion  window.Handle
	statusRegion window.Handle
	layoutRows   int

	registry *sensor.Registry
	hist     *history.Store[sensor.ID]
	series   map[sensor.ID]int
	prefs    *prefs.Set
	eval     *alert.Evaluator
	store    store.Store

	rows     []sensor.Reading // latest poll, by ID
	cursor   int
	column   int
	top      int
	editing  bool
	edit     []rune
	paused   bool
	modified bool
	quit     bool
	gotData  bool

	status      string
	statusAlert bool
	statusAt    time.Time

	start    time.Time
	lastPoll time.Time
	nextPoll time.Time
	now      func() time.Time
	log      *slog.Logger
}

// New creates a monitor drawing on screen and reading from src.
func New(screen Screen, src sensor.Source, opts Options, with ...Option) *Monitor {
	def := DefaultOptions()
	if opts.Interval <= 0 {
		opts.Interval = def.Interval
	}
	if opts.FrameTimeout <= 0 {
		opts.FrameTimeout = def.FrameTimeout
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = def.HistorySize
	}

	m := &Monitor{
		opts:     opts,
		screen:   screen,
		source:   src,
		mgr:      window.NewManager(screen, opts.PairLimit),
		graph:    chart.New(opts.Chart, chart.Range{}),
		registry: sensor.NewRegistry(),
		hist:     history.NewStore[sensor.ID](opts.HistorySize),
		series:   make(map[sensor.ID]int),
		now:      time.Now,
		log:      logger.ComponentLogger("monitor"),
	}
	for _, w := range with {
		w(m)
	}
	if m.prefs == nil {
		m.prefs = prefs.NewSet()
	}
	if m.store == nil {
		m.store = store.Discard{}
	}
	if m.eval != nil {
		m.eval.SetPrefs(m.prefs)
	}

	m.chartRegion = m.mgr.AddRegion(window.Rect{}, window.Options{Reset: window.ColorDefault, Border: true})
	m.tableRegion = m.mgr.AddRegion(window.Rect{}, window.Options{Reset: window.ColorDefault, Border: true})
	m.statusRegion = m.mgr.AddRegion(window.Rect{}, window.Options{Reset: window.ColorDefault})
	m.start = m.now()
	m.layout()
	return m
}

// Run drives the loop until the user quits or ctx is done. events is
// usually the same tcell.Screen passed to New.
func (m *Monitor) Run(ctx context.Context, events window.EventSource) error {
	poller := window.NewPoller(events)
	defer poller.Stop()
	m.log.Info("monitor started", "interval", m.opts.Interval, "frame_timeout", m.opts.FrameTimeout)

	for !m.quit && ctx.Err() == nil {
		m.tick(ctx)
		if ev := poller.Poll(m.opts.FrameTimeout); ev != nil {
			m.handleEvent(ev)
		}
	}

	m.log.Info("monitor stopped", "sensors", m.hist.Len(), "seen", m.registry.Len(), "unsaved", m.modified)
	return nil
}

// tick polls when due and draws one frame.
func (m *Monitor) tick(ctx context.Context) {
	now := m.now()
	if !m.paused && !now.Before(m.nextPoll) {
		m.poll(ctx, now)
		m.nextPoll = now.Add(m.opts.Interval)
	}
	m.frame()
}

func (m *Monitor) poll(ctx context.Context, now time.Time) {
	readings, err := m.source.Read(ctx)
	if err != nil {
		m.log.Warn("sensor read failed", "error", err)
		m.setStatus(now, fmt.Sprintf("read failed: %v", err), true)
		return
	}

	m.registry.Stamp(readings, now)
	sort.SliceStable(readings, func(i, j int) bool { return readings[i].ID < readings[j].ID })
	m.rows = readings
	m.lastPoll = now
	m.cursor = min(m.cursor, max(len(m.rows)-1, 0))

	x := now.Sub(m.start).Seconds()
	for _, r := range readings {
		p := m.prefs.Ensure(r.Key(), defaultCrit(r))
		m.hist.Record(r.ID, r.Temp, now)
		m.graph.AppendData(m.seriesFor(r.ID, p), chart.Point{X: x, Y: r.Temp})
	}
	m.gotData = len(readings) > 0

	if m.eval != nil {
		events := m.eval.Evaluate(ctx, readings, now)
		if len(events) > 0 {
			m.screen.Beep()
			msg := "ALERT: " + events[0].String()
			if len(events) > 1 {
				msg += fmt.Sprintf(" (+%d more)", len(events)-1)
			}
			m.setStatus(now, msg, true)
		}
	}

	if err := m.store.Write(readings, now); err != nil {
		m.log.Error("store write failed", "error", err)
		m.setStatus(now, fmt.Sprintf("store: %v", err), true)
	}
}

// defaultCrit is the initial critical temperature of a new sensor.
func defaultCrit(r sensor.Reading) float64 {
	switch {
	case r.HasCrit:
		return r.Crit
	case r.HasHigh:
		return r.High
	default:
		return 80
	}
}

// seriesFor returns the chart series of id, creating it on first sight, and
// applies p's colour and threshold to it.
func (m *Monitor) seriesFor(id sensor.ID, p prefs.Pref) int {
	idx, ok := m.series[id]
	if !ok {
		idx = m.graph.InitDataset('*', p.FG(), window.ColorDefault, window.AttrNone)
		m.series[id] = idx
	}
	m.applyPref(idx, p)
	return idx
}

func (m *Monitor) applyPref(idx int, p prefs.Pref) {
	m.graph.ChangeDataset(idx, '*', p.FG(), window.ColorDefault, window.AttrNone)
	m.graph.SetThreshold(idx, p.Crit, p.Active)
}

// layout places the chart above the table and the status line at the
// bottom. The table grows with the number of sensors up to half the screen.
func (m *Monitor) layout() {
	b := m.mgr.Bounds()
	tableH := min(max(len(m.rows)+3, 4), max(b.H/2, 4))
	chartH := max(b.H-tableH-1, 3)

	m.mgr.MoveRegion(m.chartRegion, window.Rect{W: b.W, H: chartH})
	m.mgr.MoveRegion(m.tableRegion, window.Rect{Y: chartH, W: b.W, H: tableH})
	m.mgr.MoveRegion(m.statusRegion, window.Rect{Y: b.H - 1, W: b.W, H: 1})

	// Row 0 of the chart region holds the title line.
	cr := m.mgr.Region(m.chartRegion)
	m.graph.Resize(cr.Cols(), max(cr.VisibleRows()-1, 0))
	plot := m.graph.Plot()
	plot.Y = 1
	m.graph.SetPlot(plot)

	m.layoutRows = len(m.rows)
	m.log.Debug("layout", "width", b.W, "height", b.H, "chart_h", chartH, "table_h", tableH)
}

// frame redraws every region and flushes. A resize detected by the flush
// triggers a new layout and an immediate second pass.
func (m *Monitor) frame() {
	if len(m.rows) != m.layoutRows {
		m.layout()
	}
	if m.gotData {
		m.graph.AutoRecalcSize()
		m.gotData = false
	}
	m.draw()
	if m.mgr.DrawAll() {
		m.layout()
		m.draw()
		m.mgr.DrawAll()
	}
}

func (m *Monitor) draw() {
	m.mgr.ClearAll()
	m.drawChart()
	m.drawTable()
	m.drawStatus()
}

func (m *Monitor) drawChart() {
	r := m.mgr.Region(m.chartRegion)
	m.graph.Draw(r)

	r.SetAlignedText(window.TopLeft, " tempwatch  °C / s", window.ColorCyan, window.ColorDefault, window.AttrBold)

	info := "up " + fmtDuration(m.now().Sub(m.start))
	if !m.lastPoll.IsZero() {
		info += " | " + m.lastPoll.Format("15:04:05")
	}
	if m.paused {
		info += " | PAUSED"
	}
	attr := window.AttrNone
	if m.paused {
		attr = window.AttrBold
	}
	r.SetAlignedText(window.TopRight, info+" ", window.ColorWhite, window.ColorDefault, attr)
}

func (m *Monitor) drawStatus() {
	r := m.mgr.Region(m.statusRegion)
	switch {
	case m.editing:
		name := ""
		if p, ok := m.selectedPref(); ok {
			name = p.Name
		}
		r.SetText(0, 0, fmt.Sprintf("command for %s: %s_", name, string(m.edit)),
			window.ColorYellow, window.ColorDefault, window.AttrBold)
		return
	case m.status != "" && m.now().Sub(m.statusAt) < statusTTL:
		fg := window.ColorGreen
		if m.statusAlert {
			fg = window.ColorRed
		}
		r.SetText(0, 0, m.status, fg, window.ColorDefault, window.AttrBold)
	default:
		r.SetText(0, 0, "q quit  arrows move  +/- adjust  enter edit  a active  p pause  s save",
			window.ColorWhite, window.ColorDefault, window.AttrDim)
	}

	right := fmt.Sprintf("%d sensors", len(m.rows))
	if m.modified {
		right += " *"
	}
	r.SetAlignedText(window.TopRight, right, window.ColorWhite, window.ColorDefault, window.AttrNone)
}

func (m *Monitor) setStatus(now time.Time, msg string, isAlert bool) {
	m.status = msg
	m.statusAlert = isAlert
	m.statusAt = now
}

func (m *Monitor) selected() (sensor.Reading, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return sensor.Reading{}, false
	}
	return m.rows[m.cursor], true
}

func (m *Monitor) selectedPref() (prefs.Pref, bool) {
	r, ok := m.selected()
	if !ok {
		return prefs.Pref{}, false
	}
	return m.prefs.Get(r.Key())
}

// updatePref stores p and pushes its colour and threshold to the chart.
func (m *Monitor) updatePref(p prefs.Pref) {
	m.prefs.Put(p)
	m.modified = true
	if r, ok := m.selected(); ok {
		if idx, ok := m.series[r.ID]; ok {
			p, _ = m.prefs.Get(p.Name)
			m.applyPref(idx, p)
		}
	}
}

func (m *Monitor) handleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		m.handleKey(ev)
	case *tcell.EventResize:
		w, h := ev.Size()
		m.log.Debug("resize event", "width", w, "height", h)
	}
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	mins := d / time.Minute
	d -= mins * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, mins, s)
	}
	return fmt.Sprintf("%dm%02ds", mins, s)
}
