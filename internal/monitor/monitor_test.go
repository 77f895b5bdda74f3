package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/luki/tempwatch/internal/alert"
	"github.com/luki/tempwatch/internal/prefs"
	"github.com/luki/tempwatch/internal/sensor"
	"github.com/luki/tempwatch/internal/store"
)

type fakeScreen struct {
	w, h  int
	cells map[[2]int]rune
	shows int
	beeps int
}

func newFakeScreen(w, h int) *fakeScreen {
	return &fakeScreen{w: w, h: h, cells: make(map[[2]int]rune)}
}

func (s *fakeScreen) Size() (int, int) { return s.w, s.h }
func (s *fakeScreen) SetContent(x, y int, r rune, _ []rune, _ tcell.Style) {
	s.cells[[2]int{x, y}] = r
}
func (s *fakeScreen) Show()       { s.shows++ }
func (s *fakeScreen) Sync()       {}
func (s *fakeScreen) Clear()      { s.cells = make(map[[2]int]rune) }
func (s *fakeScreen) Colors() int { return 256 }
func (s *fakeScreen) Beep() error { s.beeps++; return nil }

func (s *fakeScreen) line(y int) string {
	var sb strings.Builder
	for x := 0; x < s.w; x++ {
		r, ok := s.cells[[2]int{x, y}]
		if !ok {
			r = ' '
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (s *fakeScreen) text() string {
	var lines []string
	for y := 0; y < s.h; y++ {
		lines = append(lines, s.line(y))
	}
	return strings.Join(lines, "\n")
}

type failingSource struct{}

func (failingSource) Read(context.Context) ([]sensor.Reading, error) {
	return nil, errors.New("sensors exploded")
}

type recordingRunner struct{ events []alert.Event }

func (r *recordingRunner) Run(_ context.Context, ev alert.Event) error {
	r.events = append(r.events, ev)
	return nil
}

type countingStore struct {
	store.Discard
	writes int
}

func (s *countingStore) Write(readings []sensor.Reading, t time.Time) error {
	s.writes++
	return nil
}

func runeKey(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func key(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone)
}

func newTestMonitor(t *testing.T, screen *fakeScreen, src sensor.Source, with ...Option) *Monitor {
	t.Helper()
	opts := DefaultOptions()
	opts.PrefsPath = filepath.Join(t.TempDir(), "prefs")
	m := New(screen, src, opts, with...)
	base := time.Date(2026, 2, 21, 14, 0, 0, 0, time.Local)
	m.start = base
	clock := base
	m.now = func() time.Time { return clock }
	return m
}

func TestPollAndDraw(t *testing.T) {
	screen := newFakeScreen(100, 30)
	st := &countingStore{}
	m := newTestMonitor(t, screen, sensor.NewSynthetic(), WithStore(st))

	m.tick(context.Background())

	if len(m.rows) != len(sensor.DemoWaves) {
		t.Fatalf("rows = %d, want %d", len(m.rows), len(sensor.DemoWaves))
	}
	if m.graph.NumSeries() != len(sensor.DemoWaves) {
		t.Errorf("series = %d", m.graph.NumSeries())
	}
	if m.prefs.Len() != len(sensor.DemoWaves) {
		t.Errorf("prefs = %d, want one per sensor", m.prefs.Len())
	}
	if st.writes != 1 {
		t.Errorf("store writes = %d, want 1", st.writes)
	}
	if screen.shows == 0 {
		t.Error("frame was never shown")
	}

	out := screen.text()
	for _, want := range []string{"tempwatch", "NAME", "CRIT", "AVG/LO/PK", "COMMAND", "Package id 0", "Composite", "4 sensors"} {
		if !strings.Contains(out, want) {
			t.Errorf("screen lacks %q", want)
		}
	}
	// First demo reading of the package sensor is its base, 55 °C.
	if !strings.Contains(out, " 55.0  55.0  55.0") {
		t.Error("avg/lo/pk stats missing for the package sensor")
	}
	t.Logf("\n%s", out)
}

func TestStatsFollowHistory(t *testing.T) {
	screen := newFakeScreen(100, 30)
	src := sensor.NewSynthetic(sensor.Wave{Chip: "demo-x", Label: "Die", Base: 50, Amplitude: 10, Period: 4})
	m := newTestMonitor(t, screen, src)
	clock := m.now()
	m.now = func() time.Time { return clock }

	// Period 4 yields 50, 60, 50, 40.
	for i := 0; i < 4; i++ {
		m.tick(context.Background())
		clock = clock.Add(m.opts.Interval)
	}
	if !strings.Contains(screen.text(), " 50.0  40.0  60.0") {
		t.Errorf("stats after a full period not shown:\n%s", screen.text())
	}
}

func TestPollOnlyWhenDue(t *testing.T) {
	screen := newFakeScreen(80, 24)
	src := sensor.NewSynthetic()
	m := newTestMonitor(t, screen, src)
	clock := m.now()
	m.now = func() time.Time { return clock }

	m.tick(context.Background())
	m.tick(context.Background())
	if got := m.graph.Series(0).Len(); got != 1 {
		t.Fatalf("points after two frames inside one interval = %d, want 1", got)
	}

	clock = clock.Add(m.opts.Interval)
	m.tick(context.Background())
	if got := m.graph.Series(0).Len(); got != 2 {
		t.Errorf("points after interval = %d, want 2", got)
	}

	m.handleKey(runeKey('p'))
	clock = clock.Add(10 * m.opts.Interval)
	m.tick(context.Background())
	if got := m.graph.Series(0).Len(); got != 2 {
		t.Errorf("paused monitor polled: %d points", got)
	}
	if !strings.Contains(screen.text(), "PAUSED") {
		t.Error("paused state not shown")
	}
}

func TestReadFailureShowsStatus(t *testing.T) {
	screen := newFakeScreen(80, 24)
	m := newTestMonitor(t, screen, failingSource{})
	m.tick(context.Background())

	if !strings.Contains(screen.line(23), "sensors exploded") {
		t.Errorf("status line = %q", screen.line(23))
	}
	if !strings.Contains(screen.text(), "waiting for sensor data") {
		t.Error("empty table placeholder missing")
	}
}

func TestKeysEditPrefs(t *testing.T) {
	screen := newFakeScreen(100, 30)
	m := newTestMonitor(t, screen, sensor.NewSynthetic())
	m.tick(context.Background())

	m.handleKey(key(tcell.KeyDown))
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}
	name := m.rows[1].Key()
	before, _ := m.prefs.Get(name)

	m.handleKey(runeKey('+'))
	m.handleKey(runeKey('+'))
	m.handleKey(runeKey('-'))
	p, _ := m.prefs.Get(name)
	if p.Crit != before.Crit+1 {
		t.Errorf("crit = %.1f, want %.1f", p.Crit, before.Crit+1)
	}

	m.handleKey(key(tcell.KeyRight))
	p.Color = prefs.MaxColor
	m.prefs.Put(p)
	m.handleKey(runeKey('+'))
	if p, _ = m.prefs.Get(name); p.Color != 0 {
		t.Errorf("colour code = %d, want wrap to 0", p.Color)
	}
	m.handleKey(runeKey('-'))
	if p, _ = m.prefs.Get(name); p.Color != prefs.MaxColor {
		t.Errorf("colour code = %d, want wrap to %d", p.Color, prefs.MaxColor)
	}

	m.handleKey(runeKey('a'))
	if p, _ = m.prefs.Get(name); p.Active {
		t.Error("sensor still active after toggle")
	}
	if s := m.graph.Series(m.series[m.rows[1].ID]); s == nil {
		t.Fatal("series missing")
	} else if _, on := s.Threshold(); on {
		t.Error("inactive sensor keeps its chart threshold")
	}

	m.handleKey(key(tcell.KeyEnter))
	if !m.editing {
		t.Fatal("Enter did not start editing")
	}
	for _, r := range "logger hot!" {
		m.handleKey(runeKey(r))
	}
	m.handleKey(key(tcell.KeyBackspace2))
	m.frame()
	if !strings.Contains(screen.line(29), "command for "+name+": logger hot_") {
		t.Errorf("status line = %q", screen.line(29))
	}
	m.handleKey(key(tcell.KeyEnter))
	if p, _ = m.prefs.Get(name); p.Command != "logger hot" {
		t.Errorf("command = %q", p.Command)
	}
	if !m.modified {
		t.Error("edits not marked as modified")
	}
}

func TestSavePrefs(t *testing.T) {
	screen := newFakeScreen(100, 30)
	m := newTestMonitor(t, screen, sensor.NewSynthetic())
	m.tick(context.Background())
	m.handleKey(runeKey('+'))
	m.handleKey(runeKey('s'))

	if m.modified {
		t.Error("still modified after save")
	}
	set, format, err := prefs.Load(m.opts.PrefsPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if format != prefs.FormatText || set.Len() != len(sensor.DemoWaves) {
		t.Errorf("loaded %d prefs in %v", set.Len(), format)
	}
	p, _ := set.Get(m.rows[0].Key())
	if p.Crit != sensor.DemoWaves[0].Crit+1 {
		t.Errorf("saved crit = %.1f", p.Crit)
	}
}

func TestAlertBeepsAndRunsCommand(t *testing.T) {
	screen := newFakeScreen(100, 30)
	set := prefs.NewSet()
	set.Put(prefs.Pref{Name: "demo-hot/Die", Crit: 50, Active: true, Command: "echo hot"})

	runner := &recordingRunner{}
	eval := alert.NewEvaluator(alert.Config{}, runner)
	src := sensor.NewSynthetic(sensor.Wave{Chip: "demo-hot", Label: "Die", Base: 70})
	m := newTestMonitor(t, screen, src, WithPrefs(set), WithAlerts(eval))

	m.tick(context.Background())

	if screen.beeps != 1 {
		t.Errorf("beeps = %d, want 1", screen.beeps)
	}
	if len(runner.events) != 1 || runner.events[0].Command != "echo hot" {
		t.Errorf("runner events = %+v", runner.events)
	}
	if !strings.Contains(screen.line(29), "ALERT") {
		t.Errorf("status line = %q", screen.line(29))
	}

	m.now = func() time.Time { return m.start.Add(time.Minute) }
	m.tick(context.Background())
	if screen.beeps != 1 {
		t.Errorf("still-hot sensor beeped again: %d", screen.beeps)
	}
}

func TestResizeRelayout(t *testing.T) {
	screen := newFakeScreen(100, 30)
	m := newTestMonitor(t, screen, sensor.NewSynthetic())
	m.tick(context.Background())

	screen.w, screen.h = 60, 20
	m.frame()

	if got := m.mgr.Region(m.chartRegion).Rect().W; got != 60 {
		t.Errorf("chart width after resize = %d, want 60", got)
	}
	if got := m.mgr.Region(m.statusRegion).Rect().Y; got != 19 {
		t.Errorf("status row after resize = %d, want 19", got)
	}
	if plot := m.graph.Plot(); plot.X+plot.W > 58 {
		t.Errorf("plot %+v exceeds the new chart grid", plot)
	}
	if !strings.Contains(screen.text(), "NAME") {
		t.Error("table not redrawn after rebuild")
	}
}

func TestTableLayout(t *testing.T) {
	wide := tableLayout(120)
	if wide[colTrend].w == 0 || wide[colStats].w == 0 {
		t.Error("trend or stats column dropped on a wide table")
	}
	if end := wide[colCommand].x + wide[colCommand].w; end != 120 {
		t.Errorf("columns end at %d, want 120", end)
	}

	medium := tableLayout(85)
	if medium[colStats].w != 0 || medium[colTrend].w == 0 {
		t.Errorf("stats %d trend %d at 85 columns, want stats dropped before trend", medium[colStats].w, medium[colTrend].w)
	}

	narrow := tableLayout(60)
	if narrow[colTrend].w != 0 || narrow[colStats].w != 0 {
		t.Error("trend or stats column kept on a narrow table")
	}
	if narrow[colName].w < 8 {
		t.Errorf("name column = %d", narrow[colName].w)
	}
}

type keySource struct {
	events chan tcell.Event
}

func (s *keySource) PollEvent() tcell.Event {
	return <-s.events
}

func TestRunQuits(t *testing.T) {
	screen := newFakeScreen(80, 24)
	m := newTestMonitor(t, screen, sensor.NewSynthetic())

	src := &keySource{events: make(chan tcell.Event, 2)}
	src.events <- runeKey('q')

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Run(ctx, src); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ctx.Err() != nil {
		t.Error("Run ended by timeout instead of q")
	}
	src.events <- nil
}
