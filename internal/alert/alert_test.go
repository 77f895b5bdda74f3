package alert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/luki/tempwatch/internal/prefs"
	"github.com/luki/tempwatch/internal/sensor"
)

type recordingRunner struct {
	events []Event
	err    error
}

func (r *recordingRunner) Run(_ context.Context, ev Event) error {
	r.events = append(r.events, ev)
	return r.err
}

type mockNotification struct {
	calls []string
	err   error
}

func (m *mockNotification) notify(title, message string, _ any) error {
	m.calls = append(m.calls, title+": "+message)
	return m.err
}

func reading(id sensor.ID, temp float64) sensor.Reading {
	return sensor.Reading{ID: id, Chip: "coretemp-isa-0000", Label: "Core " + string(rune('0'+id)), Temp: temp, Crit: 90, HasCrit: true}
}

func TestRisingEdge(t *testing.T) {
	runner := &recordingRunner{}
	e := NewEvaluator(Config{DefaultCommand: "true"}, runner, WithNotifier((&mockNotification{}).notify))
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	steps := []struct {
		temp  float64
		fires bool
	}{
		{80, false},
		{90, true},
		{95, false},
		{89.9, false},
		{91, true},
	}
	for i, step := range steps {
		events := e.Evaluate(ctx, []sensor.Reading{reading(0, step.temp)}, now.Add(time.Duration(i)*time.Second))
		if got := len(events) == 1; got != step.fires {
			t.Errorf("step %d (%.1f): fired=%v, want %v", i, step.temp, got, step.fires)
		}
	}
	if len(runner.events) != 2 {
		t.Errorf("runner ran %d commands, want 2", len(runner.events))
	}
	if !e.Above(0) {
		t.Error("sensor should be above its limit")
	}
}

func TestRepeatAfter(t *testing.T) {
	e := NewEvaluator(Config{RepeatAfter: time.Minute}, nil)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	hot := []sensor.Reading{reading(0, 99)}

	if len(e.Evaluate(ctx, hot, now)) != 1 {
		t.Fatal("first crossing did not fire")
	}
	if len(e.Evaluate(ctx, hot, now.Add(30*time.Second))) != 0 {
		t.Error("re-fired before the repeat interval")
	}
	events := e.Evaluate(ctx, hot, now.Add(61*time.Second))
	if len(events) != 1 || !events[0].Repeat {
		t.Errorf("repeat events = %+v", events)
	}
}

func TestLimitPrecedence(t *testing.T) {
	set := prefs.NewSet()
	r0 := reading(0, 75)
	r1 := reading(1, 75)
	r2 := reading(2, 75)
	set.Put(prefs.Pref{Name: r0.Key(), Crit: 70, Active: true, Command: "own"})
	set.Put(prefs.Pref{Name: r1.Key(), Crit: 10, Active: false})

	runner := &recordingRunner{}
	e := NewEvaluator(Config{DefaultCommand: "fallback"}, runner,
		WithPrefs(set),
		WithThresholds(prefs.Thresholds{100, 100, 60}),
		WithNotifier((&mockNotification{}).notify),
	)
	events := e.Evaluate(context.Background(), []sensor.Reading{r0, r1, r2}, time.Now())

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	if events[0].Crit != 70 || events[0].Command != "own" {
		t.Errorf("pref event = %+v", events[0])
	}
	if events[1].ID != 2 || events[1].Crit != 60 || events[1].Command != "fallback" {
		t.Errorf("legacy event = %+v", events[1])
	}

	tests := []struct {
		r    sensor.Reading
		want float64
		ok   bool
	}{
		{r0, 70, true},
		{r1, 0, false},
		{r2, 60, true},
		{reading(3, 75), 60, true},
	}
	for _, tt := range tests {
		if got, ok := e.Limit(tt.r); got != tt.want || ok != tt.ok {
			t.Errorf("Limit(%s) = %.1f, %v; want %.1f, %v", tt.r.Key(), got, ok, tt.want, tt.ok)
		}
	}
}

func TestNoLimitNeverFires(t *testing.T) {
	e := NewEvaluator(Config{}, nil)
	r := sensor.Reading{ID: 3, Label: "x", Temp: 500}
	if events := e.Evaluate(context.Background(), []sensor.Reading{r}, time.Now()); len(events) != 0 {
		t.Errorf("fired without a limit: %+v", events)
	}
}

func TestNotifications(t *testing.T) {
	mock := &mockNotification{err: errors.New("no dbus")}
	runner := &recordingRunner{err: errors.New("boom")}
	e := NewEvaluator(Config{Notify: true}, runner, WithNotifier(mock.notify))

	events := e.Evaluate(context.Background(), []sensor.Reading{reading(0, 95)}, time.Now())
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	if len(mock.calls) != 1 || !strings.Contains(mock.calls[0], "crit 90.0") {
		t.Errorf("notifications = %v", mock.calls)
	}
	if len(runner.events) != 0 {
		t.Error("runner called without a command")
	}
}

func TestShellRunnerEnvironment(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	r := NewShellRunner(5 * time.Second)
	ev := Event{
		Sensor:  "CPU Core 0",
		Value:   91.3,
		Crit:    90,
		Command: `printf '%s|%s|%s' "$TEMPWATCH_SENSOR" "$TEMPWATCH_VALUE" "$TEMPWATCH_CRIT" > ` + out,
	}
	if err := r.Run(context.Background(), ev); err != nil {
		t.Fatalf("Run: %v", err)
	}
	r.Wait()

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("command output missing: %v", err)
	}
	if string(got) != "CPU Core 0|91.3|90.0" {
		t.Errorf("env = %q", got)
	}
}

func TestShellRunnerTimeout(t *testing.T) {
	r := NewShellRunner(50 * time.Millisecond)
	start := time.Now()
	if err := r.Run(context.Background(), Event{Sensor: "s", Command: "sleep 5"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	r.Wait()
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("command outlived its timeout: %v", elapsed)
	}
}
