// Package alert decides when a sensor is over its critical temperature and
// reacts: it runs the sensor's command, sends a desktop notification and
// reports the event to the caller.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/luki/tempwatch/internal/logger"
	"github.com/luki/tempwatch/internal/prefs"
	"github.com/luki/tempwatch/internal/sensor"
)

// Event is one alert firing.
type Event struct {
	ID      sensor.ID
	Sensor  string
	Value   float64
	Crit    float64
	Command string
	Time    time.Time
	// Repeat is set when the sensor was already over its limit and the
	// repeat interval elapsed.
	Repeat bool
}

func (e Event) String() string {
	return fmt.Sprintf("%s at %.1f°C (crit %.1f°C)", e.Sensor, e.Value, e.Crit)
}

// Runner executes an event's command without blocking the caller.
type Runner interface {
	Run(ctx context.Context, ev Event) error
}

// Notifier sends a desktop notification. beeep.Notify satisfies it.
type Notifier func(title, message string, icon any) error

// Config tunes an Evaluator.
type Config struct {
	// RepeatAfter re-fires a sensor that stays over its limit. Zero fires
	// once per crossing.
	RepeatAfter time.Duration
	// DefaultCommand runs for sensors without a command of their own.
	DefaultCommand string
	// Notify enables desktop notifications.
	Notify bool
}

type sensorState struct {
	above     bool
	lastFired time.Time
}

// Evaluator tracks per-sensor alert state. It is not safe for concurrent
// use.
type Evaluator struct {
	cfg        Config
	prefs      *prefs.Set
	thresholds prefs.Thresholds
	runner     Runner
	notify     Notifier
	state      map[sensor.ID]*sensorState
	log        *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithPrefs looks up thresholds, commands and active flags in set.
func WithPrefs(set *prefs.Set) Option {
	return func(e *Evaluator) { e.prefs = set }
}

// WithThresholds uses a legacy threshold list for sensors without prefs.
func WithThresholds(t prefs.Thresholds) Option {
	return func(e *Evaluator) { e.thresholds = t }
}

// WithNotifier replaces beeep.Notify.
func WithNotifier(n Notifier) Option {
	return func(e *Evaluator) { e.notify = n }
}

// NewEvaluator creates an evaluator that starts commands through runner.
// A nil runner never runs commands.
func NewEvaluator(cfg Config, runner Runner, opts ...Option) *Evaluator {
	e := &Evaluator{
		cfg:    cfg,
		runner: runner,
		notify: beeep.Notify,
		state:  make(map[sensor.ID]*sensorState),
		log:    logger.ComponentLogger("alert"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetPrefs swaps the preference set, e.g. after the user edited it.
func (e *Evaluator) SetPrefs(set *prefs.Set) {
	e.prefs = set
}

// Limit returns the critical temperature r is judged against, and false
// when the sensor has none or its alerts are switched off.
func (e *Evaluator) Limit(r sensor.Reading) (float64, bool) {
	crit, _, ok := e.limit(r)
	return crit, ok
}

// limit resolves the critical temperature and command for r. Preferences
// win over the legacy list, which wins over the sensor's own crit.
func (e *Evaluator) limit(r sensor.Reading) (crit float64, command string, ok bool) {
	command = e.cfg.DefaultCommand
	if e.prefs != nil {
		if p, found := e.prefs.Get(r.Key()); found {
			if !p.Active {
				return 0, "", false
			}
			if p.Command != "" {
				command = p.Command
			}
			return p.Crit, command, true
		}
	}
	if v, found := e.thresholds.For(int(r.ID)); found {
		return v, command, true
	}
	if r.HasCrit {
		return r.Crit, command, true
	}
	return 0, "", false
}

// Evaluate checks readings taken at now and returns the events fired. A
// sensor fires when it reaches its limit, then stays quiet until it drops
// below again or RepeatAfter elapses.
func (e *Evaluator) Evaluate(ctx context.Context, readings []sensor.Reading, now time.Time) []Event {
	var events []Event
	for _, r := range readings {
		crit, command, ok := e.limit(r)
		st := e.state[r.ID]
		if st == nil {
			st = &sensorState{}
			e.state[r.ID] = st
		}
		if !ok || r.Temp < crit {
			st.above = false
			continue
		}

		repeat := st.above
		if st.above && (e.cfg.RepeatAfter <= 0 || now.Sub(st.lastFired) < e.cfg.RepeatAfter) {
			continue
		}
		st.above = true
		st.lastFired = now

		ev := Event{
			ID:      r.ID,
			Sensor:  r.Name(),
			Value:   r.Temp,
			Crit:    crit,
			Command: command,
			Time:    now,
			Repeat:  repeat,
		}
		e.fire(ctx, ev)
		events = append(events, ev)
	}
	return events
}

func (e *Evaluator) fire(ctx context.Context, ev Event) {
	e.log.Warn("critical temperature reached",
		"sensor", ev.Sensor, "value", ev.Value, "crit", ev.Crit, "repeat", ev.Repeat)

	if ev.Command != "" && e.runner != nil {
		if err := e.runner.Run(ctx, ev); err != nil {
			e.log.Error("alert command failed to start", "sensor", ev.Sensor, "error", err)
		}
	}
	if e.cfg.Notify && e.notify != nil {
		if err := e.notify("tempwatch", ev.String(), ""); err != nil {
			e.log.Debug("notification failed", "error", err)
		}
	}
}

// Above reports whether the sensor is currently over its limit.
func (e *Evaluator) Above(id sensor.ID) bool {
	st := e.state[id]
	return st != nil && st.above
}
