package window

import (
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/luki/tempwatch/internal/errors"
)

// Surface is the display the manager flushes regions to. Every tcell.Screen,
// including tcell.NewSimulationScreen, satisfies it.
type Surface interface {
	Size() (width, height int)
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
	Show()
	Sync()
	Clear()
	Colors() int
}

// Open initialises the controlling terminal. Failure here is fatal to the
// caller; there is no retry.
func Open() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, errors.DisplayInitFailed(err)
	}
	if err := screen.Init(); err != nil {
		return nil, errors.DisplayInitFailed(err)
	}
	screen.SetStyle(tcell.StyleDefault)
	screen.HideCursor()
	screen.Clear()
	return screen, nil
}

// EventSource yields terminal events. PollEvent returns nil once the source
// is finalised.
type EventSource interface {
	PollEvent() tcell.Event
}

// Poller turns a blocking event source into a poll with a deadline. A single
// goroutine forwards events; the render loop stays single threaded and only
// waits inside Poll.
type Poller struct {
	events chan tcell.Event
	done   chan struct{}
	stop   sync.Once
}

// NewPoller starts forwarding events from src.
func NewPoller(src EventSource) *Poller {
	p := &Poller{
		events: make(chan tcell.Event, 64),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(p.events)
		for {
			ev := src.PollEvent()
			if ev == nil {
				return
			}
			select {
			case p.events <- ev:
			case <-p.done:
				return
			}
		}
	}()
	return p
}

// Stop lets the forwarding goroutine exit even when nobody polls any more.
// Buffered events are dropped. A goroutine blocked in PollEvent leaves once
// the source is finalised.
func (p *Poller) Stop() {
	p.stop.Do(func() { close(p.done) })
}

// Poll returns the next event, or nil when timeout passes first or the
// source has been finalised.
func (p *Poller) Poll(timeout time.Duration) tcell.Event {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev, ok := <-p.events:
		if !ok {
			return nil
		}
		return ev
	case <-timer.C:
		return nil
	}
}
