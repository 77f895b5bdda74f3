package monitor

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/luki/tempwatch/internal/prefs"
)

// Editable table columns, left to right.
const (
	editCrit = iota
	editColour
	editCommand
	numEditable
)

func (m *Monitor) handleKey(ev *tcell.EventKey) {
	if m.editing {
		m.handleEditKey(ev)
		return
	}

	switch ev.Key() {
	case tcell.KeyCtrlC, tcell.KeyEscape:
		m.quit = true
		return
	case tcell.KeyUp:
		m.moveCursor(-1)
		return
	case tcell.KeyDown:
		m.moveCursor(1)
		return
	case tcell.KeyLeft:
		m.moveColumn(-1)
		return
	case tcell.KeyRight:
		m.moveColumn(1)
		return
	case tcell.KeyEnter:
		m.startEdit()
		return
	case tcell.KeyRune:
	default:
		return
	}

	switch ev.Rune() {
	case 'q':
		m.quit = true
	case 'k':
		m.moveCursor(-1)
	case 'j':
		m.moveCursor(1)
	case 'h':
		m.moveColumn(-1)
	case 'l':
		m.moveColumn(1)
	case '+', '=':
		m.adjust(1)
	case '-', '_':
		m.adjust(-1)
	case 'a':
		m.toggleActive()
	case 'p', ' ':
		m.paused = !m.paused
		m.log.Info("pause toggled", "paused", m.paused)
		if !m.paused {
			m.nextPoll = m.now()
		}
	case 's':
		m.save()
	}
}

func (m *Monitor) moveCursor(delta int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor = max(0, min(m.cursor+delta, len(m.rows)-1))
}

func (m *Monitor) moveColumn(delta int) {
	m.column = (m.column + delta + numEditable) % numEditable
}

// adjust steps the critical temperature by one degree or the colour code by
// one, wrapping through all codes.
func (m *Monitor) adjust(delta int) {
	p, ok := m.selectedPref()
	if !ok {
		return
	}
	switch m.column {
	case editCrit:
		p.Crit = max(p.Crit+float64(delta), 0)
	case editColour:
		p.Color = (p.Color + delta + prefs.MaxColor + 1) % (prefs.MaxColor + 1)
	default:
		return
	}
	m.updatePref(p)
}

func (m *Monitor) toggleActive() {
	p, ok := m.selectedPref()
	if !ok {
		return
	}
	p.Active = !p.Active
	m.updatePref(p)
	state := "off"
	if p.Active {
		state = "on"
	}
	m.setStatus(m.now(), fmt.Sprintf("alerts %s for %s", state, p.Name), false)
}

func (m *Monitor) startEdit() {
	p, ok := m.selectedPref()
	if !ok {
		return
	}
	m.column = editCommand
	m.editing = true
	m.edit = []rune(p.Command)
}

func (m *Monitor) handleEditKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEnter:
		if p, ok := m.selectedPref(); ok {
			p.Command = string(m.edit)
			m.updatePref(p)
			m.setStatus(m.now(), "command set for "+p.Name, false)
		}
		m.editing = false
	case tcell.KeyEscape, tcell.KeyCtrlC:
		m.editing = false
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(m.edit) > 0 {
			m.edit = m.edit[:len(m.edit)-1]
		}
	case tcell.KeyCtrlU:
		m.edit = m.edit[:0]
	case tcell.KeyRune:
		m.edit = append(m.edit, ev.Rune())
	}
}

func (m *Monitor) save() {
	now := m.now()
	if m.opts.PrefsPath == "" {
		m.setStatus(now, "no preferences file configured", true)
		return
	}
	if err := prefs.Save(m.opts.PrefsPath, m.prefs, m.opts.PrefsFormat); err != nil {
		m.log.Error("saving prefs failed", "path", m.opts.PrefsPath, "error", err)
		m.setStatus(now, fmt.Sprintf("save failed: %v", err), true)
		return
	}
	m.modified = false
	m.log.Info("prefs saved", "path", m.opts.PrefsPath, "sensors", m.prefs.Len(), "format", m.opts.PrefsFormat)
	m.setStatus(now, fmt.Sprintf("saved %d sensors to %s", m.prefs.Len(), m.opts.PrefsPath), false)
}
