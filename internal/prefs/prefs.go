// Package prefs persists per-sensor preferences: critical temperature,
// colour code, active flag and alert command. Two on-disk formats exist, a
// tab separated text file and a fixed binary layout; Load detects which.
package prefs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/luki/tempwatch/internal/window"
)

// MaxColor is the highest colour code. Codes pack a foreground and a
// background palette index: fg = code % 8, bg = 7 - code / 8.
const MaxColor = 63

// Pref holds the settings of one sensor.
type Pref struct {
	Name    string
	Color   int
	Crit    float64
	Active  bool
	Command string
}

// FG returns the foreground colour of the pref's colour code.
func (p Pref) FG() window.Color {
	return window.Color(clampColor(p.Color) % 8)
}

// BG returns the background colour of the pref's colour code.
func (p Pref) BG() window.Color {
	return window.Color(7 - clampColor(p.Color)/8)
}

func clampColor(c int) int {
	return min(max(c, 0), MaxColor)
}

// DefaultColor picks a readable colour for the i-th sensor: a non-black
// foreground on a black background.
func DefaultColor(i int) int {
	return 56 + 1 + i%7
}

// Set is an ordered collection of prefs keyed by name.
type Set struct {
	prefs []Pref
	index map[string]int
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{index: make(map[string]int)}
}

// Len returns the number of prefs.
func (s *Set) Len() int {
	return len(s.prefs)
}

// Get returns the pref for name.
func (s *Set) Get(name string) (Pref, bool) {
	i, ok := s.index[name]
	if !ok {
		return Pref{}, false
	}
	return s.prefs[i], true
}

// Put inserts or replaces a pref, keeping its original position.
func (s *Set) Put(p Pref) {
	p.Color = clampColor(p.Color)
	if i, ok := s.index[p.Name]; ok {
		s.prefs[i] = p
		return
	}
	s.index[p.Name] = len(s.prefs)
	s.prefs = append(s.prefs, p)
}

// Ensure returns the pref for name, creating an active one with crit and
// the next default colour when it is missing.
func (s *Set) Ensure(name string, crit float64) Pref {
	if p, ok := s.Get(name); ok {
		return p
	}
	p := Pref{Name: name, Color: DefaultColor(len(s.prefs)), Crit: crit, Active: true}
	s.Put(p)
	return p
}

// All returns a copy of the prefs in insertion order.
func (s *Set) All() []Pref {
	out := make([]Pref, len(s.prefs))
	copy(out, s.prefs)
	return out
}

// Names returns the pref names sorted alphabetically.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.prefs))
	for _, p := range s.prefs {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Format selects an on-disk encoding.
type Format int

const (
	FormatText Format = iota
	FormatBinary
)

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	default:
		return "text"
	}
}

// ParseFormat parses "text" or "binary".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "txt":
		return FormatText, nil
	case "binary", "bin":
		return FormatBinary, nil
	}
	return FormatText, fmt.Errorf("unknown prefs format %q", s)
}
