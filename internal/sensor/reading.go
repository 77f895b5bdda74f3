// Package sensor discovers hardware temperature sensors. It combines
// lm-sensors (JSON with a text fallback), a direct sysfs hwmon scan,
// nvidia-smi and smartctl/drivetemp into one list of readings.
package sensor

import (
	"context"
	"sync"
	"time"
)

// ID is a stable per-process sensor number, assigned in discovery order.
type ID int

// Reading represents a single temperature reading from a sensor.
type Reading struct {
	ID      ID
	Chip    string  // e.g. "coretemp-isa-0000"
	Adapter string  // e.g. "ISA adapter"
	Label   string  // e.g. "Core 0"
	Temp    float64 // current temperature in Celsius
	High    float64 // high threshold (0 if not available)
	Crit    float64 // critical threshold (0 if not available)
	HasHigh bool
	HasCrit bool
	Time    time.Time
}

// Key returns a unique identifier for this sensor.
func (r Reading) Key() string {
	return r.Chip + "/" + r.Label
}

// Name is the display name: component and label.
func (r Reading) Name() string {
	if r.Chip == "" {
		return r.Label
	}
	return FriendlyName(r.Chip) + " " + r.Label
}

// Source produces the current readings. Implementations must return
// promptly once ctx is done.
type Source interface {
	Read(ctx context.Context) ([]Reading, error)
}

// Registry hands out IDs by sensor key. A sensor keeps its ID when it
// disappears and comes back.
type Registry struct {
	mu   sync.Mutex
	ids  map[string]ID
	keys []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ids: make(map[string]ID)}
}

// Stamp assigns IDs and the sample time to readings in place.
func (g *Registry) Stamp(readings []Reading, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i := range readings {
		key := readings[i].Key()
		id, ok := g.ids[key]
		if !ok {
			id = ID(len(g.keys))
			g.ids[key] = id
			g.keys = append(g.keys, key)
		}
		readings[i].ID = id
		readings[i].Time = now
	}
}

// Len returns the number of sensors seen so far.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.keys)
}

// dedupe drops readings whose key was already seen, keeping the first.
func dedupe(readings []Reading) []Reading {
	seen := make(map[string]bool, len(readings))
	out := readings[:0]
	for _, r := range readings {
		if seen[r.Key()] {
			continue
		}
		seen[r.Key()] = true
		out = append(out, r)
	}
	return out
}
