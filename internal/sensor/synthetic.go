package sensor

import (
	"context"
	"math"
)

// Wave describes one synthetic sensor: a sine around Base.
type Wave struct {
	Chip      string
	Label     string
	Base      float64
	Amplitude float64
	Period    int // in reads
	High      float64
	Crit      float64
}

// Synthetic is a deterministic Source for demo mode and tests. Every Read
// advances the waveforms by one step.
type Synthetic struct {
	Waves []Wave
	step  int
}

// DemoWaves is the default demo machine.
var DemoWaves = []Wave{
	{Chip: "demo-coretemp", Label: "Package id 0", Base: 55, Amplitude: 20, Period: 60, High: 80, Crit: 95},
	{Chip: "demo-coretemp", Label: "Core 0", Base: 52, Amplitude: 18, Period: 45, High: 80, Crit: 95},
	{Chip: "demo-nvidia-gpu", Label: "GPU Temp", Base: 60, Amplitude: 15, Period: 90, High: 83, Crit: 90},
	{Chip: "demo-nvme", Label: "Composite", Base: 40, Amplitude: 6, Period: 120, High: 70, Crit: 80},
}

// NewSynthetic creates a source producing waves, or DemoWaves when none
// are given.
func NewSynthetic(waves ...Wave) *Synthetic {
	if len(waves) == 0 {
		waves = DemoWaves
	}
	return &Synthetic{Waves: waves}
}

// Read returns one reading per wave.
func (s *Synthetic) Read(ctx context.Context) ([]Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	readings := make([]Reading, 0, len(s.Waves))
	for _, w := range s.Waves {
		temp := w.Base
		if w.Period > 0 {
			temp += w.Amplitude * math.Sin(2*math.Pi*float64(s.step)/float64(w.Period))
		}
		readings = append(readings, Reading{
			Chip:    w.Chip,
			Adapter: "synthetic",
			Label:   w.Label,
			Temp:    math.Round(temp*10) / 10,
			High:    w.High,
			Crit:    w.Crit,
			HasHigh: w.High > 0,
			HasCrit: w.Crit > 0,
		})
	}
	s.step++
	return readings, nil
}
