package prefs

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/luki/tempwatch/internal/errors"
)

// Thresholds is the legacy critical temperature list: one value per
// sensor, in discovery order, comma separated.
type Thresholds []float64

// ParseThresholds parses "60,70.5,80". Whitespace around values and a
// trailing separator are ignored.
func ParseThresholds(s string) (Thresholds, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	out := make(Thresholds, 0, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("threshold %d: %w", i+1, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// LoadThresholds reads a legacy threshold file.
func LoadThresholds(path string) (Thresholds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.E(errors.Op("prefs.LoadThresholds"), errors.KindIO, path, err)
	}
	t, err := ParseThresholds(string(data))
	if err != nil {
		return nil, errors.PrefsCorrupt(path, err.Error())
	}
	return t, nil
}

// For returns the threshold of the i-th sensor. Sensors past the end of
// the list fall back to the lowest threshold.
func (t Thresholds) For(i int) (float64, bool) {
	if len(t) == 0 {
		return 0, false
	}
	if i >= 0 && i < len(t) {
		return t[i], true
	}
	low := t[0]
	for _, v := range t[1:] {
		low = min(low, v)
	}
	return low, true
}
