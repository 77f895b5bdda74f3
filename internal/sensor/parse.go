package sensor

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ParseSensorsJSON parses `sensors -j` output. Chips and labels come out
// sorted so that discovery order, and therefore IDs, are stable.
func ParseSensorsJSON(out []byte) ([]Reading, error) {
	var data map[string]json.RawMessage
	if err := json.Unmarshal(out, &data); err != nil {
		return nil, fmt.Errorf("decode sensors json: %w", err)
	}

	chipNames := make([]string, 0, len(data))
	for k := range data {
		chipNames = append(chipNames, k)
	}
	sort.Strings(chipNames)

	var readings []Reading
	for _, chipName := range chipNames {
		var chip map[string]json.RawMessage
		if err := json.Unmarshal(data[chipName], &chip); err != nil {
			continue
		}

		adapter := ""
		if raw, ok := chip["Adapter"]; ok {
			_ = json.Unmarshal(raw, &adapter)
		}

		labels := make([]string, 0, len(chip))
		for k := range chip {
			if k != "Adapter" {
				labels = append(labels, k)
			}
		}
		sort.Strings(labels)

		for _, label := range labels {
			var fields map[string]float64
			if err := json.Unmarshal(chip[label], &fields); err != nil {
				continue
			}
			if r, ok := readingFromFields(chipName, adapter, label, fields); ok {
				readings = append(readings, r)
			}
		}
	}
	return readings, nil
}

func readingFromFields(chip, adapter, label string, fields map[string]float64) (Reading, bool) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r := Reading{Chip: chip, Adapter: adapter, Label: label}
	found := false
	for _, k := range keys {
		v := fields[k]
		switch {
		case !strings.HasPrefix(k, "temp"):
		case strings.HasSuffix(k, "_input") && !found:
			r.Temp = v
			found = true
		case strings.HasSuffix(k, "_max") && plausible(v):
			r.High, r.HasHigh = v, true
		case strings.HasSuffix(k, "_crit") && plausible(v):
			r.Crit, r.HasCrit = v, true
		}
	}
	if !found || r.Temp < -200 {
		return Reading{}, false
	}
	return r, true
}

// plausible filters sentinel thresholds such as 65261.8 reported by some
// NVMe controllers.
func plausible(v float64) bool {
	return v > 0 && v < 1000
}

var (
	adapterRe  = regexp.MustCompile(`^Adapter:\s+(.+)$`)
	namedValRe = regexp.MustCompile(`(\w+)\s*=\s*([+-]?\d+\.?\d*)°C`)
	tempValRe  = regexp.MustCompile(`([+-]?\d+\.?\d*)°C`)
)

// ParseSensorsText parses the human-readable `sensors` output.
func ParseSensorsText(output string) []Reading {
	var readings []Reading
	var currentChip, currentAdapter string

	lines := strings.Split(output, "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if m := adapterRe.FindStringSubmatch(line); m != nil {
			currentAdapter = m[1]
			continue
		}

		if !strings.Contains(line, "°C") {
			if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
				currentChip = strings.TrimSpace(line)
			}
			continue
		}

		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		m := tempValRe.FindStringSubmatch(line[idx+1:])
		if m == nil {
			continue
		}
		temp, err := strconv.ParseFloat(m[1], 64)
		if err != nil || temp < -200 {
			continue
		}

		r := Reading{
			Chip:    currentChip,
			Adapter: currentAdapter,
			Label:   strings.TrimSpace(line[:idx]),
			Temp:    temp,
		}
		if high, ok := extractNamedVal(line, "high"); ok && plausible(high) {
			r.High, r.HasHigh = high, true
		}
		if crit, ok := extractNamedVal(line, "crit"); ok && plausible(crit) {
			r.Crit, r.HasCrit = crit, true
		}
		// Thresholds may wrap onto an unlabelled continuation line.
		if i+1 < len(lines) {
			next := strings.TrimRight(lines[i+1], "\r")
			if strings.Contains(next, "crit") && !strings.Contains(next, ":") {
				if crit, ok := extractNamedVal(next, "crit"); ok && plausible(crit) {
					r.Crit, r.HasCrit = crit, true
				}
			}
		}
		readings = append(readings, r)
	}
	return readings
}

func extractNamedVal(line, name string) (float64, bool) {
	for _, m := range namedValRe.FindAllStringSubmatch(line, -1) {
		if m[1] != name {
			continue
		}
		v, err := strconv.ParseFloat(m[2], 64)
		if err == nil && v > -200 {
			return v, true
		}
	}
	return 0, false
}
