package sensor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/luki/tempwatch/internal/errors"
	"github.com/luki/tempwatch/internal/logger"
)

// Runner executes an external program and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// System reads the machine's sensors.
type System struct {
	run       Runner
	lookPath  func(string) (string, error)
	hwmonRoot string
	diskGlob  string
	log       *slog.Logger
}

// SystemOption configures a System.
type SystemOption func(*System)

// WithRunner replaces command execution.
func WithRunner(run Runner, lookPath func(string) (string, error)) SystemOption {
	return func(s *System) {
		s.run = run
		s.lookPath = lookPath
	}
}

// WithHwmonRoot points the sysfs scan at dir instead of /sys/class/hwmon.
func WithHwmonRoot(dir string) SystemOption {
	return func(s *System) { s.hwmonRoot = dir }
}

// WithDiskGlob sets the block devices probed with smartctl. An empty
// pattern disables smartctl.
func WithDiskGlob(pattern string) SystemOption {
	return func(s *System) { s.diskGlob = pattern }
}

// NewSystem creates the default source.
func NewSystem(opts ...SystemOption) *System {
	s := &System{
		run:       execRunner,
		lookPath:  exec.LookPath,
		hwmonRoot: "/sys/class/hwmon",
		diskGlob:  "/dev/sd?",
		log:       logger.ComponentLogger("sensor"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read dynamically discovers all available temperature sensors by
// combining lm-sensors (or sysfs hwmon when lm-sensors is missing),
// nvidia-smi and drive temperatures.
func (s *System) Read(ctx context.Context) ([]Reading, error) {
	readings, err := s.readLMSensors(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.log.Debug("lm-sensors unavailable, scanning hwmon", "error", err)
		readings = s.readHwmon(func(string) bool { return true })
	} else {
		readings = append(readings, s.readHwmon(func(name string) bool { return name == "drivetemp" })...)
	}
	readings = append(readings, s.readNvidia(ctx)...)
	readings = append(readings, s.readSmartctl(ctx)...)

	readings = dedupe(readings)
	if len(readings) == 0 {
		return nil, errors.NoSensors()
	}
	return readings, nil
}

func (s *System) readLMSensors(ctx context.Context) ([]Reading, error) {
	if out, err := s.run(ctx, "sensors", "-j"); err == nil {
		if readings, err := ParseSensorsJSON(out); err == nil {
			return readings, nil
		}
	}
	// Older lm-sensors have no JSON output.
	out, err := s.run(ctx, "sensors")
	if err != nil {
		return nil, fmt.Errorf("run sensors: %w", err)
	}
	return ParseSensorsText(string(out)), nil
}

// readHwmon scans hwmon*/temp*_input for chips whose name passes keep.
func (s *System) readHwmon(keep func(name string) bool) []Reading {
	dirs, _ := filepath.Glob(filepath.Join(s.hwmonRoot, "hwmon*"))
	sort.Strings(dirs)

	var readings []Reading
	for _, dir := range dirs {
		name, ok := readSysfs(filepath.Join(dir, "name"))
		if !ok || !keep(name) {
			continue
		}
		inputs, _ := filepath.Glob(filepath.Join(dir, "temp*_input"))
		sort.Strings(inputs)
		for _, input := range inputs {
			milli, ok := readMilli(input)
			if !ok {
				continue
			}
			prefix := strings.TrimSuffix(input, "_input")
			label, ok := readSysfs(prefix + "_label")
			if !ok {
				label = filepath.Base(prefix)
			}
			r := Reading{
				Chip:    name + "-" + filepath.Base(dir),
				Adapter: "hwmon",
				Label:   label,
				Temp:    milli,
			}
			if name == "drivetemp" {
				r.Adapter = "SATA drive"
				r.Label = "Drive Temp"
			}
			if v, ok := readMilli(prefix + "_max"); ok && plausible(v) {
				r.High, r.HasHigh = v, true
			}
			if v, ok := readMilli(prefix + "_crit"); ok && plausible(v) {
				r.Crit, r.HasCrit = v, true
			}
			readings = append(readings, r)
		}
	}
	return readings
}

func readSysfs(path string) (string, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(b)), true
}

// readMilli reads a millidegree sysfs value as degrees Celsius.
func readMilli(path string) (float64, bool) {
	s, ok := readSysfs(path)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v / 1000.0, true
}

// readNvidia reads GPU temperatures via nvidia-smi. Missing nvidia-smi is
// not an error.
func (s *System) readNvidia(ctx context.Context) []Reading {
	if _, err := s.lookPath("nvidia-smi"); err != nil {
		return nil
	}
	out, err := s.run(ctx, "nvidia-smi",
		"--query-gpu=index,name,temperature.gpu",
		"--format=csv,noheader,nounits",
	)
	if err != nil {
		s.log.Debug("nvidia-smi query failed", "error", err)
		return nil
	}

	var thresholds map[string]float64
	if q, err := s.run(ctx, "nvidia-smi", "-q", "-d", "TEMPERATURE"); err == nil {
		thresholds = parseNvidiaThresholds(string(q))
	}
	return parseNvidiaQuery(string(out), thresholds)
}

func parseNvidiaQuery(out string, thresholds map[string]float64) []Reading {
	var readings []Reading
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		parts := strings.SplitN(line, ", ", 3)
		if len(parts) < 3 {
			continue
		}
		temp, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			continue
		}

		r := Reading{
			Chip:    "nvidia-gpu-" + strings.TrimSpace(parts[0]),
			Adapter: strings.TrimSpace(parts[1]),
			Label:   "GPU Temp",
			Temp:    temp,
		}
		if t, ok := thresholds["slowdown"]; ok {
			r.High, r.HasHigh = t, true
		}
		if t, ok := thresholds["shutdown"]; ok {
			r.Crit, r.HasCrit = t, true
		}
		readings = append(readings, r)
	}
	return readings
}

var nvidiaTempValRe = regexp.MustCompile(`:\s*(\d+)\s*C`)

func parseNvidiaThresholds(out string) map[string]float64 {
	prefixes := map[string]string{
		"GPU Shutdown Temp":      "shutdown",
		"GPU Slowdown Temp":      "slowdown",
		"GPU Max Operating Temp": "max_operating",
	}
	result := make(map[string]float64)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		for prefix, key := range prefixes {
			if !strings.HasPrefix(line, prefix) {
				continue
			}
			m := nvidiaTempValRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
				result[key] = v
			}
		}
	}
	return result
}

// readSmartctl reads SATA drive temperatures with smartctl, trying a
// non-interactive sudo first.
func (s *System) readSmartctl(ctx context.Context) []Reading {
	if s.diskGlob == "" {
		return nil
	}
	if _, err := s.lookPath("smartctl"); err != nil {
		return nil
	}
	drives, _ := filepath.Glob(s.diskGlob)

	var readings []Reading
	for _, dev := range drives {
		out, err := s.smartctl(ctx, "-A", dev)
		if err != nil {
			continue
		}
		temp, ok := parseSmartTemp(string(out))
		if !ok {
			continue
		}

		model := "SATA drive"
		if info, err := s.smartctl(ctx, "-i", dev); err == nil {
			if m := parseSmartModel(string(info)); m != "" {
				model = m
			}
		}
		readings = append(readings, Reading{
			Chip:    "smart-" + filepath.Base(dev),
			Adapter: model,
			Label:   "Drive Temp",
			Temp:    temp,
			High:    55,
			HasHigh: true,
			Crit:    60,
			HasCrit: true,
		})
	}
	return readings
}

func (s *System) smartctl(ctx context.Context, args ...string) ([]byte, error) {
	out, err := s.run(ctx, "sudo", append([]string{"-n", "smartctl"}, args...)...)
	if err == nil {
		return out, nil
	}
	return s.run(ctx, "smartctl", args...)
}

var smartAttrRe = regexp.MustCompile(`^\s*(194|190)\s+(?:Temperature_Celsius|Airflow_Temperature_Cel)\s`)

// parseSmartTemp returns the raw value of attribute 194, or of 190 when 194
// is absent.
func parseSmartTemp(output string) (float64, bool) {
	found := make(map[string]float64)
	for _, line := range strings.Split(output, "\n") {
		m := smartAttrRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		f := strings.Fields(line)
		if len(f) < 10 {
			continue
		}
		if v, err := strconv.ParseFloat(f[9], 64); err == nil {
			found[m[1]] = v
		}
	}
	for _, id := range []string{"194", "190"} {
		if v, ok := found[id]; ok {
			return v, true
		}
	}
	return 0, false
}

func parseSmartModel(out string) string {
	for _, line := range strings.Split(out, "\n") {
		for _, prefix := range []string{"Device Model:", "Model Number:"} {
			if strings.HasPrefix(line, prefix) {
				return strings.TrimSpace(strings.TrimPrefix(line, prefix))
			}
		}
	}
	return ""
}
