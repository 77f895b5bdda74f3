package sensor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	twerrors "github.com/luki/tempwatch/internal/errors"
)

type fakeCommands struct {
	outputs map[string]string
	calls   []string
}

func (f *fakeCommands) run(_ context.Context, name string, args ...string) ([]byte, error) {
	cmd := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, cmd)
	out, ok := f.outputs[cmd]
	if !ok {
		return nil, errors.New("not found: " + cmd)
	}
	return []byte(out), nil
}

func (f *fakeCommands) lookPath(name string) (string, error) {
	for cmd := range f.outputs {
		if strings.HasPrefix(cmd, name+" ") || strings.HasPrefix(cmd, "sudo -n "+name+" ") {
			return "/usr/bin/" + name, nil
		}
	}
	return "", errors.New("missing " + name)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSystemMergesSources(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "hwmon3", "name"), "drivetemp\n")
	writeFile(t, filepath.Join(root, "hwmon3", "temp1_input"), "38000\n")

	fake := &fakeCommands{outputs: map[string]string{
		"sensors -j": testSensorJSON,
		"nvidia-smi --query-gpu=index,name,temperature.gpu --format=csv,noheader,nounits": "0, NVIDIA GeForce RTX 3060, 52\n",
		"nvidia-smi -q -d TEMPERATURE": "    GPU Shutdown Temp                 : 98 C\n    GPU Slowdown Temp                 : 95 C\n",
	}}
	src := NewSystem(WithRunner(fake.run, fake.lookPath), WithHwmonRoot(root), WithDiskGlob(""))

	readings, err := src.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	keys := make(map[string]Reading)
	for _, r := range readings {
		keys[r.Key()] = r
	}
	if _, ok := keys["coretemp-isa-0000/Core 0"]; !ok {
		t.Error("lm-sensors reading missing")
	}
	if d, ok := keys["drivetemp-hwmon3/Drive Temp"]; !ok || d.Temp != 38 {
		t.Errorf("drivetemp reading = %+v (found %v)", d, ok)
	}
	gpu, ok := keys["nvidia-gpu-0/GPU Temp"]
	if !ok || gpu.Temp != 52 || gpu.Crit != 98 || gpu.High != 95 {
		t.Errorf("gpu reading = %+v (found %v)", gpu, ok)
	}
}

func TestSystemFallsBackToText(t *testing.T) {
	fake := &fakeCommands{outputs: map[string]string{"sensors": testSensorOutput}}
	src := NewSystem(WithRunner(fake.run, fake.lookPath), WithHwmonRoot(t.TempDir()), WithDiskGlob(""))

	readings, err := src.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(readings) < 10 {
		t.Errorf("got %d readings from text fallback", len(readings))
	}
}

func TestSystemScansHwmonWithoutLMSensors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "hwmon0", "name"), "k10temp\n")
	writeFile(t, filepath.Join(root, "hwmon0", "temp1_input"), "51250\n")
	writeFile(t, filepath.Join(root, "hwmon0", "temp1_label"), "Tctl\n")
	writeFile(t, filepath.Join(root, "hwmon0", "temp1_crit"), "95000\n")
	writeFile(t, filepath.Join(root, "hwmon0", "temp2_input"), "garbage\n")

	fake := &fakeCommands{outputs: map[string]string{}}
	src := NewSystem(WithRunner(fake.run, fake.lookPath), WithHwmonRoot(root), WithDiskGlob(""))

	readings, err := src.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(readings) != 1 {
		t.Fatalf("got %d readings, want 1", len(readings))
	}
	r := readings[0]
	if r.Key() != "k10temp-hwmon0/Tctl" || r.Temp != 51.25 || !r.HasCrit || r.Crit != 95 {
		t.Errorf("reading = %+v", r)
	}
}

func TestSystemNoSensors(t *testing.T) {
	fake := &fakeCommands{outputs: map[string]string{}}
	src := NewSystem(WithRunner(fake.run, fake.lookPath), WithHwmonRoot(t.TempDir()), WithDiskGlob(""))

	_, err := src.Read(context.Background())
	if !twerrors.Is(err, twerrors.KindNotFound) {
		t.Errorf("Read() error = %v, want not found", err)
	}
}

func TestParseSmartTemp(t *testing.T) {
	out := `ID# ATTRIBUTE_NAME          FLAG     VALUE WORST THRESH TYPE      UPDATED  WHEN_FAILED RAW_VALUE
190 Airflow_Temperature_Cel 0x0032   067   052   000    Old_age   Always       -       33
194 Temperature_Celsius     0x0022   064   048   000    Old_age   Always       -       36 (Min/Max 18/52)
`
	v, ok := parseSmartTemp(out)
	if !ok || v != 36 {
		t.Errorf("parseSmartTemp = %v, %v; want 36", v, ok)
	}

	only190 := "190 Airflow_Temperature_Cel 0x0032   067   052   000    Old_age   Always       -       33\n"
	if v, ok := parseSmartTemp(only190); !ok || v != 33 {
		t.Errorf("190 fallback = %v, %v; want 33", v, ok)
	}
	if _, ok := parseSmartTemp("nothing here"); ok {
		t.Error("parsed a temperature from nothing")
	}
}

func TestParseSmartModel(t *testing.T) {
	if got := parseSmartModel("=== START ===\nDevice Model:     Samsung SSD 860 EVO\n"); got != "Samsung SSD 860 EVO" {
		t.Errorf("parseSmartModel = %q", got)
	}
}

func TestRegistryStableIDs(t *testing.T) {
	g := NewRegistry()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := []Reading{{Chip: "a", Label: "x"}, {Chip: "b", Label: "y"}}
	g.Stamp(first, now)
	if first[0].ID != 0 || first[1].ID != 1 || !first[1].Time.Equal(now) {
		t.Fatalf("first stamp = %+v", first)
	}

	second := []Reading{{Chip: "c", Label: "z"}, {Chip: "a", Label: "x"}}
	g.Stamp(second, now.Add(time.Second))
	if second[0].ID != 2 || second[1].ID != 0 {
		t.Errorf("second stamp ids = %d, %d; want 2, 0", second[0].ID, second[1].ID)
	}
	if g.Len() != 3 {
		t.Errorf("registry len = %d, want 3", g.Len())
	}
}

func TestSyntheticIsDeterministic(t *testing.T) {
	a, b := NewSynthetic(), NewSynthetic()
	for i := 0; i < 5; i++ {
		ra, _ := a.Read(context.Background())
		rb, _ := b.Read(context.Background())
		for j := range ra {
			if ra[j].Temp != rb[j].Temp {
				t.Fatalf("step %d sensor %d differs: %v vs %v", i, j, ra[j].Temp, rb[j].Temp)
			}
		}
	}

	s := NewSynthetic(Wave{Chip: "demo-x", Label: "t", Base: 50, Amplitude: 10, Period: 4, Crit: 55})
	var temps []float64
	for i := 0; i < 4; i++ {
		r, _ := s.Read(context.Background())
		temps = append(temps, r[0].Temp)
	}
	want := []float64{50, 60, 50, 40}
	for i := range want {
		if temps[i] != want[i] {
			t.Errorf("step %d = %v, want %v", i, temps[i], want[i])
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Read(ctx); err == nil {
		t.Error("Read with cancelled context succeeded")
	}
}

func TestReadingName(t *testing.T) {
	r := Reading{Chip: "coretemp-isa-0000", Label: "Core 0"}
	if r.Name() != "CPU Core 0" {
		t.Errorf("Name() = %q", r.Name())
	}
	if (Reading{Label: "x"}).Name() != "x" {
		t.Error("chipless name should be the label")
	}
}
