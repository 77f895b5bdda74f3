// Package stress heats up hardware components so that alert thresholds and
// commands can be exercised on a real machine.
package stress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	twerrors "github.com/luki/tempwatch/internal/errors"
	"github.com/luki/tempwatch/internal/logger"
)

// DefaultDuration is used when no duration is given.
const DefaultDuration = 60 * time.Second

// Target is a stressable component.
type Target struct {
	Name string
	Desc string
}

// Targets lists what we can stress and how.
var Targets = []Target{
	{"cpu", "All CPU cores (stress-ng --cpu, built-in burner otherwise)"},
	{"gpu", "GPU rendering (glmark2, glxgears or an nvidia-smi loop)"},
	{"nvme", "NVMe SSD random read/write (fio)"},
	{"disk", "Sequential disk I/O (fio)"},
	{"net", "Network interface (iperf3 loopback or ping flood)"},
	{"all", "Everything at once"},
}

// ParseDuration accepts "60" (seconds) or a Go duration such as "2m".
// Empty input yields DefaultDuration.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return DefaultDuration, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < time.Second {
			return 0, fmt.Errorf("duration %s is shorter than 1s", s)
		}
		return d, nil
	}
	secs, err := strconv.Atoi(s)
	if err != nil || secs < 1 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(secs) * time.Second, nil
}

// Stresser runs stress jobs. Output of the tools goes to Out.
type Stresser struct {
	Out      io.Writer
	TempDir  string
	lookPath func(string) (string, error)
	log      *slog.Logger
}

// New returns a Stresser writing progress to out.
func New(out io.Writer) *Stresser {
	return &Stresser{
		Out:      out,
		TempDir:  os.TempDir(),
		lookPath: exec.LookPath,
		log:      logger.ComponentLogger("stress"),
	}
}

// Run stresses target for d or until ctx is cancelled. Cancellation is not
// an error.
func (s *Stresser) Run(ctx context.Context, target string, d time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	s.log.Info("stress started", "target", target, "duration", d)
	defer s.log.Info("stress finished", "target", target)

	switch strings.ToLower(target) {
	case "cpu":
		return s.cpu(ctx)
	case "gpu":
		return s.gpu(ctx)
	case "nvme":
		return s.nvme(ctx)
	case "disk":
		return s.disk(ctx)
	case "net", "wifi", "network":
		return s.net(ctx)
	case "all":
		return s.all(ctx)
	}
	return twerrors.E(twerrors.Op("stress.Run"), twerrors.KindInvalid, fmt.Sprintf("unknown target %q", target))
}

func (s *Stresser) printf(format string, args ...any) {
	fmt.Fprintf(s.Out, format, args...)
}

func (s *Stresser) has(tool string) bool {
	_, err := s.lookPath(tool)
	return err == nil
}

func (s *Stresser) cpu(ctx context.Context) error {
	cpus := runtime.NumCPU()
	if !s.has("stress-ng") {
		s.printf("  stress-ng not found, burning %d cores with the built-in burner\n", cpus)
		BurnCPU(ctx, cpus)
		s.printf("  done\n")
		return nil
	}
	secs := secondsLeft(ctx)
	s.printf("  stress-ng --cpu %d --timeout %ds\n", cpus, secs)
	return s.run(ctx, "stress-ng", "--cpu", strconv.Itoa(cpus), "--timeout", fmt.Sprintf("%ds", secs))
}

// BurnCPU spins workers goroutines until ctx is done and returns the number
// of loop iterations performed.
func BurnCPU(ctx context.Context, workers int) uint64 {
	if workers < 1 {
		workers = 1
	}
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total uint64
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var n uint64
			x := 0.0
			for {
				for j := 0; j < 1000; j++ {
					x += 1.1
					x *= 0.9
				}
				n++
				select {
				case <-ctx.Done():
					mu.Lock()
					total += n
					mu.Unlock()
					return
				default:
				}
			}
		}()
	}
	wg.Wait()
	return total
}

func (s *Stresser) gpu(ctx context.Context) error {
	graphical := os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
	for _, tool := range []struct {
		name string
		args []string
	}{
		{"glmark2", []string{"--run-forever"}},
		{"glxgears", nil},
	} {
		if !s.has(tool.name) {
			continue
		}
		s.printf("  %s (OpenGL rendering)\n", tool.name)
		if !graphical {
			s.printf("  note: needs a graphical session (DISPLAY or WAYLAND_DISPLAY)\n")
		}
		return s.run(ctx, tool.name, tool.args...)
	}

	if s.has("nvidia-smi") {
		s.printf("  nvidia-smi query loop (light GPU load)\n")
		for ctx.Err() == nil {
			exec.CommandContext(ctx, "nvidia-smi", "--query-gpu=temperature.gpu", "--format=csv,noheader").Run()
		}
		s.printf("  done\n")
		return nil
	}
	return twerrors.E(twerrors.Op("stress.gpu"), twerrors.KindNotFound, "no GPU stress tool found (glmark2, glxgears, nvidia-smi)")
}

func (s *Stresser) fio(ctx context.Context, name string, args ...string) error {
	if !s.has("fio") {
		return twerrors.E(twerrors.Op("stress.fio"), twerrors.KindNotFound, "fio not found")
	}
	dir, err := os.MkdirTemp(s.TempDir, "tempwatch-stress-"+name+"-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	base := []string{
		"--name=" + name,
		"--directory=" + dir,
		"--runtime=" + strconv.Itoa(secondsLeft(ctx)),
		"--time_based",
		"--group_reporting",
		"--ioengine=libaio",
		"--direct=1",
	}
	s.printf("  fio %s in %s for %ds\n", name, dir, secondsLeft(ctx))
	return s.run(ctx, "fio", append(base, args...)...)
}

func (s *Stresser) nvme(ctx context.Context) error {
	return s.fio(ctx, "nvme-stress", "--rw=randrw", "--bs=4k", "--size=1G", "--numjobs=4", "--iodepth=32")
}

func (s *Stresser) disk(ctx context.Context) error {
	return s.fio(ctx, "disk-stress", "--rw=readwrite", "--bs=128k", "--size=512M", "--numjobs=2", "--iodepth=8")
}

func (s *Stresser) net(ctx context.Context) error {
	secs := strconv.Itoa(secondsLeft(ctx))
	if s.has("iperf3") {
		s.printf("  iperf3 loopback for %ss\n", secs)
		server := exec.CommandContext(ctx, "iperf3", "-s", "-1")
		if err := server.Start(); err != nil {
			return err
		}
		defer server.Wait()
		select {
		case <-time.After(500 * time.Millisecond):
		case <-ctx.Done():
			return nil
		}
		return s.run(ctx, "iperf3", "-c", "127.0.0.1", "-t", secs, "-P", "8")
	}
	s.printf("  sustained ping flood (requires network)\n")
	return s.run(ctx, "ping", "-f", "-i", "0.001", "1.1.1.1")
}

func (s *Stresser) all(ctx context.Context) error {
	jobs := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"CPU", s.cpu},
		{"GPU", s.gpu},
		{"NVMe", s.nvme},
		{"Net", s.net},
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, j := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.printf("── Starting %s stress ──\n", j.name)
			if err := j.fn(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", j.name, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.printf("\n  All stress tests complete\n")
	return errors.Join(errs...)
}

// run executes a tool until it exits or ctx ends. Stress tools exit 1 on
// their own timeout, which counts as success.
func (s *Stresser) run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = s.Out
	cmd.Stderr = s.Out
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = 200 * time.Millisecond

	err := cmd.Run()
	if ctx.Err() != nil {
		s.printf("  completed\n")
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(name), err)
	}
	s.printf("  completed\n")
	return nil
}

func secondsLeft(ctx context.Context) int {
	deadline, ok := ctx.Deadline()
	if !ok {
		return int(DefaultDuration.Seconds())
	}
	return max(int(time.Until(deadline).Round(time.Second).Seconds()), 1)
}
