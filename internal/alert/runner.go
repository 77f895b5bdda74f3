package alert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/luki/tempwatch/internal/logger"
)

// DefaultTimeout bounds how long an alert command may run.
const DefaultTimeout = 30 * time.Second

// ShellRunner runs commands with `sh -c`. At most one command per sensor
// runs at a time; a firing while the previous command is still running is
// skipped.
type ShellRunner struct {
	Timeout time.Duration

	mu      sync.Mutex
	running map[string]bool
	wg      sync.WaitGroup
	log     *slog.Logger
}

// NewShellRunner creates a runner. A zero timeout uses DefaultTimeout.
func NewShellRunner(timeout time.Duration) *ShellRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ShellRunner{
		Timeout: timeout,
		running: make(map[string]bool),
		log:     logger.ComponentLogger("alert"),
	}
}

// Run starts ev.Command and returns once it has started. The process is
// reaped in the background and killed when the timeout passes or ctx ends.
func (r *ShellRunner) Run(ctx context.Context, ev Event) error {
	r.mu.Lock()
	if r.running[ev.Sensor] {
		r.mu.Unlock()
		r.log.Debug("previous command still running, skipping", "sensor", ev.Sensor)
		return nil
	}
	r.running[ev.Sensor] = true
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	cmd := exec.CommandContext(ctx, "sh", "-c", ev.Command)
	cmd.Env = append(os.Environ(),
		"TEMPWATCH_SENSOR="+ev.Sensor,
		"TEMPWATCH_VALUE="+strconv.FormatFloat(ev.Value, 'f', 1, 64),
		"TEMPWATCH_CRIT="+strconv.FormatFloat(ev.Crit, 'f', 1, 64),
	)
	if err := cmd.Start(); err != nil {
		cancel()
		r.done(ev.Sensor)
		return fmt.Errorf("start %q: %w", ev.Command, err)
	}
	r.log.Info("alert command started", "sensor", ev.Sensor, "pid", cmd.Process.Pid)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		defer r.done(ev.Sensor)
		if err := cmd.Wait(); err != nil {
			r.log.Warn("alert command exited", "sensor", ev.Sensor, "error", err)
			return
		}
		r.log.Debug("alert command finished", "sensor", ev.Sensor)
	}()
	return nil
}

func (r *ShellRunner) done(sensor string) {
	r.mu.Lock()
	delete(r.running, sensor)
	r.mu.Unlock()
}

// Wait blocks until every started command has exited.
func (r *ShellRunner) Wait() {
	r.wg.Wait()
}
