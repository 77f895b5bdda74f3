package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/luki/tempwatch/internal/alert"
	"github.com/luki/tempwatch/internal/logger"
	"github.com/luki/tempwatch/internal/prefs"
	"github.com/luki/tempwatch/internal/sensor"
	"github.com/luki/tempwatch/internal/store"
)

var (
	checkVerbose    bool
	checkThresholds string
	checkCommand    string
	checkOnce       bool
	checkStore      bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Watch sensors without a display and run alert commands",
	Long: `Polls the sensors every interval and runs the alert command of every sensor
that reaches its critical temperature. Critical temperatures come from the
preferences file, then from a legacy threshold list (-T, comma separated, in
sensor order), then from the limits the sensor reports itself.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVarP(&checkVerbose, "verbose", "v", false, "Print every reading")
	checkCmd.Flags().StringVarP(&checkThresholds, "thresholds", "T", "", "Legacy threshold list file")
	checkCmd.Flags().StringVarP(&checkCommand, "command", "C", "", "Command to run for sensors without one of their own")
	checkCmd.Flags().BoolVar(&checkOnce, "once", false, "Check once and exit")
	checkCmd.Flags().BoolVar(&checkStore, "store", false, "Log readings like the monitor does")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initLogging(cfg)
	defer logger.Close()

	set, _, err := loadPrefs(cfg)
	if err != nil {
		return fmt.Errorf("error loading preferences: %w", err)
	}
	opts := []alert.Option{alert.WithPrefs(set)}
	if checkThresholds != "" {
		t, err := prefs.LoadThresholds(checkThresholds)
		if err != nil {
			return err
		}
		opts = append(opts, alert.WithThresholds(t))
	}

	acfg := alertConfig(cfg)
	if checkCommand != "" {
		acfg.DefaultCommand = checkCommand
	}
	runner := alert.NewShellRunner(cfg.CommandTimeout.Std())
	defer runner.Wait()

	var st store.Store = store.Discard{}
	if checkStore {
		if st, err = store.Open(cfg.StoreBackend, cfg.DataDir()); err != nil {
			return fmt.Errorf("error opening reading log: %w", err)
		}
		defer st.Close()
	}

	c := &checker{
		src:      newSource(),
		registry: sensor.NewRegistry(),
		eval:     alert.NewEvaluator(acfg, runner, opts...),
		store:    st,
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
		verbose:  checkVerbose,
		log:      logger.ComponentLogger("check"),
	}
	if checkOnce {
		_, err := c.step(cmd.Context(), time.Now())
		return err
	}
	return c.run(cmd.Context(), cfg.PollInterval.Std())
}

// checker is the headless poll loop.
type checker struct {
	src      sensor.Source
	registry *sensor.Registry
	eval     *alert.Evaluator
	store    store.Store
	out      io.Writer
	errOut   io.Writer
	verbose  bool
	log      *slog.Logger
}

// run polls until ctx is cancelled. Read failures are reported and the
// loop keeps going.
func (c *checker) run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := c.step(ctx, time.Now()); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(c.errOut, "Warning: %v\n", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// step reads the sensors once and evaluates them.
func (c *checker) step(ctx context.Context, now time.Time) ([]alert.Event, error) {
	readings, err := c.src.Read(ctx)
	if err != nil {
		c.log.Error("sensor read failed", "error", err)
		return nil, err
	}
	c.registry.Stamp(readings, now)
	sort.Slice(readings, func(i, j int) bool { return readings[i].ID < readings[j].ID })

	if c.verbose {
		fmt.Fprintf(c.out, "%s\n", now.Format("15:04:05"))
		for _, r := range readings {
			crit := "-"
			if v, ok := c.eval.Limit(r); ok {
				crit = fmt.Sprintf("%.1f", v)
			}
			fmt.Fprintf(c.out, "  %2d %-28s %6.1f°C  crit %s\n", int(r.ID), r.Name(), r.Temp, crit)
		}
	}

	events := c.eval.Evaluate(ctx, readings, now)
	for _, ev := range events {
		fmt.Fprintf(c.out, "ALERT %s %s\n", now.Format("15:04:05"), ev)
	}

	if err := c.store.Write(readings, now); err != nil {
		c.log.Error("storing readings failed", "error", err)
	}
	return events, nil
}
