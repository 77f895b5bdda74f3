package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/luki/tempwatch/internal/alert"
	"github.com/luki/tempwatch/internal/chart"
	"github.com/luki/tempwatch/internal/config"
	"github.com/luki/tempwatch/internal/errors"
	"github.com/luki/tempwatch/internal/logger"
	"github.com/luki/tempwatch/internal/monitor"
	"github.com/luki/tempwatch/internal/prefs"
	"github.com/luki/tempwatch/internal/sensor"
	"github.com/luki/tempwatch/internal/store"
	"github.com/luki/tempwatch/internal/window"
)

var (
	configPath            string
	prefsPath             string
	debugMode             bool
	demoMode              bool
	interval              time.Duration
	noStore               bool
	version, commit, date string
)

// SetVersionInfo sets version information from ldflags
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
}

var rootCmd = &cobra.Command{
	Use:   "tempwatch",
	Short: "Terminal temperature monitor with alerts",
	Long: `tempwatch plots hardware temperatures in the terminal, keeps a table of
per-sensor critical temperatures, colours and alert commands, and logs every
reading for later browsing with 'tempwatch history'.`,
	RunE:          runMonitor,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/tempwatch/config.json)")
	rootCmd.PersistentFlags().StringVar(&prefsPath, "prefs", "", "Sensor preferences file")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&demoMode, "demo", false, "Use synthetic sensors instead of the hardware")
	rootCmd.PersistentFlags().DurationVarP(&interval, "interval", "w", 0, "Poll interval (overrides the config file)")
	rootCmd.Flags().BoolVar(&noStore, "no-store", false, "Do not log readings")
}

// Execute runs the root command
func Execute() error {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(versionTemplate())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func versionTemplate() string {
	if commit != "none" && commit != "" {
		return fmt.Sprintf("tempwatch %s\n  commit: %s\n  built:  %s\n", version, commit, date)
	}
	return fmt.Sprintf("tempwatch %s\n", version)
}

// loadConfig reads the config file and applies the command line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if prefsPath != "" {
		cfg.PrefsPath = prefsPath
	}
	if interval > 0 {
		cfg.PollInterval = config.Duration(interval)
	}
	if noStore {
		cfg.StoreBackend = config.StoreNone
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initLogging opens the log file. The terminal belongs to the display, so
// a logger that cannot open its file stays silent instead of failing.
func initLogging(cfg *config.Config) {
	logger.SetDebug(debugMode)
	path := cfg.LogFile()
	if path == "" {
		path = logger.DefaultPath()
	}
	if err := logger.Init(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

func newSource() sensor.Source {
	if demoMode {
		return sensor.NewSynthetic()
	}
	return sensor.NewSystem()
}

// loadPrefs reads the preferences file. A missing file yields an empty set
// that is saved in the configured format.
func loadPrefs(cfg *config.Config) (*prefs.Set, prefs.Format, error) {
	path := cfg.PrefsFile()
	set, format, err := prefs.Load(path)
	if errors.Is(err, errors.KindNotFound) {
		format, _ = prefs.ParseFormat(cfg.PrefsFormat)
		return prefs.NewSet(), format, nil
	}
	if err != nil {
		return nil, format, err
	}
	return set, format, nil
}

func alertConfig(cfg *config.Config) alert.Config {
	return alert.Config{
		RepeatAfter:    cfg.AlertRepeat.Std(),
		DefaultCommand: cfg.DefaultCommand,
		Notify:         cfg.NotificationsEnabled,
	}
}

func monitorOptions(cfg *config.Config, format prefs.Format) monitor.Options {
	opts := monitor.DefaultOptions()
	opts.Interval = cfg.PollInterval.Std()
	opts.FrameTimeout = cfg.FrameTimeout.Std()
	opts.HistorySize = cfg.HistorySize
	opts.PairLimit = cfg.PairLimit
	opts.Chart = chart.DefaultOptions()
	opts.Chart.XCadence = cfg.XTickCadence
	opts.Chart.YCadence = cfg.YTickCadence
	opts.Chart.LabelWidth = cfg.LabelWidth
	opts.Chart.Capacity = cfg.SeriesCapacity
	opts.PrefsPath = cfg.PrefsFile()
	opts.PrefsFormat = format
	return opts
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initLogging(cfg)
	defer logger.Close()
	log := logger.ComponentLogger("cmd")

	set, format, err := loadPrefs(cfg)
	if err != nil {
		return fmt.Errorf("error loading preferences: %w", err)
	}

	st, err := store.Open(cfg.StoreBackend, cfg.DataDir())
	if err != nil {
		return fmt.Errorf("error opening reading log: %w", err)
	}
	defer st.Close()

	runner := alert.NewShellRunner(cfg.CommandTimeout.Std())
	defer runner.Wait()
	eval := alert.NewEvaluator(alertConfig(cfg), runner, alert.WithPrefs(set))

	screen, err := window.Open()
	if err != nil {
		return err
	}
	defer screen.Fini()

	log.Info("monitor starting",
		"interval", cfg.PollInterval.Std(),
		"prefs", cfg.PrefsFile(),
		"store", cfg.StoreBackend,
		"demo", demoMode)

	m := monitor.New(screen, newSource(), monitorOptions(cfg, format),
		monitor.WithPrefs(set),
		monitor.WithAlerts(eval),
		monitor.WithStore(st))
	return m.Run(cmd.Context(), screen)
}
