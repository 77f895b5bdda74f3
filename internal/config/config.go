// Package config loads and saves the tempwatch settings file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	twerrors "github.com/luki/tempwatch/internal/errors"
	"github.com/luki/tempwatch/internal/prefs"
)

// Store backends.
const (
	StoreCSV    = "csv"
	StoreSQLite = "sqlite"
	StoreNone   = "none"
)

// Duration is a time.Duration that reads "5s" style strings or a plain
// number of seconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		*d = Duration(x * float64(time.Second))
	case string:
		p, err := time.ParseDuration(x)
		if err != nil {
			return err
		}
		*d = Duration(p)
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds the application configuration
type Config struct {
	PollInterval   Duration `json:"poll_interval"`   // Sensor poll period
	FrameTimeout   Duration `json:"frame_timeout"`   // Input wait per frame
	HistorySize    int      `json:"history_size"`    // Points kept per sensor for statistics
	SeriesCapacity int      `json:"series_capacity"` // Points kept per chart series
	XTickCadence   int      `json:"x_tick_cadence"`
	YTickCadence   int      `json:"y_tick_cadence"`
	LabelWidth     int      `json:"label_width"`
	PairLimit      int      `json:"pair_limit"`

	PrefsPath   string `json:"prefs_path,omitempty"`
	PrefsFormat string `json:"prefs_format,omitempty"` // "text" or "binary"

	StoreBackend string `json:"store_backend"`       // "csv", "sqlite" or "none"
	StoreDir     string `json:"store_dir,omitempty"` // Defaults to the data directory

	NotificationsEnabled bool     `json:"notifications_enabled,omitempty"`
	AlertRepeat          Duration `json:"alert_repeat,omitempty"` // Zero fires once per crossing
	CommandTimeout       Duration `json:"command_timeout"`
	DefaultCommand       string   `json:"default_command,omitempty"`

	LogPath string `json:"log_path,omitempty"`

	mu       sync.RWMutex
	filePath string
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		PollInterval:   Duration(5 * time.Second),
		FrameTimeout:   Duration(100 * time.Millisecond),
		HistorySize:    600,
		SeriesCapacity: 4096,
		XTickCadence:   8,
		YTickCadence:   2,
		LabelWidth:     5,
		PairLimit:      256,
		PrefsFormat:    prefs.FormatText.String(),
		StoreBackend:   StoreCSV,
		CommandTimeout: Duration(30 * time.Second),
	}
}

func configDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "tempwatch")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "tempwatch")
	}
	return filepath.Join(os.TempDir(), "tempwatch")
}

// DefaultPath returns the path of the config file.
func DefaultPath() string {
	return filepath.Join(configDir(), "config.json")
}

// DefaultPrefsPath returns the path of the preferences file.
func DefaultPrefsPath() string {
	return filepath.Join(configDir(), "prefs")
}

// DefaultDataDir returns $XDG_DATA_HOME/tempwatch or ~/.local/share/tempwatch.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "tempwatch")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "tempwatch")
	}
	return filepath.Join(os.TempDir(), "tempwatch-data")
}

// Load reads the config at path, or DefaultPath when path is empty. A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()
	cfg.filePath = path

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, twerrors.ConfigLoadFailed(path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, twerrors.ConfigLoadFailed(path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.PollInterval.Std() < 100*time.Millisecond {
		return twerrors.ConfigInvalid(fmt.Sprintf("poll_interval %s is below 100ms", c.PollInterval.Std()))
	}
	if c.FrameTimeout.Std() <= 0 {
		return twerrors.ConfigInvalid("frame_timeout must be positive")
	}
	if c.HistorySize < 1 {
		return twerrors.ConfigInvalid("history_size must be at least 1")
	}
	if c.SeriesCapacity < 1 {
		return twerrors.ConfigInvalid("series_capacity must be at least 1")
	}
	if c.XTickCadence < 1 || c.YTickCadence < 1 {
		return twerrors.ConfigInvalid("tick cadences must be at least 1")
	}
	if c.LabelWidth < 1 {
		return twerrors.ConfigInvalid("label_width must be at least 1")
	}
	if c.PairLimit < 2 {
		return twerrors.ConfigInvalid("pair_limit must be at least 2")
	}
	if _, err := prefs.ParseFormat(c.PrefsFormat); err != nil {
		return twerrors.ConfigInvalid(err.Error())
	}
	switch c.StoreBackend {
	case StoreCSV, StoreSQLite, StoreNone:
	default:
		return twerrors.ConfigInvalid(fmt.Sprintf("unknown store_backend %q", c.StoreBackend))
	}
	if c.AlertRepeat.Std() < 0 {
		return twerrors.ConfigInvalid("alert_repeat must not be negative")
	}
	if c.CommandTimeout.Std() <= 0 {
		return twerrors.ConfigInvalid("command_timeout must be positive")
	}
	return nil
}

// Save writes the config back to the file it was loaded from.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	path := c.filePath
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return twerrors.ConfigSaveFailed(path, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return twerrors.ConfigSaveFailed(path, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return twerrors.ConfigSaveFailed(path, err)
	}
	return nil
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	return c.filePath
}

// PrefsFile returns the configured preferences path or the default one.
func (c *Config) PrefsFile() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.PrefsPath != "" {
		return expandHome(c.PrefsPath)
	}
	return DefaultPrefsPath()
}

// DataDir returns the configured store directory or the default one.
func (c *Config) DataDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.StoreDir != "" {
		return expandHome(c.StoreDir)
	}
	return DefaultDataDir()
}

// LogFile returns the configured log path, or "" for the logger default.
func (c *Config) LogFile() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.LogPath)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
