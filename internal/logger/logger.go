// Package logger writes structured logs to a file. The terminal belongs to
// the renderer, so nothing here ever writes to stdout.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

var (
	slogLogger *slog.Logger
	levelVar   = new(slog.LevelVar)
	logFile    *os.File
	mu         sync.Mutex
	initDone   bool
	runID      = uuid.NewString()
)

// DefaultPath returns $XDG_STATE_HOME/tempwatch/tempwatch.log, or
// /tmp/tempwatch.log when no state directory can be determined.
func DefaultPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "tempwatch", "tempwatch.log")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "tempwatch", "tempwatch.log")
	}
	return filepath.Join(os.TempDir(), "tempwatch.log")
}

// RunID identifies this process in logs and stored readings.
func RunID() string {
	return runID
}

// SetDebug switches between debug and info level.
func SetDebug(enabled bool) {
	if enabled {
		levelVar.Set(slog.LevelDebug)
	} else {
		levelVar.Set(slog.LevelInfo)
	}
}

// Init opens path for appending and routes all loggers to it. Calling Init
// again is a no-op until Close.
func Init(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if initDone {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log dir for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	logFile = f
	install(f)
	slogLogger.Info("logger initialized", "path", path)
	return nil
}

// InitWriter routes logs to w. Tests use it to capture output.
func InitWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	install(w)
}

func install(w io.Writer) {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: levelVar})
	slogLogger = slog.New(handler).With(slog.String("run", runID))
	initDone = true
}

// Close closes the log file. Writes through loggers obtained earlier fail
// silently afterwards.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	slogLogger = nil
	initDone = false
}

// ComponentLogger returns a logger with the component attribute attached.
//
//	log := logger.ComponentLogger("alert")
//	log.Info("command started", "sensor", name)
func ComponentLogger(component string) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()

	if slogLogger == nil {
		return slog.New(discard{})
	}
	return slogLogger.With(slog.String("component", component))
}

// discard is used before Init so that early loggers never reach the tty.
type discard struct{}

func (discard) Enabled(context.Context, slog.Level) bool  { return false }
func (discard) Handle(context.Context, slog.Record) error { return nil }
func (d discard) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discard) WithGroup(string) slog.Handler           { return d }
