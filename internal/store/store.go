// Package store keeps a persistent log of temperature readings, either as
// daily CSV files or in a SQLite database.
package store

import (
	"fmt"
	"time"

	twerrors "github.com/luki/tempwatch/internal/errors"
	"github.com/luki/tempwatch/internal/logger"
	"github.com/luki/tempwatch/internal/sensor"
)

const (
	timeLayout = "2006-01-02T15:04:05"
	dayLayout  = "2006-01-02"
)

// Backend names accepted by Open.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
	BackendNone   = "none"
)

// Store is a reading log partitioned by local calendar day.
type Store interface {
	// Write appends a batch of readings taken at t.
	Write(readings []sensor.Reading, t time.Time) error
	// ListDays returns the days that hold readings, newest first.
	ListDays() ([]string, error)
	// LoadDay returns every reading of day (YYYY-MM-DD) in write order.
	LoadDay(day string) ([]StoredReading, error)
	Close() error
}

// StoredReading is a single logged reading.
type StoredReading struct {
	Time  time.Time
	RunID string
	Chip  string
	Label string
	Temp  float64
	High  float64
	Crit  float64
}

// Key matches sensor.Reading.Key.
func (r StoredReading) Key() string {
	return r.Chip + "/" + r.Label
}

// Open returns the store for backend rooted at dir. Rows are tagged with
// the current run id.
func Open(backend, dir string) (Store, error) {
	log := logger.ComponentLogger("store")
	switch backend {
	case BackendCSV, "":
		s, err := NewDiskStore(dir)
		if err != nil {
			return nil, err
		}
		log.Info("opened csv store", "dir", dir)
		return s, nil
	case BackendSQLite:
		s, err := NewSQLiteStore(dir)
		if err != nil {
			return nil, err
		}
		log.Info("opened sqlite store", "dir", dir)
		return s, nil
	case BackendNone:
		return Discard{}, nil
	}
	return nil, twerrors.E(twerrors.Op("store.Open"), twerrors.KindInvalid, fmt.Sprintf("unknown store backend %q", backend))
}

// Discard drops every write and holds no days.
type Discard struct{}

func (Discard) Write([]sensor.Reading, time.Time) error { return nil }
func (Discard) ListDays() ([]string, error)             { return nil, nil }
func (Discard) LoadDay(string) ([]StoredReading, error) { return nil, nil }
func (Discard) Close() error                            { return nil }
