package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	twerrors "github.com/luki/tempwatch/internal/errors"
	"github.com/luki/tempwatch/internal/logger"
	"github.com/luki/tempwatch/internal/sensor"
)

var csvHeader = []string{"time", "run", "chip", "label", "temp", "high", "crit"}

// DiskStore handles persistent CSV storage of temperature readings.
// Files are stored as <dir>/YYYY-MM-DD.csv with the format:
//
//	time,run,chip,label,temp,high,crit
type DiskStore struct {
	dir   string
	runID string

	mu      sync.Mutex
	current *os.File
	writer  *csv.Writer
	curDate string
}

// NewDiskStore creates a CSV store in dir, creating the directory if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, twerrors.E(twerrors.Op("store.NewDiskStore"), twerrors.KindIO, "cannot create data dir", err)
	}
	return &DiskStore{dir: dir, runID: logger.RunID()}, nil
}

// Write appends a batch of sensor readings to the CSV file of t's day.
func (d *DiskStore) Write(readings []sensor.Reading, t time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dateStr := t.Format(dayLayout)

	if d.curDate != dateStr || d.current == nil {
		d.closeLocked()
		path := filepath.Join(d.dir, dateStr+".csv")
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		d.current = f
		d.writer = csv.NewWriter(f)
		d.curDate = dateStr

		if info, err := f.Stat(); err == nil && info.Size() == 0 {
			d.writer.Write(csvHeader)
		}
	}

	ts := t.Format(timeLayout)
	for _, r := range readings {
		d.writer.Write([]string{
			ts,
			d.runID,
			r.Chip,
			r.Label,
			fmt.Sprintf("%.1f", r.Temp),
			fmt.Sprintf("%.1f", r.High),
			fmt.Sprintf("%.1f", r.Crit),
		})
	}
	d.writer.Flush()
	return d.writer.Error()
}

// Close flushes and closes the current file.
func (d *DiskStore) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeLocked()
}

func (d *DiskStore) closeLocked() error {
	if d.writer != nil {
		d.writer.Flush()
		d.writer = nil
	}
	if d.current == nil {
		return nil
	}
	err := d.current.Close()
	d.current = nil
	return err
}

// ListDays returns available log dates (newest first).
func (d *DiskStore) ListDays() ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, err
	}

	var days []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".csv") {
			continue
		}
		day := strings.TrimSuffix(name, ".csv")
		if _, err := time.Parse(dayLayout, day); err == nil {
			days = append(days, day)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	return days, nil
}

// LoadDay reads all readings from a specific day's CSV file.
func (d *DiskStore) LoadDay(day string) ([]StoredReading, error) {
	d.mu.Lock()
	if d.writer != nil {
		d.writer.Flush()
	}
	d.mu.Unlock()
	return LoadFile(filepath.Join(d.dir, day+".csv"))
}

// LoadFile reads all readings from a CSV file. Files written before the
// run column existed (time,chip,label,temp,high,crit) are accepted.
func LoadFile(path string) ([]StoredReading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var readings []StoredReading
	for i, row := range records {
		if i == 0 && len(row) > 0 && row[0] == "time" {
			continue
		}
		var run string
		switch len(row) {
		case 6:
		case 7:
			run = row[1]
			row = append(row[:1], row[2:]...)
		default:
			continue
		}

		t, err := time.ParseInLocation(timeLayout, row[0], time.Local)
		if err != nil {
			continue
		}
		temp, _ := strconv.ParseFloat(row[3], 64)
		high, _ := strconv.ParseFloat(row[4], 64)
		crit, _ := strconv.ParseFloat(row[5], 64)

		readings = append(readings, StoredReading{
			Time:  t,
			RunID: run,
			Chip:  row[1],
			Label: row[2],
			Temp:  temp,
			High:  high,
			Crit:  crit,
		})
	}

	return readings, nil
}
