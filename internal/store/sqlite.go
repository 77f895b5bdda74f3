package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/luki/tempwatch/internal/logger"
	"github.com/luki/tempwatch/internal/sensor"
)

// DBName is the database file created inside the data directory.
const DBName = "readings.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS readings (
    id    INTEGER PRIMARY KEY,
    ts    INTEGER NOT NULL,   -- UnixNano
    day   TEXT NOT NULL,      -- local YYYY-MM-DD
    run   TEXT NOT NULL,
    chip  TEXT NOT NULL,
    label TEXT NOT NULL,
    temp  REAL NOT NULL,
    high  REAL NOT NULL DEFAULT 0,
    crit  REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_readings_day ON readings(day);
`

// SQLiteStore keeps readings in a single SQLite database.
type SQLiteStore struct {
	db    *sql.DB
	runID string
}

// NewSQLiteStore opens (or creates) dir/readings.db.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dsn := filepath.Join(dir, DBName) +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, runID: logger.RunID()}, nil
}

// Write inserts the batch in one transaction.
func (s *SQLiteStore) Write(readings []sensor.Reading, t time.Time) error {
	if len(readings) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO readings (ts, day, run, chip, label, temp, high, crit) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	ts := t.UnixNano()
	day := t.Format(dayLayout)
	for _, r := range readings {
		if _, err := stmt.Exec(ts, day, s.runID, r.Chip, r.Label, r.Temp, r.High, r.Crit); err != nil {
			return fmt.Errorf("failed to insert reading %s: %w", r.Key(), err)
		}
	}
	return tx.Commit()
}

// ListDays returns the days that hold readings, newest first.
func (s *SQLiteStore) ListDays() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT day FROM readings ORDER BY day DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

// LoadDay returns the readings of day in insertion order.
func (s *SQLiteStore) LoadDay(day string) ([]StoredReading, error) {
	rows, err := s.db.Query(`SELECT ts, run, chip, label, temp, high, crit FROM readings WHERE day = ? ORDER BY ts, id`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []StoredReading
	for rows.Next() {
		var (
			ts int64
			r  StoredReading
		)
		if err := rows.Scan(&ts, &r.RunID, &r.Chip, &r.Label, &r.Temp, &r.High, &r.Crit); err != nil {
			return nil, err
		}
		r.Time = time.Unix(0, ts)
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
