// Package kpi persists battery energy KPIs.
package kpi

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/gridbalance/core/metrics/energy"
)

// SQLiteStore persists daily energy records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS battery_energy (
        battery_id TEXT,
        day INTEGER,
        charged REAL,
        discharged REAL,
        PRIMARY KEY(battery_id, day)
    );`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Add merges r into the row of its battery and day.
func (s *SQLiteStore) Add(r energy.Record) error {
	d := energy.Day(r.Date)
	_, err := s.db.Exec(`INSERT INTO battery_energy (battery_id, day, charged, discharged)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(battery_id, day) DO UPDATE SET
            charged = charged + excluded.charged,
            discharged = discharged + excluded.discharged`,
		r.BatteryID, d.Unix(), r.ChargedKWh, r.DischargedKWh)
	return err
}

// Query returns the daily records of batteryID in [start, end], oldest first.
func (s *SQLiteStore) Query(batteryID string, start, end time.Time) ([]energy.Record, error) {
	start = energy.Day(start)
	end = energy.Day(end)
	rows, err := s.db.Query(`SELECT battery_id, day, charged, discharged
        FROM battery_energy WHERE battery_id = ? AND day >= ? AND day <= ? ORDER BY day`,
		batteryID, start.Unix(), end.Unix())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []energy.Record
	for rows.Next() {
		var (
			id        string
			ts        int64
			ch, disch float64
		)
		if err := rows.Scan(&id, &ts, &ch, &disch); err != nil {
			return nil, err
		}
		res = append(res, energy.Record{
			BatteryID:     id,
			Date:          time.Unix(ts, 0).UTC(),
			ChargedKWh:    ch,
			DischargedKWh: disch,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
