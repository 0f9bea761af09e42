package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver used below

	"fieldcollector/internal/datacenter"
)

// Store is the optional persistence hook wired to a data center's
// Subscribe hook. Writes go through GORM (migrations + upserts); aggregate
// reads go through a plain database/sql connection, since GORM's query
// builder buys nothing for hand-rolled aggregate SQL.
type Store struct {
	gdb *gorm.DB
	sdb *sql.DB
}

// Open opens (creating if necessary) a SQLite-backed store at path and
// migrates its schema.
func Open(path string) (*Store, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open gorm: %w", err)
	}
	if err := gdb.AutoMigrate(&Device{}, &PointValue{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	sdb, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("store: open sql: %w", err)
	}

	return &Store{gdb: gdb, sdb: sdb}, nil
}

// Close releases both underlying connections.
func (s *Store) Close() error {
	if sqlDB, err := s.gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return s.sdb.Close()
}

// Subscriber returns a datacenter.Subscriber bound to this store, suitable
// for passing to Center.Subscribe. Persistence is best-effort: a write
// failure here must never affect polling or data center state, so errors
// are logged rather than propagated (there is no caller to return them to).
func (s *Store) Subscriber() datacenter.Subscriber {
	return func(deviceID string, e datacenter.Entry) {
		if err := s.ingest(deviceID, e); err != nil {
			logrus.Warnf("store: ingest %s/%s: %v", deviceID, e.Key, err)
		}
	}
}

func (s *Store) ingest(deviceID string, e datacenter.Entry) error {
	if err := s.gdb.Save(&Device{DeviceID: deviceID}).Error; err != nil {
		return fmt.Errorf("store: upsert device %s: %w", deviceID, err)
	}
	pv := PointValue{
		DeviceID: deviceID,
		Name:     e.Key,
		Value:    e.Value.Float64(),
	}
	if err := s.gdb.Create(&pv).Error; err != nil {
		return fmt.Errorf("store: insert point %s/%s: %w", deviceID, e.Key, err)
	}
	return nil
}

// DeviceInfo is a row of ListDevices.
type DeviceInfo struct {
	DeviceID string `json:"device_id"`
	Desc     string `json:"desc"`
}

// ListDevices returns every recorded device.
func (s *Store) ListDevices() ([]DeviceInfo, error) {
	rows, err := s.sdb.Query(`SELECT device_id, desc FROM devices ORDER BY device_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeviceInfo
	for rows.Next() {
		var d DeviceInfo
		if err := rows.Scan(&d.DeviceID, &d.Desc); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// PointLatest is the most recent recorded value of one point.
type PointLatest struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Timestamp string  `json:"timestamp"`
}

// LatestPoints returns the most recent value of every point recorded for
// deviceID, one row per distinct point name.
func (s *Store) LatestPoints(deviceID string) ([]PointLatest, error) {
	const q = `
		SELECT name, value, timestamp
		FROM point_values pv
		WHERE device_id = ?
		  AND id = (
		      SELECT id FROM point_values
		      WHERE device_id = pv.device_id AND name = pv.name
		      ORDER BY id DESC LIMIT 1
		  )
		ORDER BY name`
	rows, err := s.sdb.Query(q, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PointLatest
	for rows.Next() {
		var p PointLatest
		if err := rows.Scan(&p.Name, &p.Value, &p.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LatestPointsJSON is LatestPoints marshaled for an export/API surface.
func (s *Store) LatestPointsJSON(deviceID string) ([]byte, error) {
	pts, err := s.LatestPoints(deviceID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(pts)
}

// DevicePoint is one historical reading, returned by DevicePoints.
type DevicePoint struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Timestamp string  `json:"timestamp"`
}

// DevicePoints returns up to limit most-recent readings for deviceID,
// newest first. limit<=0 means unlimited.
func (s *Store) DevicePoints(deviceID string, limit int) ([]DevicePoint, error) {
	q := `SELECT name, value, timestamp FROM point_values WHERE device_id = ? ORDER BY id DESC`
	args := []any{deviceID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.sdb.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DevicePoint
	for rows.Next() {
		var p DevicePoint
		if err := rows.Scan(&p.Name, &p.Value, &p.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Stats summarizes the store's contents for a health/diagnostics surface.
type Stats struct {
	DeviceCount int `json:"device_count"`
	PointCount  int `json:"point_count"`
}

// StatsJSON returns aggregate row counts as JSON.
func (s *Store) StatsJSON() ([]byte, error) {
	var st Stats
	if err := s.sdb.QueryRow(`SELECT COUNT(*) FROM devices`).Scan(&st.DeviceCount); err != nil {
		return nil, err
	}
	if err := s.sdb.QueryRow(`SELECT COUNT(*) FROM point_values`).Scan(&st.PointCount); err != nil {
		return nil, err
	}
	return json.Marshal(st)
}
