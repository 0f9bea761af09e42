// Package store is the optional persistence hook for the data center: a
// GORM-backed writer plus a raw database/sql reader, following a two-track
// pattern (GORM for writes/migrations, raw SQL for aggregate queries) built
// over a device/point model rather than a server/device/point hierarchy.
package store

import "time"

// Device is a recorded device, saved (inserted or updated) each time one of
// its points is ingested.
type Device struct {
	DeviceID string `gorm:"column:device_id;primaryKey"`
	Desc     string `gorm:"column:desc"`

	PointValues []PointValue `gorm:"foreignKey:DeviceID;references:DeviceID"`
}

func (Device) TableName() string { return "devices" }

// PointValue is one ingested reading, timestamped at write time.
type PointValue struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	DeviceID  string    `gorm:"column:device_id;index"`
	Name      string    `gorm:"column:name;index"`
	Value     float64   `gorm:"column:value"`
	Timestamp time.Time `gorm:"column:timestamp;autoCreateTime"`

	Device Device `gorm:"foreignKey:DeviceID;references:DeviceID"`
}

func (PointValue) TableName() string { return "point_values" }
