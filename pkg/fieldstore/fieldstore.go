// Package fieldstore is the stable external API over the optional
// persistence hook (internal/store): a thin DTO-converting façade callers
// outside this module can depend on without reaching into internal
// packages.
package fieldstore

import (
	"fieldcollector/internal/datacenter"
	"fieldcollector/internal/store"
)

// Client exposes device/point history and aggregate stats backed by a
// Store, and wires that Store to a data center's Subscribe hook.
type Client struct{ s *store.Store }

// Open opens (creating if necessary) a SQLite-backed store at path.
func Open(path string) (*Client, error) {
	s, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	return &Client{s: s}, nil
}

// Close releases the underlying store.
func (c *Client) Close() error { return c.s.Close() }

// Attach wires this client as a persistence subscriber on center, so every
// changed reading is recorded going forward.
func (c *Client) Attach(center *datacenter.Center) {
	center.Subscribe(c.s.Subscriber())
}

// Device is a recorded device.
type Device struct {
	DeviceID string
	Desc     string
}

// ListDevices returns every recorded device.
func (c *Client) ListDevices() ([]Device, error) {
	rows, err := c.s.ListDevices()
	if err != nil {
		return nil, err
	}
	out := make([]Device, 0, len(rows))
	for _, r := range rows {
		out = append(out, Device{DeviceID: r.DeviceID, Desc: r.Desc})
	}
	return out, nil
}

// PointLatest is the most recent recorded value of one point.
type PointLatest struct {
	DeviceID  string
	Name      string
	Value     float64
	Timestamp string
}

// LatestPoints returns the most recent value of every point recorded for
// deviceID.
func (c *Client) LatestPoints(deviceID string) ([]PointLatest, error) {
	rows, err := c.s.LatestPoints(deviceID)
	if err != nil {
		return nil, err
	}
	out := make([]PointLatest, 0, len(rows))
	for _, r := range rows {
		out = append(out, PointLatest{DeviceID: deviceID, Name: r.Name, Value: r.Value, Timestamp: r.Timestamp})
	}
	return out, nil
}

// LatestPointsJSON marshals LatestPoints for an export/API surface.
func (c *Client) LatestPointsJSON(deviceID string) ([]byte, error) {
	return c.s.LatestPointsJSON(deviceID)
}

// PointRecord is one historical reading, returned by DeviceHistory.
type PointRecord struct {
	Name      string
	Value     float64
	Timestamp string
}

// DeviceHistory returns up to limit most-recent readings for deviceID,
// newest first. limit<=0 means unlimited.
func (c *Client) DeviceHistory(deviceID string, limit int) ([]PointRecord, error) {
	rows, err := c.s.DevicePoints(deviceID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]PointRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, PointRecord{Name: r.Name, Value: r.Value, Timestamp: r.Timestamp})
	}
	return out, nil
}

// Stats summarizes the store's contents.
type Stats struct {
	DeviceCount int
	PointCount  int
}

// StatsJSON returns aggregate row counts as JSON.
func (c *Client) StatsJSON() ([]byte, error) { return c.s.StatsJSON() }
