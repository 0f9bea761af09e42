package fieldstore

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
)

// ExportJSON writes every device's latest points to path as pretty-printed
// JSON, grouped by device.
func (c *Client) ExportJSON(path string) error {
	devices, err := c.ListDevices()
	if err != nil {
		return fmt.Errorf("export json: list devices: %w", err)
	}

	type deviceSnapshot struct {
		DeviceID string        `json:"device_id"`
		Desc     string        `json:"desc"`
		Points   []PointLatest `json:"points"`
	}
	snaps := make([]deviceSnapshot, 0, len(devices))
	for _, d := range devices {
		pts, err := c.LatestPoints(d.DeviceID)
		if err != nil {
			return fmt.Errorf("export json: latest points %s: %w", d.DeviceID, err)
		}
		snaps = append(snaps, deviceSnapshot{DeviceID: d.DeviceID, Desc: d.Desc, Points: pts})
	}

	b, err := json.MarshalIndent(snaps, "", "  ")
	if err != nil {
		return fmt.Errorf("export json: marshal: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("export json: write: %w", err)
	}
	return nil
}

// ExportCSV flattens every device's latest points into path as CSV with
// columns device_id,desc,name,value,timestamp.
func (c *Client) ExportCSV(path string) error {
	devices, err := c.ListDevices()
	if err != nil {
		return fmt.Errorf("export csv: list devices: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export csv: create: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"device_id", "desc", "name", "value", "timestamp"}); err != nil {
		return fmt.Errorf("export csv: header: %w", err)
	}
	for _, d := range devices {
		pts, err := c.LatestPoints(d.DeviceID)
		if err != nil {
			return fmt.Errorf("export csv: latest points %s: %w", d.DeviceID, err)
		}
		for _, p := range pts {
			rec := []string{d.DeviceID, d.Desc, p.Name, fmt.Sprintf("%g", p.Value), p.Timestamp}
			if err := w.Write(rec); err != nil {
				return fmt.Errorf("export csv: record: %w", err)
			}
		}
	}
	w.Flush()
	return w.Error()
}
